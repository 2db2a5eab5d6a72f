package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/hash"
	"github.com/sahansera/bookshelf/internal/models"
	"github.com/sahansera/bookshelf/internal/mykafka"
	"github.com/sahansera/bookshelf/internal/service/token"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

type authResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
	Message string       `json:"message,omitempty"`
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Name      string `json:"name"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email, password, and name are required")
	}
	if !emailRe.MatchString(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "please provide a valid email address")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters long")
	}

	email := strings.ToLower(req.Email)

	var existing models.User
	err := h.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "user with this email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	firstName := req.FirstName
	if firstName == "" {
		firstName = req.Name
	}
	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		FirstName:    firstName,
		LastName:     req.LastName,
		IsActive:     true,
		Preferences:  &models.Preferences{},
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// The unique index can still race the existence check; only a row
		// that materialized under us is a conflict, anything else is ours.
		var dup models.User
		if h.DB.Where("email = ?", email).First(&dup).Error == nil {
			return echo.NewHTTPError(http.StatusConflict, "user with this email already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	signed, err := token.Sign(user.ID, user.Email, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}

	h.publish(c, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, authResponse{
		Success: true,
		User:    &user,
		Token:   signed,
		Message: "account created successfully",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.Preload("Preferences").
		Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !user.IsActive {
		return echo.NewHTTPError(http.StatusUnauthorized, "account is inactive")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	signed, err := token.Sign(user.ID, user.Email, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}

	h.publish(c, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, authResponse{
		Success: true,
		User:    &user,
		Token:   signed,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.Preload("Preferences").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
