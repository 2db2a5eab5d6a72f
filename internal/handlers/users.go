package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/models"
)

type UserHandler struct {
	DB *gorm.DB
}

// GetUsers lists all users with their preferences, addresses, and order
// history. Password hashes never serialize.
func (h *UserHandler) GetUsers(c echo.Context) error {
	var users []models.User
	if err := h.DB.
		Preload("Preferences").
		Preload("Addresses").
		Preload("Orders").
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch users")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"users":   users,
		"total":   len(users),
	})
}
