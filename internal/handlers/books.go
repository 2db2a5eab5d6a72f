package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/models"
	"github.com/sahansera/bookshelf/internal/util"
)

type BookHandler struct {
	DB *gorm.DB
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *BookHandler) GetBooks(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Book{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch books")
	}

	var books []models.Book
	if err := h.DB.Where("is_active = ?", true).
		Order("id ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch books")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"books":   books,
		"total":   total,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	var book models.Book
	if err := h.DB.Where("id = ? AND is_active = ?", id, true).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch book")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "book": book})
}
