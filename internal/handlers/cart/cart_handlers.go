package cart

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/models"
	"github.com/sahansera/bookshelf/internal/mykafka"
	"github.com/sahansera/bookshelf/internal/service/token"
)

// errStockChanged aborts a mutation when a concurrent request consumed the
// stock between the precondition check and the transaction's re-read. The
// client is told to refresh and retry; there is no server-side retry.
var errStockChanged = errors.New("insufficient stock available")

type CartHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	cart, err := loadFullCart(h.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": nil})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cart})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		BookID   uint `json:"book_id"`
		Quantity int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
	}
	if req.BookID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "book id is required")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
	}

	book, err := h.activeBook(req.BookID)
	if err != nil {
		return err
	}
	if book.Stock < req.Quantity {
		return echo.NewHTTPError(http.StatusBadRequest, stockShortMessage(book.Stock))
	}

	// Cart is created lazily on the first add.
	var cart models.Cart
	err = h.DB.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := h.DB.Create(&cart).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var existing models.CartItem
	currentQty := 0
	err = h.DB.Where("cart_id = ? AND book_id = ?", cart.ID, req.BookID).First(&existing).Error
	if err == nil {
		currentQty = existing.Quantity
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	newTotal := currentQty + req.Quantity
	if newTotal > book.Stock {
		availableToAdd := book.Stock - currentQty
		if availableToAdd <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("you already have the maximum available quantity (%d) in your cart", book.Stock))
		}
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("you can only add %d more item(s), current stock: %d, in cart: %d",
				availableToAdd, book.Stock, currentQty))
	}

	var result *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		// Re-read stock inside the transaction; a concurrent add may have
		// consumed it since the check above.
		var bookCheck models.Book
		if err := tx.Select("stock").First(&bookCheck, req.BookID).Error; err != nil {
			return err
		}
		if bookCheck.Stock < newTotal {
			return errStockChanged
		}

		if currentQty > 0 {
			if err := tx.Model(&models.CartItem{}).
				Where("cart_id = ? AND book_id = ?", cart.ID, req.BookID).
				Update("quantity", newTotal).Error; err != nil {
				return err
			}
		} else {
			item := models.CartItem{CartID: cart.ID, BookID: req.BookID, Quantity: req.Quantity}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		result, err = loadFullCart(tx, userID)
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, errStockChanged) {
			return echo.NewHTTPError(http.StatusBadRequest, "stock was updated by another user, please try again")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong, please try again")
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_added",
		"userID":   userID,
		"bookID":   req.BookID,
		"quantity": newTotal,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"cart":    result,
		"message": fmt.Sprintf("added %d item(s) to cart successfully", req.Quantity),
	})
}

func (h *CartHandler) UpdateCart(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		BookID   uint `json:"book_id"`
		Quantity int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
	}
	if req.BookID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "book id is required")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
	}

	book, err := h.activeBook(req.BookID)
	if err != nil {
		return err
	}
	if req.Quantity > book.Stock {
		return echo.NewHTTPError(http.StatusBadRequest, stockShortMessage(book.Stock))
	}

	// Unlike add, update requires the cart and the line to pre-exist.
	var cart models.Cart
	if err := h.DB.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var item models.CartItem
	if err := h.DB.Where("cart_id = ? AND book_id = ?", cart.ID, req.BookID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found in cart")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var result *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var bookCheck models.Book
		if err := tx.Select("stock").First(&bookCheck, req.BookID).Error; err != nil {
			return err
		}
		if bookCheck.Stock < req.Quantity {
			return errStockChanged
		}

		if err := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND book_id = ?", cart.ID, req.BookID).
			Update("quantity", req.Quantity).Error; err != nil {
			return err
		}

		result, err = loadFullCart(tx, userID)
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, errStockChanged) {
			return echo.NewHTTPError(http.StatusBadRequest, "stock was updated by another user, please refresh and try again")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update quantity, please try again")
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"userID":   userID,
		"bookID":   req.BookID,
		"quantity": req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"cart":    result,
		"message": "cart updated successfully",
	})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		BookID uint `json:"book_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BookID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "book id is required")
	}

	var cart models.Cart
	if err := h.DB.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var result *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("cart_id = ? AND book_id = ?", cart.ID, req.BookID).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Removing an absent line is reported, not silently absorbed.
			return gorm.ErrRecordNotFound
		}

		result, err = loadFullCart(tx, userID)
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found in cart")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to remove item, please try again")
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"bookID": req.BookID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"cart":    result,
		"message": "item removed from cart successfully",
	})
}

// ClearCart is idempotent: clearing a missing or already-empty cart
// succeeds.
func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var cart models.Cart
	err = h.DB.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "cart cleared"})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if err := h.DB.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear cart")
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "cart cleared"})
}

func (h *CartHandler) activeBook(bookID uint) (*models.Book, error) {
	var book models.Book
	if err := h.DB.First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "book not found or unavailable")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if !book.IsActive {
		return nil, echo.NewHTTPError(http.StatusNotFound, "book not found or unavailable")
	}
	return &book, nil
}

func stockShortMessage(stock int) string {
	if stock == 0 {
		return "this book is out of stock"
	}
	return fmt.Sprintf("only %d items available in stock", stock)
}
