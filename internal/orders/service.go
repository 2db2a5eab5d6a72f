package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/models"
)

// Line is one purchased position as reported by the payment confirmation
// paths (the webhook's custom payload or the client's cart snapshot).
type Line struct {
	BookID   uint `json:"bookId"`
	Quantity int  `json:"quantity"`
}

// Creator records a confirmed payment as an order. Both the asynchronous
// webhook and the synchronous verification flow call it once they trust the
// payment; implementations must be idempotent per gateway order id.
type Creator interface {
	CreateOrder(ctx context.Context, orderID, paymentID string, userID uint, items []Line, amount float64, currency string) (*models.Order, error)
}

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// CreateOrder persists the order with line-item snapshots, decrements stock,
// and clears the buyer's cart, all in one transaction. A duplicate order id
// returns the already-recorded order unchanged.
func (s *Service) CreateOrder(ctx context.Context, orderID, paymentID string, userID uint, items []Line, amount float64, currency string) (*models.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("orders: empty order id")
	}

	var order models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			OrderID:   orderID,
			PaymentID: paymentID,
			UserID:    userID,
			Total:     amount,
			Currency:  currency,
			Status:    "completed",
		}

		for _, line := range items {
			if line.Quantity < 1 {
				return fmt.Errorf("orders: invalid quantity %d for book %d", line.Quantity, line.BookID)
			}
			var book models.Book
			if err := tx.First(&book, line.BookID).Error; err != nil {
				return fmt.Errorf("orders: book %d: %w", line.BookID, err)
			}
			if book.Stock < line.Quantity {
				return fmt.Errorf("orders: book %d has stock %d, order wants %d", line.BookID, book.Stock, line.Quantity)
			}
			if err := tx.Model(&models.Book{}).Where("id = ?", book.ID).
				Update("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
				return fmt.Errorf("orders: decrement stock for book %d: %w", book.ID, err)
			}
			order.Items = append(order.Items, models.OrderItem{
				BookID:   book.ID,
				Title:    book.Title,
				Price:    book.Price,
				Quantity: line.Quantity,
			})
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("orders: create %s: %w", orderID, err)
		}

		// The cart served its purpose once the payment is in.
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err == nil {
			if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
				return fmt.Errorf("orders: clear cart for user %d: %w", userID, err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("orders: load cart for user %d: %w", userID, err)
		}
		return nil
	})
	if txErr != nil {
		// The unique index on order_id is the arbiter when two confirmations
		// race; the loser's transaction rolled back, so hand it the order
		// the winner recorded.
		var existing models.Order
		if err := s.DB.WithContext(ctx).Preload("Items").
			Where("order_id = ?", orderID).First(&existing).Error; err == nil {
			return &existing, nil
		}
		return nil, txErr
	}
	return &order, nil
}
