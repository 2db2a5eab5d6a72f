package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Name         string    `gorm:"not null"                 json:"name"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	IsActive     bool      `gorm:"default:true"             json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Preferences *Preferences `json:"preferences,omitempty"`
	Addresses   []Address    `json:"addresses,omitempty"`
	Orders      []Order      `json:"orders,omitempty"`
}

type Preferences struct {
	ID         uint   `gorm:"primaryKey"             json:"id"`
	UserID     uint   `gorm:"uniqueIndex;not null"   json:"user_id"`
	Newsletter bool   `gorm:"default:false"          json:"newsletter"`
	Currency   string `gorm:"default:LKR"            json:"currency"`
	Language   string `gorm:"default:en"             json:"language"`
}

type Address struct {
	ID        uint   `gorm:"primaryKey"       json:"id"`
	UserID    uint   `gorm:"index;not null"   json:"user_id"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	ZipCode   string `json:"zipCode"`
	IsDefault bool   `gorm:"default:false"    json:"isDefault"`
}

type Book struct {
	ID            uint    `gorm:"primaryKey;autoIncrement"            json:"id"`
	Title         string  `gorm:"not null"                            json:"title"`
	Author        string  `gorm:"not null"                            json:"author"`
	Description   string  `json:"description"`
	Price         float64 `gorm:"not null"                            json:"price"`
	CoverImageURL string  `json:"coverImageUrl"`
	Stock         int     `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	IsActive      bool    `gorm:"default:true"                        json:"isActive"`
}

// Cart is created lazily on the first add; one per user.
type Cart struct {
	ID        uint       `gorm:"primaryKey"                  json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"        json:"user_id"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItem struct {
	ID       uint `gorm:"primaryKey"                            json:"id"`
	CartID   uint `gorm:"not null;uniqueIndex:idx_cart_book"    json:"cart_id"`
	BookID   uint `gorm:"not null;uniqueIndex:idx_cart_book"    json:"book_id"`
	Quantity int  `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	Book     Book `json:"book"`
}

// OrderID is the gateway-facing identifier ("ORDER_<uuid>"), distinct from
// the database primary key.
type Order struct {
	ID        uint        `gorm:"primaryKey"                  json:"id"`
	OrderID   string      `gorm:"uniqueIndex;not null"        json:"order_id"`
	PaymentID string      `json:"payment_id"`
	UserID    uint        `gorm:"index;not null"              json:"user_id"`
	Total     float64     `gorm:"not null"                    json:"total"`
	Currency  string      `gorm:"not null"                    json:"currency"`
	Status    string      `gorm:"not null"                    json:"status"`
	Items     []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time   `json:"createdAt"`
}

type OrderItem struct {
	ID       uint    `gorm:"primaryKey"     json:"id"`
	OrderID  uint    `gorm:"index;not null" json:"-"`
	BookID   uint    `gorm:"not null"       json:"book_id"`
	Title    string  `json:"title"`
	Price    float64 `gorm:"not null"       json:"price"`
	Quantity int     `gorm:"not null"       json:"quantity"`
}
