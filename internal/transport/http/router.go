package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/handlers"
	"github.com/sahansera/bookshelf/internal/handlers/cart"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *handlers.AuthHandler
	BookHandler    *handlers.BookHandler
	UserHandler    *handlers.UserHandler
	CartHandler    *cart.CartHandler
	PaymentHandler *handlers.PaymentHandler

	// SearchHandler is optional; the route is only mounted when an
	// elasticsearch client was configured.
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.AuthHandler.Me)

	api.GET("/users", d.UserHandler.GetUsers)

	books := api.Group("/books")
	books.GET("", d.BookHandler.GetBooks)
	if d.SearchHandler != nil {
		books.GET("/search", d.SearchHandler.Search)
	}
	books.GET("/:id", d.BookHandler.GetBook)

	ct := api.Group("/cart")
	ct.GET("", d.CartHandler.GetCart)
	ct.POST("/add", d.CartHandler.AddToCart)
	ct.PUT("/update", d.CartHandler.UpdateCart)
	ct.DELETE("/remove", d.CartHandler.RemoveFromCart)
	ct.DELETE("/clear", d.CartHandler.ClearCart)

	api.POST("/checkout/session", d.PaymentHandler.CheckoutSession)
	api.POST("/generate-hash", d.PaymentHandler.GenerateHash)
	api.POST("/payment-notify", d.PaymentHandler.PaymentNotify)
	api.POST("/verify-payment", d.PaymentHandler.VerifyPayment)
}
