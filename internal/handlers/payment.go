package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/logging"
	"github.com/sahansera/bookshelf/internal/models"
	"github.com/sahansera/bookshelf/internal/mykafka"
	"github.com/sahansera/bookshelf/internal/orders"
	"github.com/sahansera/bookshelf/internal/payhere"
	"github.com/sahansera/bookshelf/internal/service/token"
)

type PaymentHandler struct {
	DB             *gorm.DB
	JWTSecret      []byte
	MerchantID     string
	MerchantSecret string
	Verifier       payhere.Verifier
	Orders         orders.Creator
	Producer       *mykafka.Producer
	Development    bool
}

// CheckoutSession mints a gateway order id and echoes everything the client
// needs to assemble the payment-initiation form.
func (h *PaymentHandler) CheckoutSession(c echo.Context) error {
	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var cart models.Cart
	if err := h.DB.Preload("Items.Book").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if len(cart.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	var total float64
	lines := make([]orders.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		total += float64(it.Quantity) * it.Book.Price
		lines = append(lines, orders.Line{BookID: it.BookID, Quantity: it.Quantity})
	}

	amount, err := payhere.FormatAmount(total)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cart total is not payable")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"order_id":    "ORDER_" + uuid.NewString(),
		"merchant_id": h.MerchantID,
		"amount":      amount,
		"currency":    "LKR",
		"items":       lines,
	})
}

// GenerateHash implements the gateway's request-signing checksum. The
// merchant secret and the intermediate string never leave the server
// outside the development-mode debug block.
func (h *PaymentHandler) GenerateHash(c echo.Context) error {
	var req struct {
		MerchantID string  `json:"merchant_id"`
		OrderID    string  `json:"order_id"`
		Amount     float64 `json:"amount"`
		Currency   string  `json:"currency"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MerchantID == "" || req.OrderID == "" || req.Currency == "" || req.Amount == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required parameters")
	}
	if h.MerchantSecret == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "server configuration error - merchant secret not found")
	}

	amount, err := payhere.FormatAmount(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount provided")
	}

	sig := payhere.GenerateHash(req.MerchantID, req.OrderID, amount, req.Currency, h.MerchantSecret)

	resp := echo.Map{"success": true, "hash": sig}
	if h.Development {
		resp["debug"] = echo.Map{"formatted_amount": amount}
	}
	return c.JSON(http.StatusOK, resp)
}

type notifyRequest struct {
	MerchantID string `json:"merchant_id"      form:"merchant_id"`
	OrderID    string `json:"order_id"         form:"order_id"`
	PaymentID  string `json:"payment_id"       form:"payment_id"`
	Amount     string `json:"payhere_amount"   form:"payhere_amount"`
	Currency   string `json:"payhere_currency" form:"payhere_currency"`
	StatusCode string `json:"status_code"      form:"status_code"`
	MD5Sig     string `json:"md5sig"           form:"md5sig"`
	Custom1    string `json:"custom_1"         form:"custom_1"`
	Custom2    string `json:"custom_2"         form:"custom_2"`
}

// PaymentNotify receives the gateway's asynchronous status pushes. Verified
// notifications are always acknowledged with 200 — even when local
// bookkeeping fails — so the gateway never re-delivers for our own
// failures. Only malformed or unsigned input is rejected.
func (h *PaymentHandler) PaymentNotify(c echo.Context) error {
	var req notifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification data")
	}
	if req.OrderID == "" || req.StatusCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification data")
	}

	log := logging.FromContext(c.Request().Context())

	if !payhere.VerifyNotificationSig(req.MerchantID, req.OrderID, req.Amount,
		req.Currency, req.StatusCode, req.MD5Sig, h.MerchantSecret) {
		log.Warn("payment notification signature mismatch", "order_id", req.OrderID)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	status := payhere.StatusFromCode(req.StatusCode)
	log.Info("payment notification received",
		"order_id", req.OrderID, "payment_id", req.PaymentID, "status", string(status))

	h.publish(c, map[string]any{
		"type":      "payment_notification",
		"orderID":   req.OrderID,
		"paymentID": req.PaymentID,
		"status":    string(status),
	})

	if status != payhere.StatusSuccess {
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "payment notification received",
			"data":    echo.Map{"orderId": req.OrderID, "status": string(status)},
		})
	}

	var custom struct {
		UserID    uint          `json:"userId"`
		CartItems []orders.Line `json:"cartItems"`
	}
	if err := json.Unmarshal([]byte(req.Custom1), &custom); err != nil || custom.UserID == 0 {
		log.Warn("failed to parse notification custom data", "order_id", req.OrderID, "error", fmt.Sprint(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "payment notification received but processing encountered issues",
			"data":    echo.Map{"orderId": req.OrderID, "status": "received_with_errors"},
		})
	}

	var amount float64
	fmt.Sscanf(req.Amount, "%f", &amount)

	order, err := h.Orders.CreateOrder(c.Request().Context(),
		req.OrderID, req.PaymentID, custom.UserID, custom.CartItems, amount, req.Currency)
	if err != nil {
		log.Error("order creation from notification failed", "order_id", req.OrderID, "error", err.Error())
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "payment notification received but processing encountered issues",
			"data":    echo.Map{"orderId": req.OrderID, "status": "received_with_errors"},
		})
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  custom.UserID,
		"orderID": order.OrderID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "payment notification processed successfully",
		"data": echo.Map{
			"orderId":   req.OrderID,
			"paymentId": req.PaymentID,
			"status":    "processed",
		},
	})
}

// VerifyPayment is the client-initiated confirmation path: one token
// exchange, one payment-search call, no retries. Success is strictly a
// RECEIVED record; anything else leaves the cart untouched.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order id is required")
	}
	if h.Verifier == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "missing OAuth credentials")
	}

	log := logging.FromContext(c.Request().Context())

	verification, err := h.Verifier.VerifyPayment(c.Request().Context(), req.OrderID)
	if err != nil {
		log.Error("payment verification failed", "order_id", req.OrderID, "error", err.Error())
		if h.Development {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "payment verification failed")
	}

	resp := echo.Map{
		"success":             true,
		"paymentStatus":       verification.PaymentStatus,
		"isPaymentSuccessful": verification.IsPaymentSuccessful,
	}
	if verification.Payment != nil {
		resp["paymentData"] = verification.Payment
	}

	if verification.IsPaymentSuccessful {
		resp["orderRecorded"] = h.recordVerifiedOrder(c, req.OrderID, verification)
	}
	return c.JSON(http.StatusOK, resp)
}

// recordVerifiedOrder hands a confirmed payment to the order collaborator
// using the caller's cart as the line-item source. Verification already
// succeeded, so bookkeeping failures are logged rather than surfaced.
func (h *PaymentHandler) recordVerifiedOrder(c echo.Context, orderID string, v *payhere.Verification) bool {
	log := logging.FromContext(c.Request().Context())

	userID, err := token.UserID(c, h.JWTSecret)
	if err != nil {
		log.Warn("verified payment without caller identity, order not recorded", "order_id", orderID)
		return false
	}

	var cart models.Cart
	if err := h.DB.Preload("Items.Book").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		log.Warn("verified payment but no cart to record", "order_id", orderID, "user_id", userID)
		return false
	}

	var total float64
	lines := make([]orders.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		total += float64(it.Quantity) * it.Book.Price
		lines = append(lines, orders.Line{BookID: it.BookID, Quantity: it.Quantity})
	}

	paymentID, currency := "", "LKR"
	if v.Payment != nil {
		paymentID = v.Payment.PaymentID.String()
		if v.Payment.Currency != "" {
			currency = v.Payment.Currency
		}
	}

	order, err := h.Orders.CreateOrder(c.Request().Context(), orderID, paymentID, userID, lines, total, currency)
	if err != nil {
		log.Error("order creation after verification failed", "order_id", orderID, "error", err.Error())
		return false
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.OrderID,
	})
	return true
}

func (h *PaymentHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
