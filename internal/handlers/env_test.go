package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/config"
	"github.com/sahansera/bookshelf/internal/hash"
	"github.com/sahansera/bookshelf/internal/models"
	"github.com/sahansera/bookshelf/internal/orders"
	"github.com/sahansera/bookshelf/internal/service/token"
)

var testJWTSecret = []byte("test-jwt-secret")

const testMerchantSecret = "MySecret123"

type testEnv struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB

	auth    *AuthHandler
	books   *BookHandler
	users   *UserHandler
	payment *PaymentHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	return &testEnv{
		t:     t,
		e:     echo.New(),
		db:    db,
		auth:  &AuthHandler{DB: db, JWTSecret: testJWTSecret},
		books: &BookHandler{DB: db},
		users: &UserHandler{DB: db},
		payment: &PaymentHandler{
			DB:             db,
			JWTSecret:      testJWTSecret,
			MerchantID:     "1211149",
			MerchantSecret: testMerchantSecret,
			Orders:         orders.NewService(db),
		},
	}
}

func (env *testEnv) seedUser(email string) models.User {
	pw, err := hash.HashPassword("password123")
	require.NoError(env.t, err)
	user := models.User{
		Email:        email,
		PasswordHash: pw,
		Name:         "Test User",
		IsActive:     true,
		Preferences:  &models.Preferences{},
	}
	require.NoError(env.t, env.db.Create(&user).Error)
	return user
}

func (env *testEnv) seedBook(title string, price float64, stock int) models.Book {
	book := models.Book{Title: title, Author: "test author", Price: price, Stock: stock, IsActive: true}
	require.NoError(env.t, env.db.Create(&book).Error)
	return book
}

func (env *testEnv) seedCart(userID uint, bookID uint, quantity int) models.Cart {
	cart := models.Cart{UserID: userID, Items: []models.CartItem{{BookID: bookID, Quantity: quantity}}}
	require.NoError(env.t, env.db.Create(&cart).Error)
	return cart
}

func (env *testEnv) bearer(userID uint) string {
	signed, err := token.Sign(userID, "user@example.com", testJWTSecret)
	require.NoError(env.t, err)
	return "Bearer " + signed
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, userID uint) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		req.Header.Set(echo.HeaderAuthorization, env.bearer(userID))
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	return rec, c
}

func requireStatus(t *testing.T, err error, code int, msgPart string) {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	require.Equal(t, code, he.Code)
	if msgPart != "" {
		require.Contains(t, fmt.Sprint(he.Message), msgPart)
	}
}
