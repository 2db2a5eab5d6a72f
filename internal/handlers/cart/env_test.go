package cart

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
	"github.com/sahansera/bookshelf/internal/models"
	"github.com/sahansera/bookshelf/internal/service/token"
)

var testJWTSecret = []byte("test-jwt-secret")

type testEnv struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
	h  *CartHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	return &testEnv{
		t:  t,
		e:  echo.New(),
		db: db,
		h:  &CartHandler{DB: db, JWTSecret: testJWTSecret},
	}
}

func (env *testEnv) seedBook(title string, price float64, stock int) models.Book {
	book := models.Book{Title: title, Author: "test author", Price: price, Stock: stock, IsActive: true}
	require.NoError(env.t, env.db.Create(&book).Error)
	return book
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

type cartResponse struct {
	Success bool         `json:"success"`
	Cart    *models.Cart `json:"cart"`
	Message string       `json:"message"`
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func httpErr(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he
}

func requireStatus(t *testing.T, err error, code int, msgPart string) {
	t.Helper()
	he := httpErr(t, err)
	require.Equal(t, code, he.Code)
	if msgPart != "" {
		require.Contains(t, fmt.Sprint(he.Message), msgPart)
	}
}
