package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sahansera/bookshelf/internal/models"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "Reader@Example.com",
		"password": "secret123",
		"name":     "Reader",
	}, 0)
	require.NoError(t, env.auth.Signup(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool        `json:"success"`
		Token   string      `json:"token"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	// Email is stored lower-cased and the hash never serializes.
	require.Equal(t, "reader@example.com", resp.User.Email)
	require.NotContains(t, rec.Body.String(), "PasswordHash")

	var stored models.User
	require.NoError(t, env.db.Preload("Preferences").Where("email = ?", "reader@example.com").First(&stored).Error)
	require.NotNil(t, stored.Preferences)
	require.NotEqual(t, "secret123", stored.PasswordHash)
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/signup",
		map[string]string{"email": "a@b.com", "password": "secret123"}, 0)
	requireStatus(t, env.auth.Signup(c), http.StatusBadRequest, "required")

	_, c = env.doJSONRequest(http.MethodPost, "/api/auth/signup",
		map[string]string{"email": "not-an-email", "password": "secret123", "name": "x"}, 0)
	requireStatus(t, env.auth.Signup(c), http.StatusBadRequest, "valid email")

	_, c = env.doJSONRequest(http.MethodPost, "/api/auth/signup",
		map[string]string{"email": "a@b.com", "password": "abc", "name": "x"}, 0)
	requireStatus(t, env.auth.Signup(c), http.StatusBadRequest, "at least 6 characters")
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("reader@example.com")

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "READER@example.com",
		"password": "secret123",
		"name":     "Reader",
	}, 0)
	requireStatus(t, env.auth.Signup(c), http.StatusConflict, "already exists")
}

func TestSignupStorageFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)

	// Break the preferences table so the user insert fails for a reason
	// that is not a duplicate email.
	require.NoError(t, env.db.Migrator().DropTable(&models.Preferences{}))

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "reader@example.com",
		"password": "secret123",
		"name":     "Reader",
	}, 0)
	requireStatus(t, env.auth.Signup(c), http.StatusInternalServerError, "internal server error")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("reader@example.com")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "reader@example.com", "password": "password123"}, 0)
	require.NoError(t, env.auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool        `json:"success"`
		Token   string      `json:"token"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, user.ID, resp.User.ID)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("reader@example.com")

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "reader@example.com", "password": "wrong"}, 0)
	requireStatus(t, env.auth.Login(c), http.StatusUnauthorized, "invalid email or password")

	_, c = env.doJSONRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "nobody@example.com", "password": "password123"}, 0)
	requireStatus(t, env.auth.Login(c), http.StatusUnauthorized, "invalid email or password")

	require.NoError(t, env.db.Model(&user).Update("is_active", false).Error)
	_, c = env.doJSONRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "reader@example.com", "password": "password123"}, 0)
	requireStatus(t, env.auth.Login(c), http.StatusUnauthorized, "inactive")
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("reader@example.com")

	rec, c := env.doJSONRequest(http.MethodGet, "/api/auth/me", nil, user.ID)
	require.NoError(t, env.auth.Me(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, user.Email, resp.User.Email)

	_, c = env.doJSONRequest(http.MethodGet, "/api/auth/me", nil, 0)
	requireStatus(t, env.auth.Me(c), http.StatusUnauthorized, "")
}

func TestGetUsersExcludesPasswords(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("a@example.com")
	env.seedUser("b@example.com")

	rec, c := env.doJSONRequest(http.MethodGet, "/api/users", nil, 0)
	require.NoError(t, env.users.GetUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Users []models.User `json:"users"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	require.NotContains(t, rec.Body.String(), "PasswordHash")
}

func TestGetBooks(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook("A", 100, 5)
	env.seedBook("B", 200, 3)
	inactive := models.Book{Title: "C", Author: "x", Price: 50, Stock: 1, IsActive: false}
	require.NoError(t, env.db.Create(&inactive).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/books", nil, 0)
	require.NoError(t, env.books.GetBooks(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool          `json:"success"`
		Books   []models.Book `json:"books"`
		Total   int64         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.EqualValues(t, 2, resp.Total)
	require.Len(t, resp.Books, 2)
}

func TestGetBook(t *testing.T) {
	env := newTestEnv(t)
	book := env.seedBook("A", 100, 5)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/books/1", nil, 0)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.books.GetBook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Book models.Book `json:"book"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, book.Title, resp.Book.Title)

	_, c = env.doJSONRequest(http.MethodGet, "/api/books/999", nil, 0)
	c.SetParamNames("id")
	c.SetParamValues("999")
	requireStatus(t, env.books.GetBook(c), http.StatusNotFound, "not found")
}
