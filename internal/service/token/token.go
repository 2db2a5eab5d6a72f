package token

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// TokenTTL matches the gateway-facing storefront: sessions are stateless and
// simply expire; there is no revocation list.
const TokenTTL = 7 * 24 * time.Hour

func Sign(userID uint, email string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(TokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// UserID extracts the authenticated user id from the Authorization header.
// Failures map to 401 echo errors so handlers can return them directly.
func UserID(c echo.Context, secret []byte) (uint, error) {
	authorization := c.Request().Header.Get(echo.HeaderAuthorization)
	if authorization == "" || !strings.HasPrefix(authorization, "Bearer ") {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	raw := strings.TrimPrefix(authorization, "Bearer ")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}

	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	subRaw, ok := claims["sub"].(float64)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	return uint(subRaw), nil
}
