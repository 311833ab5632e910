package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marcopiovanello/songify/server/config"
)

const (
	TokenCookieName = "jwt-songify"
	tokenLifetime   = 30 * 24 * time.Hour
)

var ErrNoToken = errors.New("no auth token provided")

// Authenticated accepts a token from the X-Authentication header, the
// Authorization bearer, the token query parameter (websockets) or the
// session cookie.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			http.Error(w, ErrNoToken.Error(), http.StatusUnauthorized)
			return
		}

		if _, err := ValidateToken(raw, secret()); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewToken signs a token for username valid for 30 days.
func NewToken(username string, secret []byte) (string, time.Time, error) {
	expiresAt := time.Now().Add(tokenLifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken returns the subject of a valid, unexpired HMAC token.
func ValidateToken(raw string, secret []byte) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

func tokenFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Authentication"); v != "" {
		return v
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return v
	}
	if v := r.URL.Query().Get("token"); v != "" {
		return v
	}
	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

func secret() []byte {
	return []byte(config.Instance().Authentication.JWTSecret)
}
