package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marcopiovanello/songify/server/config"
)

func TestTokenRoundTrip(t *testing.T) {
	key := []byte("secret")

	token, expiresAt, err := NewToken("admin", key)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(expiresAt) < 29*24*time.Hour {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	sub, err := ValidateToken(token, key)
	if err != nil {
		t.Fatal(err)
	}
	if sub != "admin" {
		t.Errorf("expected admin, got %q", sub)
	}

	if _, err := ValidateToken(token, []byte("other")); err == nil {
		t.Error("expected a signature error")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	key := []byte("secret")
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateToken(expired, key); err == nil {
		t.Error("expected an expired token to be rejected")
	}
}

func TestAuthenticated(t *testing.T) {
	config.Instance().Authentication.JWTSecret = "test-secret"

	token, _, err := NewToken("admin", []byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	h := Authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  int
	}{
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"header", func(r *http.Request) { r.Header.Set("X-Authentication", token) }, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token}) }, http.StatusNoContent},
		{"garbage", func(r *http.Request) { r.Header.Set("X-Authentication", "garbage") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected the query token to be accepted, got %d", rec.Code)
	}
}
