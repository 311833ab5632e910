package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcopiovanello/songify/server/config"
	middlewares "github.com/marcopiovanello/songify/server/middleware"
)

func TestLogin(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	auth := &config.Instance().Authentication
	auth.Username = "admin"
	auth.PasswordHash = hash
	auth.JWTSecret = "test-secret"

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"username":"admin","password":"hunter2"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"wrong user", `{"username":"root","password":"hunter2"}`, http.StatusUnauthorized},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want != http.StatusOK {
				return
			}

			var res LoginResponse
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatal(err)
			}
			if sub, err := middlewares.ValidateToken(res.Token, []byte("test-secret")); err != nil || sub != "admin" {
				t.Errorf("unexpected token: %q %v", sub, err)
			}
			if len(rec.Result().Cookies()) != 1 {
				t.Error("expected the session cookie")
			}
		})
	}
}
