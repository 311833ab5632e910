package openid

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
)

const (
	TokenCookieName = "oid-songify"
	stateCookieName = "oid-state"
)

var ErrEmailNotAllowed = errors.New("email not allowed")

func Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	mu.RLock()
	url := oauth2Config.AuthCodeURL(state)
	mu.RUnlock()

	http.Redirect(w, r, url, http.StatusFound)
}

// SignIn is the redirect target of the provider. It exchanges the code,
// verifies the id token and keeps it as the session cookie.
func SignIn(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	mu.RLock()
	cfg := oauth2Config
	mu.RUnlock()

	token, err := cfg.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusUnauthorized)
		return
	}

	idToken, err := verify(r.Context(), raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := checkEmail(idToken); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    raw,
		Path:     "/",
		Expires:  idToken.Expiry,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// Middleware accepts requests carrying a valid id token, either as the
// session cookie or as an Authorization bearer.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if cookie, err := r.Cookie(TokenCookieName); err == nil {
			raw = cookie.Value
		}

		if raw == "" {
			http.Error(w, "no id token provided", http.StatusUnauthorized)
			return
		}

		if _, err := verify(r.Context(), raw); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func checkEmail(idToken *oidc.IDToken) error {
	mu.RLock()
	allowed := whitelist
	mu.RUnlock()

	if len(allowed) == 0 {
		return nil
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return err
	}

	if !slices.Contains(allowed, claims.Email) {
		return ErrEmailNotAllowed
	}
	return nil
}
