package openid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/marcopiovanello/songify/server/config"
	"golang.org/x/oauth2"
)

var ErrNotConfigured = errors.New("openid provider not configured")

var (
	mu           sync.RWMutex
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	whitelist    []string
)

// Configure runs the provider discovery. It is a no-op unless
// openid.use_openid is set.
func Configure(ctx context.Context) error {
	conf := config.Instance().OpenId
	if !conf.UseOpenId {
		return nil
	}

	provider, err := oidc.NewProvider(ctx, conf.ProviderURL)
	if err != nil {
		return fmt.Errorf("openid discovery: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	oauth2Config = oauth2.Config{
		ClientID:     conf.ClientId,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier = provider.Verifier(&oidc.Config{
		ClientID: conf.ClientId,
	})

	whitelist = conf.EmailWhitelist

	return nil
}

func verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	mu.RLock()
	v := verifier
	mu.RUnlock()

	if v == nil {
		return nil, ErrNotConfigured
	}
	return v.Verify(ctx, raw)
}
