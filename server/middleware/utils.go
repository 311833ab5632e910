package middlewares

import (
	"net/http"

	"github.com/marcopiovanello/songify/server/config"
	"github.com/marcopiovanello/songify/server/openid"
)

func ApplyAuthenticationByConfig(next http.Handler) http.Handler {
	conf := config.Instance()

	if conf.OpenId.UseOpenId {
		return openid.Middleware(next)
	}
	if conf.Authentication.RequireAuth {
		return Authenticated(next)
	}
	return next
}
