package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mapmystandards/a3e/pkg/composables"
	"github.com/mapmystandards/a3e/pkg/configuration"
	"github.com/mapmystandards/a3e/pkg/httpapi"
)

// Authorize rejects requests whose bearer token does not match one of the
// configured API tokens. With no tokens configured every request is rejected;
// the import surface has no unauthenticated path.
func Authorize() mux.MiddlewareFunc {
	conf := configuration.Use()
	return AuthorizeTokens(conf.Auth.Tokens())
}

func AuthorizeTokens(tokens []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || !tokenAccepted(token, tokens) {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "STD_UNAUTHORIZED", "missing or invalid credentials", nil)
				return
			}

			params, ok := composables.UseParams(r.Context())
			if ok {
				params.Authenticated = true
				next.ServeHTTP(w, r)
				return
			}
			ctx := composables.WithParams(r.Context(), &composables.Params{
				IP:            r.RemoteAddr,
				UserAgent:     r.UserAgent(),
				Authenticated: true,
				Request:       r,
				Writer:        w,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenAccepted(token string, tokens []string) bool {
	accepted := false
	for _, candidate := range tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			accepted = true
		}
	}
	return accepted
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}
