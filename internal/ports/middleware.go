package ports

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/moffittboard/moffittboard/internal/adapters/identityprovider"
	"github.com/moffittboard/moffittboard/internal/identity"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/ratelimiting"
	"github.com/moffittboard/moffittboard/internal/reporting"
)

func NewRateLimitMiddleware(rateLimiter ratelimiting.RequestRateLimiter, onLimitExceeded http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				onLimitExceeded(w, r)
				return
			}

			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Verify the bearer token and add the caller's identity to the request context
func NewAuthMiddleware(provider identityprovider.IdentityProvider, onUnauthenticated http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logging.FromContext(ctx).InfoContext(ctx, "Missing bearer token")
				onUnauthenticated(w, r)
				return
			}

			id, err := provider.Verify(ctx, token)
			if err != nil {
				logging.FromContext(ctx).InfoContext(ctx, "Invalid bearer token", "error", err)
				onUnauthenticated(w, r)
				return
			}

			ctx = identity.AddToContext(ctx, id)
			ctx = reporting.SetUserIDInContext(ctx, id.Subject)
			ctx = logging.AddMetaToContext(ctx, slog.String("userId", id.Subject))

			next(w, r.WithContext(ctx))
		}
	}
}

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}
