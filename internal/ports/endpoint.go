package ports

import (
	"log/slog"
	"net/http"

	"github.com/moffittboard/moffittboard/internal/adapters/identityprovider"
	"github.com/moffittboard/moffittboard/internal/identity"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/ratelimiting"
	"github.com/moffittboard/moffittboard/internal/reporting"
)

type endpointLimits struct {
	ipRefillPerSecond   ratelimiting.RefillPerSecond
	ipBurstSize         ratelimiting.BurstSize
	userRefillPerSecond ratelimiting.RefillPerSecond
	userBurstSize       ratelimiting.BurstSize
}

var readLimits = endpointLimits{
	ipRefillPerSecond:   4,
	ipBurstSize:         80,
	userRefillPerSecond: 1,
	userBurstSize:       30,
}

var writeLimits = endpointLimits{
	ipRefillPerSecond:   2,
	ipBurstSize:         40,
	userRefillPerSecond: 1,
	userBurstSize:       10,
}

func makeOnLimitExceeded(rateLimiter ratelimiting.RequestRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		statusCode := http.StatusTooManyRequests

		logger.InfoContext(ctx, "Rate limit exceeded", "statusCode", statusCode, "reason", "ratelimit exceeded", "key", rateLimiter.KeyFor(r))

		writeErrorResponse(ctx, w, statusCode, "rate limit exceeded")
	}
}

func onUnauthenticated(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(r.Context(), w, http.StatusUnauthorized, "unauthenticated")
}

// Build the middleware chain shared by every authenticated endpoint
func buildEndpointMiddleware(
	name string,
	limits endpointLimits,
	identityProvider identityprovider.IdentityProvider,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) func(http.HandlerFunc) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		limits.ipRefillPerSecond,
		limits.ipBurstSize,
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)
	userIDLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		limits.userRefillPerSecond,
		limits.userBurstSize,
	)
	userIDRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		userIDLimiter,
		ratelimiting.UserIDKeyFunc,
	)

	return ComposeMiddlewares(
		buildMetricsMiddleware(name),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware(name),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
		NewAuthMiddleware(identityProvider, onUnauthenticated),
		NewRateLimitMiddleware(userIDRateLimiter, makeOnLimitExceeded(userIDRateLimiter)),
	)
}

// The auth middleware guarantees an identity, this only guards against miswiring
func identityFromRequest(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		onUnauthenticated(w, r)
		return identity.Identity{}, false
	}
	return id, true
}
