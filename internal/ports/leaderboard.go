package ports

import (
	"log/slog"
	"net/http"

	"github.com/moffittboard/moffittboard/internal/adapters/identityprovider"
	"github.com/moffittboard/moffittboard/internal/app"
	"github.com/moffittboard/moffittboard/internal/logging"
)

func MakeGetLeaderboardHandler(
	getLeaderboard app.GetLeaderboard,
	identityProvider identityprovider.IdentityProvider,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware("leaderboard", readLimits, identityProvider, allowedOrigins, rootLogger, sentryMiddleware)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		leaderboard, err := getLeaderboard(ctx)
		if err != nil {
			handleUseCaseError(ctx, w, err)
			return
		}

		logging.FromContext(ctx).InfoContext(ctx, "Returning leaderboard", "entries", len(leaderboard.Entries))

		writeJSON(ctx, w, http.StatusOK, leaderboardToResponse(leaderboard))
	}

	return middleware(handler)
}
