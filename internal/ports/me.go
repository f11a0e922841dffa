package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/moffittboard/moffittboard/internal/adapters/identityprovider"
	"github.com/moffittboard/moffittboard/internal/app"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/reporting"
)

func MakeGetMeHandler(
	getOrCreateUser app.GetOrCreateUser,
	getUserRank app.GetUserRank,
	identityProvider identityprovider.IdentityProvider,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware("me", readLimits, identityProvider, allowedOrigins, rootLogger, sentryMiddleware)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := identityFromRequest(w, r)
		if !ok {
			return
		}

		user, err := getOrCreateUser(ctx, id)
		if err != nil {
			handleUseCaseError(ctx, w, err)
			return
		}

		rank, err := getUserRank(ctx, user.UserID)
		if err != nil {
			handleUseCaseError(ctx, w, err)
			return
		}

		logging.FromContext(ctx).InfoContext(ctx, "Returning user", "rank", rank)

		writeJSON(ctx, w, http.StatusOK, meResponse{
			Success: true,
			User:    userToResponse(user),
			Rank:    rank,
		})
	}

	return middleware(handler)
}

func MakeSetDisplayNameHandler(
	setDisplayName app.SetDisplayName,
	identityProvider identityprovider.IdentityProvider,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware("set-display-name", writeLimits, identityProvider, allowedOrigins, rootLogger, sentryMiddleware)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := identityFromRequest(w, r)
		if !ok {
			return
		}

		body, err := readBody(w, r)
		if err != nil {
			logging.FromContext(ctx).InfoContext(ctx, "Failed to read request body", "error", err)
			writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}

		request := struct {
			DisplayName *string `json:"displayName"`
		}{}
		err = json.Unmarshal(body, &request)
		if err != nil || request.DisplayName == nil {
			logging.FromContext(ctx).InfoContext(ctx, "Invalid display name request", "error", err)
			writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"displayNameLength": strconv.Itoa(utf8.RuneCountInString(*request.DisplayName)),
		})

		user, err := setDisplayName(ctx, id.Subject, *request.DisplayName)
		if err != nil {
			handleUseCaseError(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, userUpdateResponse{
			Success: true,
			User:    userToResponse(user),
		})
	}

	return middleware(handler)
}

var errBodyTooLarge = errors.New("request body too large")

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, maxBytesErr.Limit)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}
