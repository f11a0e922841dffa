package ports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/moffittboard/moffittboard/internal/adapters/identityprovider"
	"github.com/moffittboard/moffittboard/internal/app"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/reporting"
)

// An empty body means no location was sent
func parseLocation(body []byte) (*domain.Coordinates, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	request := struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}{}
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, fmt.Errorf("failed to parse request body: %w", err)
	}

	if request.Latitude == nil && request.Longitude == nil {
		return nil, nil
	}
	if request.Latitude == nil || request.Longitude == nil {
		return nil, fmt.Errorf("latitude and longitude must be sent together")
	}

	return &domain.Coordinates{
		Latitude:  *request.Latitude,
		Longitude: *request.Longitude,
	}, nil
}

func MakeCheckInHandler(
	checkIn app.CheckIn,
	identityProvider identityprovider.IdentityProvider,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware("check-in", writeLimits, identityProvider, allowedOrigins, rootLogger, sentryMiddleware)

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

		location, err := parseLocation(body)
		if err != nil {
			logging.FromContext(ctx).InfoContext(ctx, "Invalid check-in request", "error", err)
			writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}

		if location != nil {
			latitude := strconv.FormatFloat(location.Latitude, 'f', 6, 64)
			longitude := strconv.FormatFloat(location.Longitude, 'f', 6, 64)
			ctx = reporting.AddExtrasToContext(ctx, map[string]string{
				"latitude":  latitude,
				"longitude": longitude,
			})
			ctx = logging.AddMetaToContext(ctx,
				slog.String("latitude", latitude),
				slog.String("longitude", longitude),
			)
		}

		user, err := checkIn(ctx, id.Subject, location)
		if errors.Is(err, domain.ErrInvalidTransition) {
			logging.FromContext(ctx).InfoContext(ctx, "Check-in rejected", "error", err)
			writeErrorResponse(ctx, w, http.StatusConflict, "already checked in")
			return
		}
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

func MakeCheckOutHandler(
	checkOut app.CheckOut,
	identityProvider identityprovider.IdentityProvider,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware("check-out", writeLimits, identityProvider, allowedOrigins, rootLogger, sentryMiddleware)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := identityFromRequest(w, r)
		if !ok {
			return
		}

		user, err := checkOut(ctx, id.Subject)
		if errors.Is(err, domain.ErrInvalidTransition) {
			logging.FromContext(ctx).InfoContext(ctx, "Check-out rejected", "error", err)
			writeErrorResponse(ctx, w, http.StatusConflict, "not checked in")
			return
		}
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
