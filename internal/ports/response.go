package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/reporting"
)

// Request bodies are tiny
const maxRequestBodyBytes = 4096

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, response any) {
	marshalled, err := json.Marshal(response)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))
		statusCode = http.StatusInternalServerError
		marshalled = []byte(`{"success":false,"cause":"internal server error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(marshalled)
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, cause string) {
	writeJSON(ctx, w, statusCode, errorResponse{Success: false, Cause: cause})
}

// Map an error from a use case to a status code and a cause safe to show the client
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrEmailNotAllowed):
		return http.StatusForbidden, "email not allowed"
	case errors.Is(err, domain.ErrOutsideGeofence):
		return http.StatusForbidden, "outside geofence"
	case errors.Is(err, domain.ErrLocationRequired):
		return http.StatusBadRequest, "location required"
	case errors.Is(err, domain.ErrInvalidDisplayName):
		return http.StatusBadRequest, "invalid display name"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid transition"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrStoreFailure):
		return http.StatusServiceUnavailable, "temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func handleUseCaseError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode, cause := errorStatus(err)
	if statusCode == http.StatusInternalServerError {
		reporting.Report(ctx, fmt.Errorf("unexpected use case error: %w", err))
	} else {
		// NOTE: Store failures are reported by the repository
		logging.FromContext(ctx).InfoContext(ctx, "Request failed", "statusCode", statusCode, "cause", cause, "error", err)
	}
	writeErrorResponse(ctx, w, statusCode, cause)
}
