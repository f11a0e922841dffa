package domain

import "errors"

var (
	ErrInvalidTransition  = errors.New("invalid check-in transition")
	ErrUserNotFound       = errors.New("user not found")
	ErrStoreFailure       = errors.New("record store failure")
	ErrOutsideGeofence    = errors.New("location is outside the geofence")
	ErrLocationRequired   = errors.New("location is required")
	ErrEmailNotAllowed    = errors.New("email is not allowed")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrUnauthenticated    = errors.New("unauthenticated")
)
