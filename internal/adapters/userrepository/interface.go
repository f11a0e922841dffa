package userrepository

import (
	"context"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
)

// UserRepository is the record store for users and the daily reset marker
//
// Store failures wrap domain.ErrStoreFailure. Lookups of unknown users return domain.ErrUserNotFound.
type UserRepository interface {
	// Insert the user unless a user with the same id exists. Returns the stored user and whether it was created.
	GetOrCreateUser(ctx context.Context, user domain.User) (domain.User, bool, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	// All users ordered by creation time
	ListUsers(ctx context.Context) ([]domain.User, error)
	// Read, update and write the user as one atomic step
	//
	// Errors returned by update are passed through unchanged and nothing is written.
	UpdateUser(ctx context.Context, userID string, update func(domain.User) (domain.User, error)) (domain.User, error)

	// nil if the leaderboard has never been reset
	GetLastResetAt(ctx context.Context) (*time.Time, error)
	// Atomically check isDue against the last reset and, if due, clear every user's time and session and store now as the last reset
	ResetIfDue(ctx context.Context, now time.Time, isDue func(lastResetAt *time.Time) bool) (bool, error)
}
