package app

import (
	"context"
	"fmt"
	"time"

	"github.com/moffittboard/moffittboard/internal/adapters/cache"
	"github.com/moffittboard/moffittboard/internal/domain"
)

// All users are cached under one key, the leaderboard is derived from the snapshot
const usersCacheKey = "users"

type UsersCache = cache.Cache[[]domain.User]

type userLister interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type userUpdater interface {
	UpdateUser(ctx context.Context, userID string, update func(domain.User) (domain.User, error)) (domain.User, error)
}

type resetRepository interface {
	GetLastResetAt(ctx context.Context) (*time.Time, error)
	ResetIfDue(ctx context.Context, now time.Time, isDue func(lastResetAt *time.Time) bool) (bool, error)
}

func getUsers(ctx context.Context, repo userLister, usersCache UsersCache) ([]domain.User, error) {
	users, _, err := cache.GetOrCreate(ctx, usersCache, usersCacheKey, func() ([]domain.User, error) {
		return repo.ListUsers(ctx)
	})
	if err != nil {
		// NOTE: The repository handles its own error reporting
		return nil, fmt.Errorf("failed to cache.GetOrCreate users: %w", err)
	}
	return users, nil
}

func invalidateUsers(usersCache UsersCache) {
	cache.Invalidate(usersCache, usersCacheKey)
}
