package app

import (
	"context"
	"fmt"

	"github.com/moffittboard/moffittboard/internal/domain"
)

type SetDisplayName func(ctx context.Context, userID string, displayName string) (domain.User, error)

// An empty (after trimming) display name clears it
func BuildSetDisplayName(repo userUpdater, usersCache UsersCache) SetDisplayName {
	return func(ctx context.Context, userID string, displayName string) (domain.User, error) {
		normalized, err := domain.NormalizeDisplayName(displayName)
		if err != nil {
			return domain.User{}, err
		}

		user, err := repo.UpdateUser(ctx, userID, func(user domain.User) (domain.User, error) {
			user.DisplayName = normalized
			return user, nil
		})
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to set display name: %w", err)
		}

		invalidateUsers(usersCache)

		return user, nil
	}
}
