package app

import (
	"context"
	"fmt"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
)

type GetLeaderboard func(ctx context.Context) (domain.Leaderboard, error)

type GetUserRank func(ctx context.Context, userID string) (int, error)

func BuildGetLeaderboard(
	repo userLister,
	usersCache UsersCache,
	resetLeaderboardIfDue ResetLeaderboardIfDue,
	nowFunc func() time.Time,
) GetLeaderboard {
	return func(ctx context.Context) (domain.Leaderboard, error) {
		_, err := resetLeaderboardIfDue(ctx)
		if err != nil {
			// A stale board is better than no board, the periodic check will retry
			logging.FromContext(ctx).ErrorContext(ctx, "Failed to reset leaderboard", "error", err)
		}

		users, err := getUsers(ctx, repo, usersCache)
		if err != nil {
			return domain.Leaderboard{}, fmt.Errorf("failed to get users: %w", err)
		}

		return domain.NewLeaderboard(users, nowFunc()), nil
	}
}

// Unknown users get the worst rank, one past the last user
func BuildGetUserRank(repo userLister, usersCache UsersCache) GetUserRank {
	return func(ctx context.Context, userID string) (int, error) {
		users, err := getUsers(ctx, repo, usersCache)
		if err != nil {
			return 0, fmt.Errorf("failed to get users: %w", err)
		}

		return domain.Rank(userID, users), nil
	}
}
