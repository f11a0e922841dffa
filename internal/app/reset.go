package app

import (
	"context"
	"fmt"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
)

// Returns whether a reset was performed
type ResetLeaderboardIfDue func(ctx context.Context) (bool, error)

type ResetLeaderboard func(ctx context.Context) error

func BuildResetLeaderboardIfDue(
	repo resetRepository,
	usersCache UsersCache,
	policy domain.DailyResetPolicy,
	nowFunc func() time.Time,
) ResetLeaderboardIfDue {
	return func(ctx context.Context) (bool, error) {
		now := nowFunc()

		// Cheap check first, the repository checks again while holding its lock
		lastResetAt, err := repo.GetLastResetAt(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to get last reset: %w", err)
		}
		if !policy.IsResetDue(lastResetAt, now) {
			return false, nil
		}

		reset, err := repo.ResetIfDue(ctx, now, func(lastResetAt *time.Time) bool {
			return policy.IsResetDue(lastResetAt, now)
		})
		if err != nil {
			return false, fmt.Errorf("failed to reset leaderboard: %w", err)
		}
		if !reset {
			// Someone else got there first
			return false, nil
		}

		invalidateUsers(usersCache)
		logging.FromContext(ctx).InfoContext(
			ctx,
			"Reset leaderboard",
			"boundary", policy.MostRecentBoundary(now),
			"lastResetAt", lastResetAt,
		)

		return true, nil
	}
}

// Reset regardless of when the last reset happened
func BuildResetLeaderboard(
	repo resetRepository,
	usersCache UsersCache,
	nowFunc func() time.Time,
) ResetLeaderboard {
	return func(ctx context.Context) error {
		_, err := repo.ResetIfDue(ctx, nowFunc(), func(*time.Time) bool {
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to reset leaderboard: %w", err)
		}

		invalidateUsers(usersCache)
		logging.FromContext(ctx).InfoContext(ctx, "Reset leaderboard (forced)")

		return nil
	}
}
