package app

import (
	"context"
	"fmt"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
)

type CheckIn func(ctx context.Context, userID string, location *domain.Coordinates) (domain.User, error)

type CheckOut func(ctx context.Context, userID string) (domain.User, error)

func checkGeofence(geofence *domain.Geofence, location *domain.Coordinates) error {
	if geofence == nil {
		return nil
	}
	if location == nil {
		return domain.ErrLocationRequired
	}
	if err := location.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLocationRequired, err)
	}
	if !geofence.Contains(*location) {
		return fmt.Errorf("%w: %.0f meters from the library", domain.ErrOutsideGeofence, domain.DistanceMeters(geofence.Center, *location))
	}
	return nil
}

// geofence is optional, when set the caller's location must lie within it
func BuildCheckIn(
	repo userUpdater,
	usersCache UsersCache,
	geofence *domain.Geofence,
	nowFunc func() time.Time,
) CheckIn {
	return func(ctx context.Context, userID string, location *domain.Coordinates) (domain.User, error) {
		if err := checkGeofence(geofence, location); err != nil {
			return domain.User{}, err
		}

		now := nowFunc()
		user, err := repo.UpdateUser(ctx, userID, func(user domain.User) (domain.User, error) {
			return domain.CheckIn(user, now)
		})
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to check in: %w", err)
		}

		invalidateUsers(usersCache)
		logging.FromContext(ctx).InfoContext(ctx, "Checked in", "userID", userID)

		return user, nil
	}
}

func BuildCheckOut(
	repo userUpdater,
	usersCache UsersCache,
	nowFunc func() time.Time,
) CheckOut {
	return func(ctx context.Context, userID string) (domain.User, error) {
		now := nowFunc()

		var checkInTime time.Time
		var elapsedMinutes int64
		user, err := repo.UpdateUser(ctx, userID, func(user domain.User) (domain.User, error) {
			if user.CheckInTime != nil {
				checkInTime = *user.CheckInTime
				elapsedMinutes = domain.ElapsedMinutes(checkInTime, now)
			}
			return domain.CheckOut(user, now)
		})
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to check out: %w", err)
		}

		logger := logging.FromContext(ctx)
		if domain.IsClockSkewed(checkInTime, now) {
			logger.WarnContext(
				ctx,
				"Check-in time is after check-out time, crediting 0 minutes",
				"userID", userID,
				"checkInTime", checkInTime,
				"checkOutTime", now,
			)
		}

		invalidateUsers(usersCache)
		logger.InfoContext(ctx, "Checked out", "userID", userID, "elapsedMinutes", elapsedMinutes)

		return user, nil
	}
}
