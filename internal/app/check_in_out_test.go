package app_test

import (
	"testing"
	"time"

	"github.com/moffittboard/moffittboard/internal/adapters/cache"
	"github.com/moffittboard/moffittboard/internal/adapters/userrepository"
	"github.com/moffittboard/moffittboard/internal/app"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/domaintest"
	"github.com/stretchr/testify/require"
)

func TestCheckInCheckOut(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, time.September, 2, 18, 0, 0, 0, time.UTC)
	createdAt := t0.Add(-24 * time.Hour)

	t.Run("session credits whole minutes", func(t *testing.T) {
		t.Parallel()

		repo := userrepository.NewMemory()
		seedUsers(t, repo, domaintest.NewUserBuilder("user-1", createdAt).WithTimeSpent(10).Build())

		now := t0
		nowFunc := func() time.Time { return now }
		usersCache := cache.NewBasicCache[[]domain.User]()
		checkIn := app.BuildCheckIn(repo, usersCache, nil, nowFunc)
		checkOut := app.BuildCheckOut(repo, usersCache, nowFunc)

		user, err := checkIn(t.Context(), "user-1", nil)
		require.NoError(t, err)
		require.True(t, user.IsCheckedIn)
		require.Equal(t, t0, *user.CheckInTime)
		require.Equal(t, int64(10), user.TimeSpentMinutes)

		now = t0.Add(150 * time.Second)
		user, err = checkOut(t.Context(), "user-1")
		require.NoError(t, err)
		require.False(t, user.IsCheckedIn)
		require.Nil(t, user.CheckInTime)
		require.Equal(t, int64(12), user.TimeSpentMinutes)

		stored, err := repo.GetUser(t.Context(), "user-1")
		require.NoError(t, err)
		require.Equal(t, user, stored)
	})

	t.Run("invalid transitions", func(t *testing.T) {
		t.Parallel()

		repo := userrepository.NewMemory()
		seedUsers(t, repo,
			domaintest.NewUserBuilder("in", createdAt).WithTimeSpent(5).WithCheckIn(t0).Build(),
			domaintest.NewUserBuilder("out", createdAt).WithTimeSpent(5).Build(),
		)

		nowFunc := func() time.Time { return t0.Add(time.Hour) }
		usersCache := cache.NewBasicCache[[]domain.User]()
		checkIn := app.BuildCheckIn(repo, usersCache, nil, nowFunc)
		checkOut := app.BuildCheckOut(repo, usersCache, nowFunc)

		_, err := checkIn(t.Context(), "in", nil)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = checkOut(t.Context(), "out")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		// Nothing was written
		in, err := repo.GetUser(t.Context(), "in")
		require.NoError(t, err)
		require.True(t, in.IsCheckedIn)
		require.Equal(t, t0, *in.CheckInTime)

		out, err := repo.GetUser(t.Context(), "out")
		require.NoError(t, err)
		require.False(t, out.IsCheckedIn)
		require.Equal(t, int64(5), out.TimeSpentMinutes)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		repo := userrepository.NewMemory()
		nowFunc := func() time.Time { return t0 }
		usersCache := cache.NewBasicCache[[]domain.User]()

		_, err := app.BuildCheckIn(repo, usersCache, nil, nowFunc)(t.Context(), "nobody", nil)
		require.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = app.BuildCheckOut(repo, usersCache, nowFunc)(t.Context(), "nobody")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("clock skew credits nothing", func(t *testing.T) {
		t.Parallel()

		repo := userrepository.NewMemory()
		seedUsers(t, repo, domaintest.NewUserBuilder("user-1", createdAt).WithTimeSpent(7).WithCheckIn(t0).Build())

		checkOut := app.BuildCheckOut(repo, cache.NewBasicCache[[]domain.User](), func() time.Time {
			return t0.Add(-5 * time.Minute)
		})

		user, err := checkOut(t.Context(), "user-1")
		require.NoError(t, err)
		require.False(t, user.IsCheckedIn)
		require.Equal(t, int64(7), user.TimeSpentMinutes)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		nowFunc := func() time.Time { return t0 }
		usersCache := cache.NewBasicCache[[]domain.User]()

		_, err := app.BuildCheckIn(failingRepository{}, usersCache, nil, nowFunc)(t.Context(), "user-1", nil)
		require.ErrorIs(t, err, domain.ErrStoreFailure)

		_, err = app.BuildCheckOut(failingRepository{}, usersCache, nowFunc)(t.Context(), "user-1")
		require.ErrorIs(t, err, domain.ErrStoreFailure)
	})

	t.Run("check-ins invalidate the cached snapshot", func(t *testing.T) {
		t.Parallel()

		repo := &countingRepository{Memory: userrepository.NewMemory()}
		seedUsers(t, repo, domaintest.NewUserBuilder("user-1", createdAt).Build())

		nowFunc := func() time.Time { return t0 }
		usersCache := cache.NewBasicCache[[]domain.User]()
		getUserRank := app.BuildGetUserRank(repo, usersCache)
		checkIn := app.BuildCheckIn(repo, usersCache, nil, nowFunc)

		_, err := getUserRank(t.Context(), "user-1")
		require.NoError(t, err)
		_, err = getUserRank(t.Context(), "user-1")
		require.NoError(t, err)
		require.Equal(t, 1, repo.listUsersCalls)

		_, err = checkIn(t.Context(), "user-1", nil)
		require.NoError(t, err)

		_, err = getUserRank(t.Context(), "user-1")
		require.NoError(t, err)
		require.Equal(t, 2, repo.listUsersCalls)
	})
}

func TestCheckInGeofence(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, time.September, 2, 18, 0, 0, 0, time.UTC)
	library, err := domain.NewGeofence(domain.Coordinates{Latitude: 37.8725, Longitude: -122.2608}, 100)
	require.NoError(t, err)

	inside := domain.Coordinates{Latitude: 37.8727, Longitude: -122.2600}
	farAway := domain.Coordinates{Latitude: 37.4275, Longitude: -122.1697}
	invalid := domain.Coordinates{Latitude: 91, Longitude: 0}

	cases := []struct {
		name     string
		geofence *domain.Geofence
		location *domain.Coordinates
		err      error
	}{
		{name: "no geofence, no location", geofence: nil, location: nil},
		{name: "no geofence, any location", geofence: nil, location: &farAway},
		{name: "inside", geofence: &library, location: &inside},
		{name: "missing location", geofence: &library, location: nil, err: domain.ErrLocationRequired},
		{name: "invalid location", geofence: &library, location: &invalid, err: domain.ErrLocationRequired},
		{name: "outside", geofence: &library, location: &farAway, err: domain.ErrOutsideGeofence},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			repo := userrepository.NewMemory()
			seedUsers(t, repo, domaintest.NewUserBuilder("user-1", t0).Build())

			checkIn := app.BuildCheckIn(repo, cache.NewBasicCache[[]domain.User](), c.geofence, func() time.Time { return t0 })

			user, err := checkIn(t.Context(), "user-1", c.location)
			if c.err != nil {
				require.ErrorIs(t, err, c.err)

				stored, err := repo.GetUser(t.Context(), "user-1")
				require.NoError(t, err)
				require.False(t, stored.IsCheckedIn)
				return
			}
			require.NoError(t, err)
			require.True(t, user.IsCheckedIn)
		})
	}
}
