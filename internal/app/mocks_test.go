package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/moffittboard/moffittboard/internal/adapters/userrepository"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fails every call with a store failure
type failingRepository struct{}

func (failingRepository) err() error {
	return fmt.Errorf("%w: %w", domain.ErrStoreFailure, assert.AnError)
}

func (r failingRepository) GetOrCreateUser(ctx context.Context, user domain.User) (domain.User, bool, error) {
	return domain.User{}, false, r.err()
}

func (r failingRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return nil, r.err()
}

func (r failingRepository) UpdateUser(ctx context.Context, userID string, update func(domain.User) (domain.User, error)) (domain.User, error) {
	return domain.User{}, r.err()
}

func (r failingRepository) GetLastResetAt(ctx context.Context) (*time.Time, error) {
	return nil, r.err()
}

func (r failingRepository) ResetIfDue(ctx context.Context, now time.Time, isDue func(lastResetAt *time.Time) bool) (bool, error) {
	return false, r.err()
}

// Counts calls to ListUsers on a memory repository
type countingRepository struct {
	*userrepository.Memory

	listUsersCalls int
}

func (r *countingRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	r.listUsersCalls++
	return r.Memory.ListUsers(ctx)
}

func seedUsers(t *testing.T, repo userrepository.UserRepository, users ...domain.User) {
	t.Helper()
	for _, user := range users {
		_, created, err := repo.GetOrCreateUser(t.Context(), user)
		require.NoError(t, err)
		require.True(t, created)
	}
}
