package userrepository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
)

// Memory keeps all records in process memory
//
// Used for local development and tests. A single mutex serializes every operation.
type Memory struct {
	mu          sync.Mutex
	users       map[string]domain.User
	lastResetAt *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]domain.User),
	}
}

func (m *Memory) GetOrCreateUser(ctx context.Context, user domain.User) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[user.UserID]; ok {
		return existing.Clone(), false, nil
	}

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return domain.User{}, false, fmt.Errorf("%w: email already belongs to another account", domain.ErrEmailNotAllowed)
		}
	}

	m.users[user.UserID] = user.Clone()
	return user.Clone(), true, nil
}

func (m *Memory) GetUser(ctx context.Context, userID string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user.Clone())
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.UserID, b.UserID),
		)
	})
	return users, nil
}

func (m *Memory) UpdateUser(ctx context.Context, userID string, update func(domain.User) (domain.User, error)) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	updated, err := update(user.Clone())
	if err != nil {
		return domain.User{}, err
	}
	if updated.UserID != userID {
		return domain.User{}, fmt.Errorf("%w: update changed the user id", domain.ErrStoreFailure)
	}

	// Only the mutable fields are written, same as the postgres store
	user.DisplayName = updated.DisplayName
	user.TimeSpentMinutes = updated.TimeSpentMinutes
	user.IsCheckedIn = updated.IsCheckedIn
	user.CheckInTime = updated.CheckInTime
	user = user.Clone()

	m.users[userID] = user
	return user.Clone(), nil
}

func (m *Memory) GetLastResetAt(ctx context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastResetAt == nil {
		return nil, nil
	}
	lastResetAt := *m.lastResetAt
	return &lastResetAt, nil
}

func (m *Memory) ResetIfDue(ctx context.Context, now time.Time, isDue func(lastResetAt *time.Time) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastResetAt *time.Time
	if m.lastResetAt != nil {
		t := *m.lastResetAt
		lastResetAt = &t
	}
	if !isDue(lastResetAt) {
		return false, nil
	}

	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	for _, user := range domain.ApplyReset(users) {
		m.users[user.UserID] = user
	}
	m.lastResetAt = &now

	return true, nil
}

var _ UserRepository = (*Memory)(nil)
