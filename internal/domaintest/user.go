package domaintest

import (
	"strings"
	"time"

	"github.com/moffittboard/moffittboard/internal/domain"
)

type userBuilder struct {
	user *domain.User
}

func (ub *userBuilder) WithEmail(email string) *userBuilder {
	ub.user.Email = email
	ub.user.Name, _, _ = strings.Cut(email, "@")
	return ub
}

func (ub *userBuilder) WithDisplayName(displayName string) *userBuilder {
	ub.user.DisplayName = &displayName
	return ub
}

func (ub *userBuilder) WithTimeSpent(minutes int64) *userBuilder {
	ub.user.TimeSpentMinutes = minutes
	return ub
}

func (ub *userBuilder) WithCheckIn(checkInTime time.Time) *userBuilder {
	ub.user.IsCheckedIn = true
	ub.user.CheckInTime = &checkInTime
	return ub
}

func (ub *userBuilder) Build() domain.User {
	user := *ub.user
	// Copy pointers, so further mutations to the builder don't affect the returned user
	if user.DisplayName != nil {
		displayName := *user.DisplayName
		user.DisplayName = &displayName
	}
	if user.CheckInTime != nil {
		checkInTime := *user.CheckInTime
		user.CheckInTime = &checkInTime
	}
	return user
}

func NewUserBuilder(userID string, createdAt time.Time) *userBuilder {
	email := userID + "@berkeley.edu"
	user := &domain.User{
		UserID:    userID,
		Email:     email,
		Name:      userID,
		CreatedAt: createdAt,
	}
	return &userBuilder{
		user: user,
	}
}
