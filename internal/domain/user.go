package domain

import (
	"time"
)

type User struct {
	UserID      string
	Email       string
	Name        string
	DisplayName *string

	TimeSpentMinutes int64
	IsCheckedIn      bool
	CheckInTime      *time.Time

	CreatedAt time.Time
}

// Label is the name shown on the leaderboard
func (u User) Label() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Name
}

func (u User) State() CheckInState {
	if u.IsCheckedIn {
		return CheckedIn
	}
	return CheckedOut
}

// Clone returns a copy of the user that shares no pointers with the original
func (u User) Clone() User {
	c := u
	if u.DisplayName != nil {
		displayName := *u.DisplayName
		c.DisplayName = &displayName
	}
	if u.CheckInTime != nil {
		checkInTime := *u.CheckInTime
		c.CheckInTime = &checkInTime
	}
	return c
}
