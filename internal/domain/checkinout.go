package domain

import (
	"fmt"
	"time"
)

type CheckInState int

const (
	CheckedOut CheckInState = iota
	CheckedIn
)

func (s CheckInState) String() string {
	switch s {
	case CheckedOut:
		return "checked out"
	case CheckedIn:
		return "checked in"
	}
	return fmt.Sprintf("CheckInState(%d)", int(s))
}

// CheckIn opens a session for the user at now.
//
// The returned user is a new snapshot; the input is left untouched.
func CheckIn(user User, now time.Time) (User, error) {
	if user.State() != CheckedOut {
		return User{}, fmt.Errorf("%w: cannot check in while %s", ErrInvalidTransition, user.State())
	}

	checkInTime := now
	updated := user.Clone()
	updated.IsCheckedIn = true
	updated.CheckInTime = &checkInTime

	return updated, nil
}

// CheckOut closes the user's open session at now and credits the elapsed
// whole minutes to the user's total.
func CheckOut(user User, now time.Time) (User, error) {
	if user.State() != CheckedIn {
		return User{}, fmt.Errorf("%w: cannot check out while %s", ErrInvalidTransition, user.State())
	}
	if user.CheckInTime == nil {
		return User{}, fmt.Errorf("%w: checked in without a check-in time", ErrInvalidTransition)
	}

	elapsed := ElapsedMinutes(*user.CheckInTime, now)

	updated := user.Clone()
	updated.IsCheckedIn = false
	updated.CheckInTime = nil
	updated.TimeSpentMinutes = NewTotal(user.TimeSpentMinutes, elapsed)

	return updated, nil
}
