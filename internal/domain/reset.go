package domain

import (
	"fmt"
	"time"
)

// DailyResetPolicy decides when the leaderboard is reset.
//
// The boundary is a fixed time of day in a single reference location, never
// the caller's local time.
type DailyResetPolicy struct {
	location *time.Location
	hour     int
	minute   int
}

func NewDailyResetPolicy(location *time.Location, hour, minute int) (DailyResetPolicy, error) {
	if location == nil {
		return DailyResetPolicy{}, fmt.Errorf("reference location is nil")
	}
	if hour < 0 || hour > 23 {
		return DailyResetPolicy{}, fmt.Errorf("invalid boundary hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return DailyResetPolicy{}, fmt.Errorf("invalid boundary minute %d", minute)
	}
	return DailyResetPolicy{
		location: location,
		hour:     hour,
		minute:   minute,
	}, nil
}

func (p DailyResetPolicy) Location() *time.Location {
	return p.location
}

// MostRecentBoundary returns the latest reset boundary at or before now
func (p DailyResetPolicy) MostRecentBoundary(now time.Time) time.Time {
	local := now.In(p.location)
	year, month, day := local.Date()

	boundary := p.boundaryOn(year, month, day)
	if boundary.After(local) {
		// time.Date normalizes day 0 to the last day of the previous month
		boundary = p.boundaryOn(year, month, day-1)
	}
	return boundary
}

// boundaryOn returns the boundary on the given local date. A boundary that a
// DST gap skips falls on the instant the clock jumps.
func (p DailyResetPolicy) boundaryOn(year int, month time.Month, day int) time.Time {
	boundary := time.Date(year, month, day, p.hour, p.minute, 0, 0, p.location)

	wall := time.Date(year, month, day, p.hour, p.minute, 0, 0, time.UTC)
	actual := time.Date(boundary.Year(), boundary.Month(), boundary.Day(), boundary.Hour(), boundary.Minute(), 0, 0, time.UTC)
	if actual.Equal(wall) {
		return boundary
	}

	start, end := boundary.ZoneBounds()
	if actual.Before(wall) {
		return end
	}
	return start
}

// IsResetDue reports whether a reset should happen at now, given the time of
// the last reset. A nil lastResetAt means no reset has ever happened.
func (p DailyResetPolicy) IsResetDue(lastResetAt *time.Time, now time.Time) bool {
	if lastResetAt == nil {
		return true
	}
	return lastResetAt.Before(p.MostRecentBoundary(now))
}

// ApplyReset returns copies of all users with their time and session cleared.
//
// Open sessions are discarded without crediting their elapsed time.
func ApplyReset(users []User) []User {
	reset := make([]User, 0, len(users))
	for _, user := range users {
		updated := user.Clone()
		updated.TimeSpentMinutes = 0
		updated.IsCheckedIn = false
		updated.CheckInTime = nil
		reset = append(reset, updated)
	}
	return reset
}
