package domain

import "time"

const millisPerMinute = int64(time.Minute / time.Millisecond)

// ElapsedMinutes returns the whole minutes between checkInTime and now.
//
// Both instants are truncated to millisecond precision before subtracting, and
// partial minutes are dropped. If now is before checkInTime the result is 0.
func ElapsedMinutes(checkInTime, now time.Time) int64 {
	elapsedMillis := now.UnixMilli() - checkInTime.UnixMilli()
	if elapsedMillis < 0 {
		return 0
	}
	return elapsedMillis / millisPerMinute
}

// IsClockSkewed reports whether now is before checkInTime, in which case
// ElapsedMinutes clamps the result to 0
func IsClockSkewed(checkInTime, now time.Time) bool {
	return now.UnixMilli() < checkInTime.UnixMilli()
}

func NewTotal(priorTotal, elapsedMinutes int64) int64 {
	if priorTotal < 0 {
		priorTotal = 0
	}
	if elapsedMinutes < 0 {
		elapsedMinutes = 0
	}
	return priorTotal + elapsedMinutes
}

// LiveTotal is the user's stored total plus the minutes accrued in the open
// session, if any. The open session is always measured from its original
// check-in time, so repeated calls never accumulate.
func LiveTotal(user User, now time.Time) int64 {
	return NewTotal(user.TimeSpentMinutes, CurrentSessionMinutes(user, now))
}

// CurrentSessionMinutes is the elapsed time of the user's open session, or 0
func CurrentSessionMinutes(user User, now time.Time) int64 {
	if !user.IsCheckedIn || user.CheckInTime == nil {
		return 0
	}
	return ElapsedMinutes(*user.CheckInTime, now)
}
