package domain

import (
	"cmp"
	"slices"
	"time"
)

type LeaderboardEntry struct {
	Rank int
	User User
}

type Leaderboard struct {
	Entries     []LeaderboardEntry
	GeneratedAt time.Time
}

// sortByTimeSpent returns a copy of users ordered by time spent, highest first.
// Users with equal time keep their relative input order.
func sortByTimeSpent(users []User) []User {
	sorted := slices.Clone(users)
	slices.SortStableFunc(sorted, func(a, b User) int {
		return cmp.Compare(b.TimeSpentMinutes, a.TimeSpentMinutes)
	})
	return sorted
}

// RankUsers orders users by time spent, highest first, and numbers them from 1.
// Ties are broken by input order, so tied users get distinct ranks.
func RankUsers(users []User) []LeaderboardEntry {
	sorted := sortByTimeSpent(users)

	entries := make([]LeaderboardEntry, 0, len(sorted))
	for i, user := range sorted {
		entries = append(entries, LeaderboardEntry{
			Rank: i + 1,
			User: user,
		})
	}
	return entries
}

// Rank returns the 1-based rank of targetID among users.
//
// If targetID is not present the worst possible rank, len(users) + 1, is returned.
func Rank(targetID string, users []User) int {
	for i, user := range sortByTimeSpent(users) {
		if user.UserID == targetID {
			return i + 1
		}
	}
	return len(users) + 1
}

func NewLeaderboard(users []User, now time.Time) Leaderboard {
	return Leaderboard{
		Entries:     RankUsers(users),
		GeneratedAt: now,
	}
}
