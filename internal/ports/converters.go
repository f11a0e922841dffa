package ports

import (
	"github.com/moffittboard/moffittboard/internal/domain"
)

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	DisplayName *string `json:"displayName"`
	TimeSpent   int64   `json:"timeSpent"`
	IsCheckedIn bool    `json:"isCheckedIn"`
	// Milliseconds since the epoch
	CheckInTime *int64 `json:"checkInTime"`
}

type leaderboardEntryResponse struct {
	userResponse
	Rank                  int    `json:"rank"`
	Label                 string `json:"label"`
	CurrentSessionMinutes int64  `json:"currentSessionMinutes"`
}

type meResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
	Rank    int          `json:"rank"`
}

type userUpdateResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

type leaderboardResponse struct {
	Success     bool                       `json:"success"`
	Entries     []leaderboardEntryResponse `json:"entries"`
	GeneratedAt int64                      `json:"generatedAt"`
}

func userToResponse(user domain.User) userResponse {
	var checkInTime *int64
	if user.CheckInTime != nil {
		millis := user.CheckInTime.UnixMilli()
		checkInTime = &millis
	}

	var displayName *string
	if user.DisplayName != nil {
		name := *user.DisplayName
		displayName = &name
	}

	return userResponse{
		ID:          user.UserID,
		Email:       user.Email,
		Name:        user.Name,
		DisplayName: displayName,
		TimeSpent:   user.TimeSpentMinutes,
		IsCheckedIn: user.IsCheckedIn,
		CheckInTime: checkInTime,
	}
}

func leaderboardToResponse(leaderboard domain.Leaderboard) leaderboardResponse {
	entries := make([]leaderboardEntryResponse, 0, len(leaderboard.Entries))
	for _, entry := range leaderboard.Entries {
		entries = append(entries, leaderboardEntryResponse{
			userResponse:          userToResponse(entry.User),
			Rank:                  entry.Rank,
			Label:                 entry.User.Label(),
			CurrentSessionMinutes: domain.CurrentSessionMinutes(entry.User, leaderboard.GeneratedAt),
		})
	}

	return leaderboardResponse{
		Success:     true,
		Entries:     entries,
		GeneratedAt: leaderboard.GeneratedAt.UnixMilli(),
	}
}
