// Package leaderboard ranks period-scoped point totals. Ranking is a pure
// function over an in-memory snapshot; the repository supplies the rows and
// the service caches rendered boards in Redis.
package leaderboard

import (
	"sort"
	"time"

	"pawcademy/model"
)

// PeriodScore is one user's point total for a reporting window plus the
// display fields copied from the ledger.
type PeriodScore struct {
	UserID           string `bson:"user_id" json:"userId"`
	Points           int    `bson:"points" json:"points"`
	Level            int    `bson:"level" json:"level"`
	TotalBadges      int    `bson:"total_badges" json:"totalBadges"`
	CoursesCompleted int    `bson:"courses_completed" json:"coursesCompleted"`
}

// Rank orders rows by descending points, ties broken by ascending user ID,
// and assigns 1-based contiguous ranks. Ties do not share a rank: the first
// tied entry by tiebreak gets the lower number. Input order is irrelevant
// and the input slice is not modified.
func Rank(rows []PeriodScore) []model.LeaderboardEntry {
	sorted := make([]PeriodScore, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	entries := make([]model.LeaderboardEntry, len(sorted))
	for i, row := range sorted {
		entries[i] = model.LeaderboardEntry{
			UserID:           row.UserID,
			Points:           row.Points,
			Level:            row.Level,
			TotalBadges:      row.TotalBadges,
			CoursesCompleted: row.CoursesCompleted,
			Rank:             i + 1,
		}
	}
	return entries
}

// RankOf locates a user's rank in a ranked slice, so callers holding the
// full board can answer rank queries for users outside a truncated top-N
// view. Returns ok=false when the user has no entry.
func RankOf(userID string, entries []model.LeaderboardEntry) (int, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e.Rank, true
		}
	}
	return 0, false
}

// WindowStart returns the UTC start of the reporting window and whether a
// window applies at all (all_time has none). Weeks are ISO weeks starting
// Monday 00:00 UTC; months are calendar months.
func WindowStart(period model.Period, now time.Time) (time.Time, bool) {
	now = now.UTC()
	switch period {
	case model.PeriodThisWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -daysSinceMonday), true
	case model.PeriodThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}
