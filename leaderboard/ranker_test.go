package leaderboard

import (
	"testing"
	"time"

	"pawcademy/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByPointsDescending(t *testing.T) {
	rows := []PeriodScore{
		{UserID: "charlie", Points: 50},
		{UserID: "alice", Points: 300},
		{UserID: "bob", Points: 120},
	}

	entries := Rank(rows)
	require.Len(t, entries, 3)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "bob", entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "charlie", entries[2].UserID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestRankBreaksTiesByUserID(t *testing.T) {
	rows := []PeriodScore{
		{UserID: "zoe", Points: 100},
		{UserID: "amy", Points: 100},
	}

	entries := Rank(rows)
	require.Len(t, entries, 2)
	assert.Equal(t, "amy", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "zoe", entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestRankIgnoresInputOrder(t *testing.T) {
	a := []PeriodScore{{UserID: "u1", Points: 10}, {UserID: "u2", Points: 20}}
	b := []PeriodScore{{UserID: "u2", Points: 20}, {UserID: "u1", Points: 10}}

	assert.Equal(t, Rank(a), Rank(b))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	rows := []PeriodScore{{UserID: "u1", Points: 10}, {UserID: "u2", Points: 20}}

	Rank(rows)
	assert.Equal(t, "u1", rows[0].UserID)
}

func TestRankOf(t *testing.T) {
	entries := []model.LeaderboardEntry{
		{UserID: "alice", Rank: 1},
		{UserID: "bob", Rank: 2},
	}

	rank, ok := RankOf("bob", entries)
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	_, ok = RankOf("nobody", entries)
	assert.False(t, ok)
}

func TestWindowStartWeek(t *testing.T) {
	// 2026-03-12 is a Thursday; the ISO week starts Monday 2026-03-09.
	now := time.Date(2026, 3, 12, 15, 30, 0, 0, time.UTC)

	start, ok := WindowStart(model.PeriodThisWeek, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)
}

func TestWindowStartWeekOnMonday(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 1, 0, time.UTC)

	start, ok := WindowStart(model.PeriodThisWeek, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)
}

func TestWindowStartWeekOnSunday(t *testing.T) {
	now := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)

	start, ok := WindowStart(model.PeriodThisWeek, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)
}

func TestWindowStartMonth(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 30, 0, 0, time.UTC)

	start, ok := WindowStart(model.PeriodThisMonth, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestWindowStartAllTime(t *testing.T) {
	_, ok := WindowStart(model.PeriodAllTime, time.Now())
	assert.False(t, ok)
}
