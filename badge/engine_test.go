package badge

import (
	"fmt"
	"testing"
	"time"

	"pawcademy/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []model.Badge {
	return []model.Badge{
		{
			Code: "first-lesson", Name: "First Lesson", Points: 10,
			Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 1},
		},
		{
			Code: "fifty-lessons", Name: "Fifty Lessons", Points: 100,
			Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 50},
		},
		{
			Code: "hidden-level", Name: "Hidden", Points: 500, IsSecret: true,
			Requirement: model.Requirement{Metric: model.MetricLevel, Threshold: 10},
		},
	}
}

func TestEvaluateBelowThresholdFiresNothing(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 49, Level: 1}
	unlocked := map[string]bool{"first-lesson": true}

	newly := Evaluate(ledger, testCatalog(), unlocked)
	assert.Empty(t, newly)
}

func TestEvaluateFiresAtThreshold(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 50, Level: 1}
	unlocked := map[string]bool{"first-lesson": true}

	newly := Evaluate(ledger, testCatalog(), unlocked)
	require.Len(t, newly, 1)
	assert.Equal(t, "fifty-lessons", newly[0].Code)
}

func TestEvaluateSkipsAlreadyUnlocked(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 50, Level: 1}
	unlocked := map[string]bool{"first-lesson": true, "fifty-lessons": true}

	newly := Evaluate(ledger, testCatalog(), unlocked)
	assert.Empty(t, newly)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 3, Level: 1}
	unlocked := map[string]bool{}

	first := Evaluate(ledger, testCatalog(), unlocked)
	second := Evaluate(ledger, testCatalog(), unlocked)
	assert.Equal(t, first, second)
}

func TestEvaluateReturnsCatalogOrder(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 60, Level: 10}

	newly := Evaluate(ledger, testCatalog(), map[string]bool{})
	require.Len(t, newly, 3)
	assert.Equal(t, "first-lesson", newly[0].Code)
	assert.Equal(t, "fifty-lessons", newly[1].Code)
	assert.Equal(t, "hidden-level", newly[2].Code)
}

// persistInMemory fakes the durable unlock: bump the badge counter, grant
// the reward points.
func persistInMemory(state *model.Ledger) UnlockFunc {
	return func(b model.Badge) (model.Ledger, bool, error) {
		state.TotalBadges++
		state.TotalPoints += b.Points
		state.ExperiencePoints += b.Points
		return *state, true, nil
	}
}

// A meta-badge keyed off badges_earned must cascade to a fixed point.
func TestRunUnlocksCascadesMetaBadge(t *testing.T) {
	catalog := []model.Badge{
		{Code: "one-lesson", Points: 10, Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 1}},
		{Code: "ten-points", Points: 10, Requirement: model.Requirement{Metric: model.MetricTotalPoints, Threshold: 10}},
		{Code: "two-badges", Points: 10, Requirement: model.Requirement{Metric: model.MetricBadgesEarned, Threshold: 2}},
	}
	state := model.Ledger{LessonsCompleted: 1, Level: 1}

	final, all, err := RunUnlocks(state, catalog, map[string]bool{}, persistInMemory(&state))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "two-badges", all[2].Code)
	assert.Equal(t, 3, final.TotalBadges)
	assert.Equal(t, 30, final.TotalPoints)
}

// A chain of meta-badges longer than the iteration cap cannot converge; it
// must surface the configuration error instead of spinning.
func TestRunUnlocksCapsRunawayCascade(t *testing.T) {
	catalog := []model.Badge{
		{Code: "trigger", Points: 5, Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 1}},
	}
	for i := 1; i <= MaxUnlockIterations+1; i++ {
		catalog = append(catalog, model.Badge{
			Code: fmt.Sprintf("chain-%d", i), Points: 5,
			Requirement: model.Requirement{Metric: model.MetricBadgesEarned, Threshold: i},
		})
	}
	state := model.Ledger{LessonsCompleted: 1, Level: 1}

	_, all, err := RunUnlocks(state, catalog, map[string]bool{}, persistInMemory(&state))
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.NotEmpty(t, all)
}

// inserted=false (a concurrent unlock) must mark the badge as handled
// without granting the reward again.
func TestRunUnlocksSkipsConcurrentInsert(t *testing.T) {
	catalog := []model.Badge{
		{Code: "one-lesson", Points: 10, Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 1}},
	}
	ledger := model.Ledger{LessonsCompleted: 1, Level: 1}
	unlocked := map[string]bool{}

	final, all, err := RunUnlocks(ledger, catalog, unlocked, func(b model.Badge) (model.Ledger, bool, error) {
		return model.Ledger{}, false, nil
	})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, unlocked["one-lesson"])
	assert.Equal(t, ledger, final)
}

func TestProgressFor(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 25}
	b := testCatalog()[1] // threshold 50

	pct, ok := ProgressFor(ledger, b)
	require.True(t, ok)
	assert.Equal(t, 50, pct)
}

func TestProgressForClampsAt100(t *testing.T) {
	ledger := model.Ledger{LessonsCompleted: 500}

	pct, ok := ProgressFor(ledger, testCatalog()[1])
	require.True(t, ok)
	assert.Equal(t, 100, pct)
}

func TestProgressForSecretBadgeHidden(t *testing.T) {
	ledger := model.Ledger{Level: 9}

	_, ok := ProgressFor(ledger, testCatalog()[2])
	assert.False(t, ok)
}

func TestUnlockTrend(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	t.Run("up", func(t *testing.T) {
		times := []time.Time{now.Add(-1 * day), now.Add(-2 * day), now.Add(-10 * day)}
		assert.Equal(t, TrendUp, UnlockTrend(times, now))
	})

	t.Run("down", func(t *testing.T) {
		times := []time.Time{now.Add(-8 * day), now.Add(-9 * day), now.Add(-3 * day)}
		assert.Equal(t, TrendDown, UnlockTrend(times, now))
	})

	t.Run("tie is stable", func(t *testing.T) {
		times := []time.Time{now.Add(-2 * day), now.Add(-9 * day)}
		assert.Equal(t, TrendStable, UnlockTrend(times, now))
	})

	t.Run("no unlocks is stable", func(t *testing.T) {
		assert.Equal(t, TrendStable, UnlockTrend(nil, now))
	})

	t.Run("old and future timestamps ignored", func(t *testing.T) {
		times := []time.Time{now.Add(-20 * day), now.Add(1 * day)}
		assert.Equal(t, TrendStable, UnlockTrend(times, now))
	})
}
