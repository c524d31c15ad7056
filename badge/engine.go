package badge

import (
	"fmt"
	"time"

	"pawcademy/model"
)

// MaxUnlockIterations caps the service's evaluate-unlock-apply loop. Badges
// that key off total_badges can cascade, so evaluation repeats until a fixed
// point; a well-formed catalog converges in a handful of rounds and hitting
// the cap means the catalog is misconfigured.
const MaxUnlockIterations = 10

func metricValue(ledger model.Ledger, m model.Metric) int {
	switch m {
	case model.MetricLessonsCompleted:
		return ledger.LessonsCompleted
	case model.MetricCoursesCompleted:
		return ledger.CoursesCompleted
	case model.MetricTestsPassed:
		return ledger.TestsPassed
	case model.MetricTotalPoints:
		return ledger.TotalPoints
	case model.MetricLevel:
		return ledger.Level
	case model.MetricStreakDays:
		return ledger.CurrentStreakDays
	case model.MetricBadgesEarned:
		return ledger.TotalBadges
	default:
		return 0
	}
}

// Unlockable reports whether the badge's predicate holds for the ledger.
func Unlockable(ledger model.Ledger, b model.Badge) bool {
	return metricValue(ledger, b.Requirement.Metric) >= b.Requirement.Threshold
}

// Evaluate returns every catalog badge whose predicate is newly true, in
// catalog order. Pure and idempotent: the same inputs yield the same
// result, and a badge in the unlocked set is never returned again.
func Evaluate(ledger model.Ledger, catalog []model.Badge, unlocked map[string]bool) []model.Badge {
	var newly []model.Badge
	for _, b := range catalog {
		if unlocked[b.Code] {
			continue
		}
		if Unlockable(ledger, b) {
			newly = append(newly, b)
		}
	}
	return newly
}

// UnlockFunc persists one unlock and folds its reward into the ledger.
// inserted=false means a concurrent writer unlocked the badge first: it is
// treated as unlocked but not reported, and the ledger is left unchanged.
type UnlockFunc func(b model.Badge) (ledger model.Ledger, inserted bool, err error)

// RunUnlocks drives Evaluate to a fixed point, persisting each newly
// satisfied badge through persist and re-evaluating against the updated
// ledger, since badge rewards can themselves satisfy further predicates.
// The unlocked set is updated in place. A catalog that still produces new
// unlocks after MaxUnlockIterations rounds is misconfigured and reported as
// ErrConfiguration with the unlocks so far.
func RunUnlocks(ledger model.Ledger, catalog []model.Badge, unlocked map[string]bool, persist UnlockFunc) (model.Ledger, []model.Badge, error) {
	var all []model.Badge
	for i := 0; i < MaxUnlockIterations; i++ {
		newly := Evaluate(ledger, catalog, unlocked)
		if len(newly) == 0 {
			return ledger, all, nil
		}
		for _, b := range newly {
			next, inserted, err := persist(b)
			if err != nil {
				return ledger, all, err
			}
			unlocked[b.Code] = true
			if !inserted {
				continue
			}
			ledger = next
			all = append(all, b)
		}
	}
	return ledger, all, fmt.Errorf("%w: badge unlock loop exceeded %d iterations", model.ErrConfiguration, MaxUnlockIterations)
}

// ProgressFor estimates percent-complete toward a locked badge's predicate,
// clamped to [0,100]. Secret badges return ok=false: exposing progress
// would reveal the requirement.
func ProgressFor(ledger model.Ledger, b model.Badge) (int, bool) {
	if b.IsSecret {
		return 0, false
	}
	if b.Requirement.Threshold <= 0 {
		return 0, false
	}
	pct := metricValue(ledger, b.Requirement.Metric) * 100 / b.Requirement.Threshold
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, true
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// UnlockTrend compares unlock counts in the last 7 days against the 7 days
// before that. Ties, including zero on both sides, are stable. Timestamps
// older than 14 days are ignored.
func UnlockTrend(unlockTimes []time.Time, now time.Time) Trend {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var thisWeek, prevWeek int
	for _, t := range unlockTimes {
		switch {
		case t.After(now):
			continue
		case t.After(weekAgo):
			thisWeek++
		case t.After(twoWeeksAgo):
			prevWeek++
		}
	}

	switch {
	case thisWeek > prevWeek:
		return TrendUp
	case thisWeek < prevWeek:
		return TrendDown
	default:
		return TrendStable
	}
}
