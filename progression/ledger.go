package progression

import (
	"fmt"

	"pawcademy/model"
)

// Apply folds one completion event into a ledger copy and returns it.
// Points land in both total_points and experience_points, the counter for
// the event kind is incremented, and the level is recomputed. Negative
// point values are rejected; counters never decrease.
func Apply(ledger model.Ledger, ev model.CompletionEvent) (model.Ledger, error) {
	if ev.Points < 0 {
		return ledger, fmt.Errorf("%w: negative points %d", model.ErrValidation, ev.Points)
	}

	switch ev.Kind {
	case model.EventLessonCompleted:
		ledger.LessonsCompleted++
	case model.EventCourseCompleted:
		ledger.CoursesCompleted++
	case model.EventBadgeUnlocked:
		ledger.TotalBadges++
	case model.EventTestPassed:
		ledger.TestsPassed++
	default:
		return ledger, fmt.Errorf("%w: unknown event kind %q", model.ErrValidation, ev.Kind)
	}

	ledger.TotalPoints += ev.Points
	ledger.ExperiencePoints += ev.Points
	ledger.Level = LevelFor(ledger.ExperiencePoints)
	return ledger, nil
}

// NewLedger returns the zero ledger for a user. Level starts at 1 even with
// zero experience.
func NewLedger(userID string) model.Ledger {
	return model.Ledger{UserID: userID, Level: 1}
}
