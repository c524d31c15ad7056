package assessment

import (
	"fmt"

	"pawcademy/model"
)

// Score computes the authoritative result from answers in the test's
// original question order. The client-reported score is advisory only;
// this function is the single source of truth on both sides. The score is
// an integer percentage with half rounding up, and the pass check uses >=.
func Score(t model.Test, answersOriginalOrder []int) (int, bool, error) {
	total := len(t.Questions)
	if len(answersOriginalOrder) != total {
		return 0, false, fmt.Errorf("%w: got %d answers for %d questions", model.ErrValidation, len(answersOriginalOrder), total)
	}
	if total == 0 {
		return 0, false, fmt.Errorf("%w: test %q has no questions", model.ErrConfiguration, t.ID)
	}

	correct := 0
	for i, q := range t.Questions {
		ans := answersOriginalOrder[i]
		if ans < 0 {
			return 0, false, &UnansweredError{Index: i}
		}
		if ans >= len(q.Options) {
			return 0, false, fmt.Errorf("%w: answer %d out of range for question %d", model.ErrValidation, ans, i)
		}
		if ans == q.CorrectAnswer {
			correct++
		}
	}

	// Integer round-half-up of 100*correct/total.
	score := (200*correct + total) / (2 * total)
	return score, score >= t.PassingScore, nil
}
