// Package assessment implements the module-test state machine and the
// authoritative scorer. The Attempt type runs client-side (UI-event driven,
// single-threaded per attempt); Score is the pure function both sides use,
// so the server's recomputation from raw answers always matches.
package assessment

import (
	"fmt"
	"math/rand"

	"pawcademy/model"
)

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
)

// Result is the terminal outcome of an attempt.
type Result struct {
	Score          int  `json:"score"`
	Passed         bool `json:"passed"`
	ElapsedSeconds int  `json:"elapsedSeconds"`
}

// Attempt holds one timed run through a shuffled test. Answers are indexed
// by shuffled position; -1 means unanswered.
type Attempt struct {
	test     model.Test
	state    State
	order    []int
	answers  []int
	elapsed  int
	position int
	result   *Result
}

// ValidateTest rejects malformed tests before an attempt can start. These
// are configuration errors: silently skipping a broken question would
// mis-score learners.
func ValidateTest(t model.Test) error {
	if len(t.Questions) == 0 {
		return fmt.Errorf("%w: test %q has no questions", model.ErrConfiguration, t.ID)
	}
	if t.PassingScore < 0 || t.PassingScore > 100 {
		return fmt.Errorf("%w: test %q passing score %d out of range", model.ErrConfiguration, t.ID, t.PassingScore)
	}
	for i, q := range t.Questions {
		if len(q.Options) != model.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d has %d options, want %d", model.ErrConfiguration, i, len(q.Options), model.OptionsPerQuestion)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct answer %d out of range", model.ErrConfiguration, i, q.CorrectAnswer)
		}
	}
	return nil
}

// Start validates the test, shuffles its question order with Fisher-Yates
// and returns an in-progress attempt positioned at the first question. Use
// Resume instead when the server has already issued the order.
func Start(t model.Test, rng *rand.Rand) (*Attempt, error) {
	if err := ValidateTest(t); err != nil {
		return nil, err
	}
	return Resume(t, ShuffleOrder(len(t.Questions), rng))
}

// Resume builds an in-progress attempt over a server-issued question order,
// so the client presents questions in the same permutation the server will
// use to remap the submitted answers. The order must be a permutation of
// the test's question indices.
func Resume(t model.Test, order []int) (*Attempt, error) {
	if err := ValidateTest(t); err != nil {
		return nil, err
	}
	if len(order) != len(t.Questions) {
		return nil, fmt.Errorf("%w: order has %d entries for %d questions", model.ErrValidation, len(order), len(t.Questions))
	}
	seen := make([]bool, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(order) || seen[idx] {
			return nil, fmt.Errorf("%w: order is not a permutation", model.ErrValidation)
		}
		seen[idx] = true
	}

	answers := make([]int, len(t.Questions))
	for i := range answers {
		answers[i] = -1
	}
	return &Attempt{
		test:    t,
		state:   StateInProgress,
		order:   append([]int(nil), order...),
		answers: answers,
	}, nil
}

// ShuffleOrder returns a uniform random permutation of [0,n).
func ShuffleOrder(n int, rng *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

func (a *Attempt) State() State { return a.state }

// Order returns the shuffled question order (position -> original index).
func (a *Attempt) Order() []int {
	out := make([]int, len(a.order))
	copy(out, a.order)
	return out
}

// QuestionAt returns the question shown at shuffled position i.
func (a *Attempt) QuestionAt(i int) (model.TestQuestion, error) {
	if i < 0 || i >= len(a.order) {
		return model.TestQuestion{}, fmt.Errorf("%w: question index %d out of range", model.ErrValidation, i)
	}
	return a.test.Questions[a.order[i]], nil
}

// Position returns the UI cursor; it never affects scoring.
func (a *Attempt) Position() int { return a.position }

// ElapsedSeconds returns the visible timer value.
func (a *Attempt) ElapsedSeconds() int { return a.elapsed }

// Tick advances the timer by one second. Ticks outside InProgress are
// dropped, so a stray timer firing after submit cannot change the attempt.
func (a *Attempt) Tick() {
	if a.state == StateInProgress {
		a.elapsed++
	}
}

// SelectOption records the answer for the question at shuffled position
// questionIndex. Re-answering overwrites: last write wins. Does not move
// the cursor.
func (a *Attempt) SelectOption(questionIndex, optionIndex int) error {
	if a.state != StateInProgress {
		return fmt.Errorf("%w: cannot answer in state %s", model.ErrValidation, a.state)
	}
	if questionIndex < 0 || questionIndex >= len(a.answers) {
		return fmt.Errorf("%w: question index %d out of range", model.ErrValidation, questionIndex)
	}
	if optionIndex < 0 || optionIndex >= model.OptionsPerQuestion {
		return fmt.Errorf("%w: option index %d out of range", model.ErrValidation, optionIndex)
	}
	a.answers[questionIndex] = optionIndex
	return nil
}

// Seek jumps the cursor to any question. Navigation is unrestricted while
// in progress.
func (a *Attempt) Seek(questionIndex int) error {
	if a.state != StateInProgress {
		return fmt.Errorf("%w: cannot navigate in state %s", model.ErrValidation, a.state)
	}
	if questionIndex < 0 || questionIndex >= len(a.answers) {
		return fmt.Errorf("%w: question index %d out of range", model.ErrValidation, questionIndex)
	}
	a.position = questionIndex
	return nil
}

// FirstUnanswered returns the lowest shuffled index with no answer, or -1
// when every question is answered.
func (a *Attempt) FirstUnanswered() int {
	for i, ans := range a.answers {
		if ans < 0 {
			return i
		}
	}
	return -1
}

// Answers returns a copy of the answers in shuffled order.
func (a *Attempt) Answers() []int {
	out := make([]int, len(a.answers))
	copy(out, a.answers)
	return out
}

// AnswersInOriginalOrder maps the shuffled answers back onto the test's
// original question order.
func (a *Attempt) AnswersInOriginalOrder() []int {
	return RemapToOriginal(a.order, a.answers)
}

// RemapToOriginal converts answers recorded in shuffled order into the
// test's original question order. order[i] is the original index of the
// question shown at position i.
func RemapToOriginal(order, answers []int) []int {
	original := make([]int, len(answers))
	for i := range original {
		original[i] = -1
	}
	for pos, origIdx := range order {
		original[origIdx] = answers[pos]
	}
	return original
}

// BeginSubmit freezes the attempt for submission. It is rejected when any
// question is unanswered (returning the lowest unanswered index) and when a
// submit is already in flight: one pending request per attempt. On success
// the timer stops and the answers are returned in shuffled order, which is
// what the submit endpoint expects; the server remaps them with its stored
// question order before the authoritative scoring.
func (a *Attempt) BeginSubmit() ([]int, error) {
	switch a.state {
	case StateSubmitting:
		return nil, fmt.Errorf("%w: submit already in flight", model.ErrValidation)
	case StateInProgress:
	default:
		return nil, fmt.Errorf("%w: cannot submit in state %s", model.ErrValidation, a.state)
	}
	if idx := a.FirstUnanswered(); idx >= 0 {
		return nil, &UnansweredError{Index: idx}
	}
	a.state = StateSubmitting
	return a.Answers(), nil
}

// FailSubmit returns a failed in-flight submission to InProgress with all
// answers preserved, so the learner can retry without re-answering.
func (a *Attempt) FailSubmit() error {
	if a.state != StateSubmitting {
		return fmt.Errorf("%w: no submit in flight", model.ErrValidation)
	}
	a.state = StateInProgress
	return nil
}

// CompleteSubmit records the authoritative result and finishes the attempt.
func (a *Attempt) CompleteSubmit(r Result) error {
	if a.state != StateSubmitting {
		return fmt.Errorf("%w: no submit in flight", model.ErrValidation)
	}
	a.state = StateCompleted
	a.result = &r
	return nil
}

// Cancel discards an in-progress attempt without side effects.
func (a *Attempt) Cancel() error {
	if a.state != StateInProgress {
		return fmt.Errorf("%w: cannot cancel in state %s", model.ErrValidation, a.state)
	}
	a.state = StateCancelled
	return nil
}

// Result returns the terminal outcome once the attempt is completed.
func (a *Attempt) Result() (Result, error) {
	if a.state != StateCompleted || a.result == nil {
		return Result{}, fmt.Errorf("%w: attempt not completed", model.ErrValidation)
	}
	return *a.result, nil
}

// UnansweredError reports the first unanswered question blocking a submit.
type UnansweredError struct {
	Index int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("question %d is unanswered", e.Index)
}

func (e *UnansweredError) Unwrap() error { return model.ErrValidation }
