package assessment

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"pawcademy/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourQuestionTest() model.Test {
	return model.Test{
		ID:           "test-1",
		ModuleID:     "module-1",
		Title:        "Basic Obedience",
		PassingScore: 75,
		RewardPoints: 50,
		Questions: []model.TestQuestion{
			{Question: "q0", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0},
			{Question: "q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
			{Question: "q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
			{Question: "q3", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 3},
		},
	}
}

func newAttempt(t *testing.T, seed int64) *Attempt {
	t.Helper()
	a, err := Start(fourQuestionTest(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return a
}

func TestStartShufflesAPermutation(t *testing.T) {
	a := newAttempt(t, 42)

	order := a.Order()
	require.Len(t, order, 4)
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	assert.Equal(t, []int{0, 1, 2, 3}, sorted)
	assert.Equal(t, StateInProgress, a.State())
	assert.Equal(t, 0, a.Position())
}

func TestStartRejectsMalformedTests(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	empty := fourQuestionTest()
	empty.Questions = nil
	_, err := Start(empty, rng)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	badScore := fourQuestionTest()
	badScore.PassingScore = 101
	_, err = Start(badScore, rng)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	threeOptions := fourQuestionTest()
	threeOptions.Questions[0].Options = []string{"a", "b", "c"}
	_, err = Start(threeOptions, rng)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	badAnswer := fourQuestionTest()
	badAnswer.Questions[2].CorrectAnswer = 4
	_, err = Start(badAnswer, rng)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

// A learner who answers every question correctly through the state machine
// must score 100 once the server remaps the submitted answers with the
// question order it issued, whatever that permutation is.
func TestSubmitRoundTripAcrossPermutations(t *testing.T) {
	test := fourQuestionTest()
	for seed := int64(0); seed < 20; seed++ {
		serverOrder := ShuffleOrder(len(test.Questions), rand.New(rand.NewSource(seed)))

		a, err := Resume(test, serverOrder)
		require.NoError(t, err)
		for pos := 0; pos < 4; pos++ {
			q, err := a.QuestionAt(pos)
			require.NoError(t, err)
			require.NoError(t, a.SelectOption(pos, q.CorrectAnswer))
		}

		submitted, err := a.BeginSubmit()
		require.NoError(t, err)

		// server side: remap with the stored order, then score
		score, passed, err := Score(test, RemapToOriginal(serverOrder, submitted))
		require.NoError(t, err)
		assert.Equal(t, 100, score, "order=%v", serverOrder)
		assert.True(t, passed, "order=%v", serverOrder)
	}
}

func TestBeginSubmitReturnsShuffledOrderAnswers(t *testing.T) {
	test := fourQuestionTest()
	a, err := Resume(test, []int{2, 0, 3, 1})
	require.NoError(t, err)

	require.NoError(t, a.SelectOption(0, 2)) // original question 2
	require.NoError(t, a.SelectOption(1, 0)) // original question 0
	require.NoError(t, a.SelectOption(2, 3)) // original question 3
	require.NoError(t, a.SelectOption(3, 1)) // original question 1

	submitted, err := a.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 3, 1}, submitted)
	assert.Equal(t, []int{0, 1, 2, 3}, RemapToOriginal([]int{2, 0, 3, 1}, submitted))
	assert.Equal(t, []int{0, 1, 2, 3}, a.AnswersInOriginalOrder())
}

func TestResumeRejectsBadOrder(t *testing.T) {
	test := fourQuestionTest()

	_, err := Resume(test, []int{0, 1, 2})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Resume(test, []int{0, 1, 2, 2})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Resume(test, []int{0, 1, 2, 4})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSelectOptionLastWriteWins(t *testing.T) {
	a := newAttempt(t, 7)

	require.NoError(t, a.SelectOption(1, 0))
	require.NoError(t, a.SelectOption(1, 3))

	assert.Equal(t, 3, a.Answers()[1])
}

func TestSelectOptionBounds(t *testing.T) {
	a := newAttempt(t, 7)

	assert.ErrorIs(t, a.SelectOption(-1, 0), model.ErrValidation)
	assert.ErrorIs(t, a.SelectOption(4, 0), model.ErrValidation)
	assert.ErrorIs(t, a.SelectOption(0, 4), model.ErrValidation)
	assert.ErrorIs(t, a.SelectOption(0, -1), model.ErrValidation)
}

func TestSeekIsUnrestricted(t *testing.T) {
	a := newAttempt(t, 7)

	require.NoError(t, a.Seek(3))
	assert.Equal(t, 3, a.Position())
	require.NoError(t, a.Seek(0))
	assert.Equal(t, 0, a.Position())
	assert.ErrorIs(t, a.Seek(4), model.ErrValidation)
}

func TestBeginSubmitRejectsUnanswered(t *testing.T) {
	a := newAttempt(t, 7)
	require.NoError(t, a.SelectOption(0, 1))
	require.NoError(t, a.SelectOption(2, 1))

	_, err := a.BeginSubmit()
	var unanswered *UnansweredError
	require.ErrorAs(t, err, &unanswered)
	assert.Equal(t, 1, unanswered.Index)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, StateInProgress, a.State())
}

func TestBeginSubmitRejectsSubmitInFlight(t *testing.T) {
	a := newAttempt(t, 7)
	for i := 0; i < 4; i++ {
		require.NoError(t, a.SelectOption(i, 0))
	}

	_, err := a.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, a.State())

	_, err = a.BeginSubmit()
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFailSubmitPreservesAnswers(t *testing.T) {
	a := newAttempt(t, 7)
	for i := 0; i < 4; i++ {
		require.NoError(t, a.SelectOption(i, 2))
	}
	_, err := a.BeginSubmit()
	require.NoError(t, err)

	require.NoError(t, a.FailSubmit())
	assert.Equal(t, StateInProgress, a.State())
	assert.Equal(t, []int{2, 2, 2, 2}, a.Answers())

	// and the retry goes through
	_, err = a.BeginSubmit()
	assert.NoError(t, err)
}

func TestCompleteSubmit(t *testing.T) {
	a := newAttempt(t, 7)
	for i := 0; i < 4; i++ {
		require.NoError(t, a.SelectOption(i, 0))
	}
	_, err := a.BeginSubmit()
	require.NoError(t, err)

	require.NoError(t, a.CompleteSubmit(Result{Score: 75, Passed: true, ElapsedSeconds: 90}))
	assert.Equal(t, StateCompleted, a.State())

	r, err := a.Result()
	require.NoError(t, err)
	assert.Equal(t, 75, r.Score)
	assert.True(t, r.Passed)

	// terminal: no further transitions
	assert.Error(t, a.Cancel())
	assert.Error(t, a.SelectOption(0, 1))
	_, err = a.BeginSubmit()
	assert.Error(t, err)
}

func TestCancelOnlyInProgress(t *testing.T) {
	a := newAttempt(t, 7)
	require.NoError(t, a.Cancel())
	assert.Equal(t, StateCancelled, a.State())
	assert.Error(t, a.Cancel())

	_, err := a.Result()
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTickOnlyCountsInProgress(t *testing.T) {
	a := newAttempt(t, 7)
	a.Tick()
	a.Tick()
	assert.Equal(t, 2, a.ElapsedSeconds())

	require.NoError(t, a.Cancel())
	a.Tick()
	assert.Equal(t, 2, a.ElapsedSeconds())
}

func TestRemapToOriginal(t *testing.T) {
	// question shown first is original index 2, etc.
	order := []int{2, 0, 3, 1}
	answers := []int{10, 11, 12, 13}

	original := RemapToOriginal(order, answers)
	assert.Equal(t, []int{11, 13, 10, 12}, original)
}

func TestUnansweredErrorUnwraps(t *testing.T) {
	err := error(&UnansweredError{Index: 3})
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Contains(t, err.Error(), "3")
}
