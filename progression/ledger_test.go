package progression

import (
	"testing"

	"pawcademy/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLessonCompleted(t *testing.T) {
	ledger := NewLedger("user-1")

	ledger, err := Apply(ledger, model.LessonCompleted(20))
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.LessonsCompleted)
	assert.Equal(t, 20, ledger.TotalPoints)
	assert.Equal(t, 20, ledger.ExperiencePoints)
	assert.Equal(t, 1, ledger.Level)
	assert.Equal(t, 0, ledger.CoursesCompleted)
}

func TestApplyLevelsUp(t *testing.T) {
	ledger := NewLedger("user-1")
	ledger.ExperiencePoints = 90
	ledger.TotalPoints = 90

	ledger, err := Apply(ledger, model.CourseCompleted(50))
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.CoursesCompleted)
	assert.Equal(t, 140, ledger.ExperiencePoints)
	assert.Equal(t, 2, ledger.Level)
}

func TestApplyBadgeUnlocked(t *testing.T) {
	ledger := NewLedger("user-1")

	ledger, err := Apply(ledger, model.BadgeUnlocked(25))
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.TotalBadges)
	assert.Equal(t, 25, ledger.TotalPoints)
}

func TestApplyTestPassed(t *testing.T) {
	ledger := NewLedger("user-1")

	ledger, err := Apply(ledger, model.TestPassed(0))
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.TestsPassed)
	assert.Equal(t, 0, ledger.TotalPoints)
}

func TestApplyRejectsNegativePoints(t *testing.T) {
	ledger := NewLedger("user-1")

	_, err := Apply(ledger, model.LessonCompleted(-5))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestApplyRejectsUnknownKind(t *testing.T) {
	ledger := NewLedger("user-1")

	_, err := Apply(ledger, model.CompletionEvent{Kind: "mystery", Points: 10})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestNewLedgerStartsAtLevelOne(t *testing.T) {
	ledger := NewLedger("user-1")
	assert.Equal(t, "user-1", ledger.UserID)
	assert.Equal(t, 1, ledger.Level)
	assert.Zero(t, ledger.TotalPoints)
}
