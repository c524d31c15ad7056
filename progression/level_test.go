package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreshold(t *testing.T) {
	assert.Equal(t, 0, Threshold(0))
	assert.Equal(t, 0, Threshold(1))
	assert.Equal(t, 100, Threshold(2))
	assert.Equal(t, 400, Threshold(3))
	assert.Equal(t, 900, Threshold(4))
	assert.Equal(t, 8100, Threshold(10))
}

func TestLevelForBoundaries(t *testing.T) {
	assert.Equal(t, 1, LevelFor(0))
	assert.Equal(t, 1, LevelFor(99))
	assert.Equal(t, 2, LevelFor(100))
	assert.Equal(t, 2, LevelFor(399))
	assert.Equal(t, 3, LevelFor(400))
	assert.Equal(t, 10, LevelFor(8100))
	assert.Equal(t, 9, LevelFor(8099))
}

func TestLevelForNegative(t *testing.T) {
	assert.Equal(t, 1, LevelFor(-50))
}

func TestLevelForMonotonic(t *testing.T) {
	prev := 1
	for xp := 0; xp <= 20000; xp += 7 {
		level := LevelFor(xp)
		assert.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		assert.LessOrEqual(t, Threshold(level), xp, "xp=%d", xp)
		assert.Greater(t, Threshold(level+1), xp, "xp=%d", xp)
		prev = level
	}
}

func TestProgressWithinLevel(t *testing.T) {
	lp := ProgressWithinLevel(0)
	assert.Equal(t, 1, lp.Level)
	assert.Equal(t, 0, lp.Current)
	assert.Equal(t, 100, lp.Needed)
	assert.Equal(t, 0, lp.Percent)

	lp = ProgressWithinLevel(150)
	assert.Equal(t, 2, lp.Level)
	assert.Equal(t, 50, lp.Current)
	assert.Equal(t, 300, lp.Needed)
	assert.Equal(t, 16, lp.Percent)

	// exactly on a boundary resets the window
	lp = ProgressWithinLevel(400)
	assert.Equal(t, 3, lp.Level)
	assert.Equal(t, 0, lp.Current)
	assert.Equal(t, 500, lp.Needed)
	assert.Equal(t, 0, lp.Percent)
}
