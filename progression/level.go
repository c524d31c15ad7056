// Package progression implements the level curve and ledger event
// application. Everything here is pure; durable application lives in the
// repository.
package progression

import "math"

// Threshold returns the cumulative experience required to reach level.
// The curve is quadratic: (L-1)^2 * 100, so level 1 starts at 0 XP,
// level 2 at 100, level 3 at 400 and so on. There is no upper bound.
func Threshold(level int) int {
	if level <= 1 {
		return 0
	}
	d := level - 1
	return d * d * 100
}

// LevelFor returns the largest level whose threshold is <= xp.
func LevelFor(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Sqrt(float64(xp)/100)) + 1
	// Guard the float estimate against boundary drift.
	for Threshold(level+1) <= xp {
		level++
	}
	for level > 1 && Threshold(level) > xp {
		level--
	}
	return level
}

// LevelProgress describes where xp sits inside its current level window.
type LevelProgress struct {
	Level   int `json:"level"`
	Current int `json:"current"`
	Needed  int `json:"needed"`
	Percent int `json:"percent"`
}

// ProgressWithinLevel reports xp earned inside the current level, the width
// of the window to the next level, and their ratio as a clamped integer
// percentage.
func ProgressWithinLevel(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := LevelFor(xp)
	current := xp - Threshold(level)
	needed := Threshold(level+1) - Threshold(level)
	percent := current * 100 / needed
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return LevelProgress{Level: level, Current: current, Needed: needed, Percent: percent}
}
