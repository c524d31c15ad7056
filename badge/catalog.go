// Package badge evaluates unlock predicates against a ledger snapshot and
// computes the reporting aggregates (per-badge progress, unlock trend,
// extremal picks). Evaluation is pure; persistence and the fixed-point
// unlock loop live in the service.
package badge

import (
	"fmt"

	"pawcademy/model"
)

// DefaultCatalog is the built-in badge set, used when the badges collection
// is empty. Codes are stable; the admin back-office may extend the set in
// Mongo but existing codes must not change meaning.
func DefaultCatalog() []model.Badge {
	return []model.Badge{
		{
			Code: "first-steps", Name: "First Steps", Description: "Complete your first lesson",
			Category: model.CategoryProgress, Tier: model.TierBronze, Rarity: model.RarityCommon, Points: 10,
			Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 1},
		},
		{
			Code: "eager-pup", Name: "Eager Pup", Description: "Complete 10 lessons",
			Category: model.CategoryProgress, Tier: model.TierBronze, Rarity: model.RarityCommon, Points: 25,
			Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 10},
		},
		{
			Code: "pack-leader", Name: "Pack Leader", Description: "Complete 50 lessons",
			Category: model.CategoryProgress, Tier: model.TierSilver, Rarity: model.RarityRare, Points: 100,
			Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 50},
		},
		{
			Code: "obedience-marathon", Name: "Obedience Marathon", Description: "Complete 200 lessons",
			Category: model.CategoryProgress, Tier: model.TierGold, Rarity: model.RarityEpic, Points: 300,
			Requirement: model.Requirement{Metric: model.MetricLessonsCompleted, Threshold: 200},
		},
		{
			Code: "graduate", Name: "Graduate", Description: "Finish your first course",
			Category: model.CategoryCourses, Tier: model.TierBronze, Rarity: model.RarityCommon, Points: 50,
			Requirement: model.Requirement{Metric: model.MetricCoursesCompleted, Threshold: 1},
		},
		{
			Code: "curriculum-crusher", Name: "Curriculum Crusher", Description: "Finish 5 courses",
			Category: model.CategoryCourses, Tier: model.TierGold, Rarity: model.RarityEpic, Points: 250,
			Requirement: model.Requirement{Metric: model.MetricCoursesCompleted, Threshold: 5},
		},
		{
			Code: "quiz-whiz", Name: "Quiz Whiz", Description: "Pass 5 module tests",
			Category: model.CategoryKnowledge, Tier: model.TierSilver, Rarity: model.RarityRare, Points: 75,
			Requirement: model.Requirement{Metric: model.MetricTestsPassed, Threshold: 5},
		},
		{
			Code: "top-dog", Name: "Top Dog", Description: "Pass 25 module tests",
			Category: model.CategoryKnowledge, Tier: model.TierPlatinum, Rarity: model.RarityEpic, Points: 400,
			Requirement: model.Requirement{Metric: model.MetricTestsPassed, Threshold: 25},
		},
		{
			Code: "point-hound", Name: "Point Hound", Description: "Earn 1,000 points",
			Category: model.CategorySpecial, Tier: model.TierSilver, Rarity: model.RarityRare, Points: 100,
			Requirement: model.Requirement{Metric: model.MetricTotalPoints, Threshold: 1000},
		},
		{
			Code: "level-five", Name: "Seasoned Trainer", Description: "Reach level 5",
			Category: model.CategorySpecial, Tier: model.TierSilver, Rarity: model.RarityRare, Points: 150,
			Requirement: model.Requirement{Metric: model.MetricLevel, Threshold: 5},
		},
		{
			Code: "level-ten", Name: "Master Trainer", Description: "Reach level 10",
			Category: model.CategorySpecial, Tier: model.TierDiamond, Rarity: model.RarityLegendary, Points: 500, IsSecret: true,
			Requirement: model.Requirement{Metric: model.MetricLevel, Threshold: 10},
		},
		{
			Code: "week-streak", Name: "Daily Walker", Description: "Train 7 days in a row",
			Category: model.CategoryTime, Tier: model.TierBronze, Rarity: model.RarityCommon, Points: 50,
			Requirement: model.Requirement{Metric: model.MetricStreakDays, Threshold: 7},
		},
		{
			Code: "month-streak", Name: "Iron Routine", Description: "Train 30 days in a row",
			Category: model.CategoryTime, Tier: model.TierGold, Rarity: model.RarityEpic, Points: 300,
			Requirement: model.Requirement{Metric: model.MetricStreakDays, Threshold: 30},
		},
		{
			Code: "collector", Name: "Collector", Description: "Unlock 10 badges",
			Category: model.CategorySpecial, Tier: model.TierPlatinum, Rarity: model.RarityLegendary, Points: 200, IsSecret: true,
			Requirement: model.Requirement{Metric: model.MetricBadgesEarned, Threshold: 10},
		},
	}
}

var validMetrics = map[model.Metric]bool{
	model.MetricLessonsCompleted: true,
	model.MetricCoursesCompleted: true,
	model.MetricTestsPassed:      true,
	model.MetricTotalPoints:      true,
	model.MetricLevel:            true,
	model.MetricStreakDays:       true,
	model.MetricBadgesEarned:     true,
}

// ValidateCatalog rejects catalogs that could mis-score learners: duplicate
// codes, non-positive points or thresholds, unknown metrics. A broken
// catalog is a configuration error, surfaced rather than skipped.
func ValidateCatalog(catalog []model.Badge) error {
	seen := make(map[string]bool, len(catalog))
	for _, b := range catalog {
		if b.Code == "" {
			return fmt.Errorf("%w: badge with empty code", model.ErrConfiguration)
		}
		if seen[b.Code] {
			return fmt.Errorf("%w: duplicate badge code %q", model.ErrConfiguration, b.Code)
		}
		seen[b.Code] = true
		if b.Points <= 0 {
			return fmt.Errorf("%w: badge %q has non-positive points", model.ErrConfiguration, b.Code)
		}
		if b.Requirement.Threshold <= 0 {
			return fmt.Errorf("%w: badge %q has non-positive threshold", model.ErrConfiguration, b.Code)
		}
		if !validMetrics[b.Requirement.Metric] {
			return fmt.Errorf("%w: badge %q has unknown metric %q", model.ErrConfiguration, b.Code, b.Requirement.Metric)
		}
	}
	return nil
}
