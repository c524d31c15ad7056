package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pawcademy/badge"
	"pawcademy/model"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

const trendLookback = 14 * 24 * time.Hour

// GetBadgeOverview builds the badge page for a user: everything earned,
// progress toward the visible locked badges, and the two-week unlock trend.
func (s *ProgressionService) GetBadgeOverview(ctx context.Context, userID string) (BadgeOverview, error) {
	traceID := uuid.New().String()

	if userID == "" {
		return BadgeOverview{}, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}

	cacheKey := fmt.Sprintf("badges:%s", userID)
	if cached, err := s.RedisCacheClient.Get(cacheKey); err == nil && cached != nil {
		var view BadgeOverview
		if cachedStr, ok := cached.(string); ok {
			if err := json.Unmarshal([]byte(cachedStr), &view); err == nil {
				return view, nil
			}
		}
	}

	ledger, err := s.RepoConnInstance.GetLedger(ctx, userID)
	if err != nil {
		return BadgeOverview{}, err
	}
	rows, err := s.RepoConnInstance.UnlockedBadges(ctx, userID)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to load unlocked badges", map[string]any{
			"method":    "GetBadgeOverview",
			"userId":    userID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return BadgeOverview{}, err
	}

	unlocked := make(map[string]bool, len(rows))
	for _, row := range rows {
		unlocked[row.BadgeCode] = true
	}

	var locked []LockedBadge
	for _, b := range s.Catalog {
		if unlocked[b.Code] {
			continue
		}
		progress, visible := badge.ProgressFor(ledger, b)
		if !visible {
			continue
		}
		locked = append(locked, LockedBadge{
			Code:        b.Code,
			Name:        b.Name,
			Description: b.Description,
			Category:    b.Category,
			Tier:        b.Tier,
			Rarity:      b.Rarity,
			Points:      b.Points,
			Progress:    progress,
		})
	}

	now := time.Now().UTC()
	times, err := s.RepoConnInstance.UnlockTimesSince(ctx, userID, now.Add(-trendLookback))
	if err != nil {
		return BadgeOverview{}, err
	}

	view := BadgeOverview{
		Unlocked: rows,
		Locked:   locked,
		Trend:    badge.UnlockTrend(times, now),
	}
	s.cacheJSON(traceID, cacheKey, view, badgesCacheTTL)
	return view, nil
}

// BadgeStatistics returns the most and least frequently earned badges
// across the whole user base.
func (s *ProgressionService) BadgeStatistics(ctx context.Context) (BadgeStats, error) {
	traceID := uuid.New().String()

	counts, err := s.RepoConnInstance.BadgeEarnCounts(ctx)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to aggregate badge earn counts", map[string]any{
			"method":    "BadgeStatistics",
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return BadgeStats{}, err
	}

	var stats BadgeStats
	if most, ok := badge.MostEarned(counts); ok {
		stats.MostEarned = &most
	}
	if rarest, ok := badge.RarestEarned(counts); ok {
		stats.RarestEarned = &rarest
	}
	return stats, nil
}
