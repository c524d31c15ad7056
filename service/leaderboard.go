package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pawcademy/leaderboard"
	"pawcademy/model"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// GetLeaderboard returns the ranked board for a period, Redis snapshot
// first, Mongo aggregation on a miss.
func (s *ProgressionService) GetLeaderboard(ctx context.Context, period model.Period, limit int) ([]model.LeaderboardEntry, error) {
	traceID := uuid.New().String()

	entries, err := s.loadLeaderboard(ctx, traceID, period)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetUserRank returns the user's entry in the period board. A user with no
// recorded activity in the period is unranked, which is a not-found result.
func (s *ProgressionService) GetUserRank(ctx context.Context, period model.Period, userID string) (model.LeaderboardEntry, error) {
	traceID := uuid.New().String()

	if userID == "" {
		return model.LeaderboardEntry{}, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}

	entries, err := s.loadLeaderboard(ctx, traceID, period)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return model.LeaderboardEntry{}, fmt.Errorf("%w: user %s is not ranked for period %s", model.ErrNotFound, userID, period)
}

func (s *ProgressionService) loadLeaderboard(ctx context.Context, traceID string, period model.Period) ([]model.LeaderboardEntry, error) {
	cacheKey := fmt.Sprintf("leaderboard:%s", period)
	if cached, err := s.RedisCacheClient.Get(cacheKey); err == nil && cached != nil {
		var entries []model.LeaderboardEntry
		if cachedStr, ok := cached.(string); ok {
			if err := json.Unmarshal([]byte(cachedStr), &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.computeLeaderboard(ctx, traceID, period)
	if err != nil {
		return nil, err
	}
	if err := s.cacheLeaderboard(traceID, period, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// computeLeaderboard renders the board for a period straight from Mongo.
func (s *ProgressionService) computeLeaderboard(ctx context.Context, traceID string, period model.Period) ([]model.LeaderboardEntry, error) {
	var scores []leaderboard.PeriodScore
	var err error

	since, windowed := leaderboard.WindowStart(period, time.Now())
	if windowed {
		scores, err = s.RepoConnInstance.PeriodScores(ctx, since)
	} else {
		scores, err = s.RepoConnInstance.AllTimeScores(ctx)
	}
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to load leaderboard scores", map[string]any{
			"method":    "computeLeaderboard",
			"period":    period,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return nil, err
	}

	return leaderboard.Rank(scores), nil
}

func (s *ProgressionService) cacheLeaderboard(traceID string, period model.Period, entries []model.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	cacheKey := fmt.Sprintf("leaderboard:%s", period)
	if err := s.RedisCacheClient.Set(cacheKey, data, leaderboardCacheTTL); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to cache leaderboard", map[string]any{
			"method":    "cacheLeaderboard",
			"cacheKey":  cacheKey,
			"errorType": "CACHE_ERROR",
		}, "SERVICE", err)
		return err
	}
	return nil
}
