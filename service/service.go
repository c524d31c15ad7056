package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	mrand "math/rand"
	"time"

	"pawcademy/assessment"
	"pawcademy/badge"
	"pawcademy/cache"
	"pawcademy/logger"
	"pawcademy/model"
	"pawcademy/natsclient"
	"pawcademy/repository"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
)

const (
	leaderboardCacheTTL = 5 * time.Minute
	ledgerCacheTTL      = 30 * time.Second
	badgesCacheTTL      = 30 * time.Second

	subjectBadgeUnlocked = "progress.notify.badge"
	subjectLevelUp       = "progress.notify.levelup"
)

// ProgressionService turns completion events into points, levels, badges
// and rankings, and owns the server side of the module-test protocol.
type ProgressionService struct {
	RepoConnInstance *repository.Repository
	NatsClient       *natsclient.NatsClient
	RedisCacheClient cache.Cache
	Catalog          []model.Badge
	logger           *logger.LogStreamer
}

// NewService loads and validates the badge catalog (falling back to the
// built-in set when the badges collection is empty). A broken catalog is a
// configuration error and refuses to start the service.
func NewService(repo *repository.Repository, natsClient *natsclient.NatsClient, redisCache cache.Cache, log *logger.LogStreamer) (*ProgressionService, error) {
	traceID := uuid.New().String()

	catalog, err := repo.BadgeCatalog(context.Background())
	if err != nil {
		log.Log(zapcore.ErrorLevel, traceID, "Failed to load badge catalog", map[string]any{
			"method":    "NewService",
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return nil, err
	}
	if len(catalog) == 0 {
		catalog = badge.DefaultCatalog()
		log.Log(zapcore.InfoLevel, traceID, "Badges collection empty, using built-in catalog", map[string]any{
			"method":     "NewService",
			"badgeCount": len(catalog),
		}, "SERVICE", nil)
	}
	if err := badge.ValidateCatalog(catalog); err != nil {
		log.Log(zapcore.ErrorLevel, traceID, "Badge catalog is misconfigured", map[string]any{
			"method":    "NewService",
			"errorType": "CONFIGURATION_ERROR",
		}, "SERVICE", err)
		return nil, err
	}

	svc := &ProgressionService{
		RepoConnInstance: repo,
		NatsClient:       natsClient,
		RedisCacheClient: redisCache,
		Catalog:          catalog,
		logger:           log,
	}
	log.Log(zapcore.InfoLevel, traceID, "ProgressionService initialized", map[string]any{
		"method":     "NewService",
		"badgeCount": len(catalog),
	}, "SERVICE", nil)
	return svc, nil
}

// StartCronJob schedules the hourly leaderboard snapshot refresh.
func (s *ProgressionService) StartCronJob() {
	c := cron.New()

	c.AddFunc("@every 1h", func() {
		ctx := context.Background()
		s.logger.Log(zapcore.InfoLevel, "", "Refreshing leaderboard snapshots", map[string]any{
			"method": "LEADERBOARD SNAPSHOT CRON JOB",
		}, "SERVICE", nil)
		if err := s.SyncLeaderboardSnapshots(ctx); err != nil {
			s.logger.Log(zapcore.ErrorLevel, "", "Leaderboard snapshot refresh failed", map[string]any{
				"method":    "LEADERBOARD SNAPSHOT CRON JOB",
				"errorType": "SNAPSHOT_SYNC_FAILED",
			}, "SERVICE", err)
		}
	})

	c.Start() // does not block
}

// SyncLeaderboardSnapshots recomputes and caches the rendered board for
// every reporting period.
func (s *ProgressionService) SyncLeaderboardSnapshots(ctx context.Context) error {
	traceID := uuid.New().String()
	for _, period := range []model.Period{model.PeriodAllTime, model.PeriodThisMonth, model.PeriodThisWeek} {
		entries, err := s.computeLeaderboard(ctx, traceID, period)
		if err != nil {
			return err
		}
		if err := s.cacheLeaderboard(traceID, period, entries); err != nil {
			return err
		}
	}
	s.logger.Log(zapcore.InfoLevel, traceID, "Leaderboard snapshots refreshed", map[string]any{
		"method": "SyncLeaderboardSnapshots",
	}, "SERVICE", nil)
	return nil
}

// HandleLessonCompleted applies a lesson-completion event and runs badge
// evaluation to a fixed point. Returns the updated ledger and any badges
// unlocked as a consequence.
func (s *ProgressionService) HandleLessonCompleted(ctx context.Context, userID string, points int) (model.Ledger, []model.Badge, error) {
	return s.applyAndUnlock(ctx, "HandleLessonCompleted", userID, model.LessonCompleted(points))
}

// HandleCourseCompleted applies a course-completion event.
func (s *ProgressionService) HandleCourseCompleted(ctx context.Context, userID string, points int) (model.Ledger, []model.Badge, error) {
	return s.applyAndUnlock(ctx, "HandleCourseCompleted", userID, model.CourseCompleted(points))
}

// SetStreak records the learner's current consecutive-day streak as reported
// by the activity tracker, then re-evaluates streak-keyed badges.
func (s *ProgressionService) SetStreak(ctx context.Context, userID string, days int) (model.Ledger, []model.Badge, error) {
	traceID := uuid.New().String()

	if userID == "" {
		return model.Ledger{}, nil, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}
	if days < 0 {
		return model.Ledger{}, nil, fmt.Errorf("%w: negative streak %d", model.ErrValidation, days)
	}

	if err := s.RepoConnInstance.UpsertStreak(ctx, userID, days, time.Now()); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to upsert streak", map[string]any{
			"method":    "SetStreak",
			"userId":    userID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return model.Ledger{}, nil, err
	}

	ledger, err := s.RepoConnInstance.GetLedger(ctx, userID)
	if err != nil {
		return model.Ledger{}, nil, err
	}

	unlockedNow, err := s.unlockAll(ctx, traceID, userID, &ledger)
	if err != nil {
		return ledger, unlockedNow, err
	}
	s.invalidateUserCaches(traceID, userID)

	s.logger.Log(zapcore.InfoLevel, traceID, "Streak updated", map[string]any{
		"method":    "SetStreak",
		"userId":    userID,
		"days":      days,
		"newBadges": len(unlockedNow),
	}, "SERVICE", nil)
	return ledger, unlockedNow, nil
}

// applyAndUnlock is the serialized write path: one ledger mutation, then
// badge evaluation re-run after every unlock until no badge fires.
func (s *ProgressionService) applyAndUnlock(ctx context.Context, method, userID string, ev model.CompletionEvent) (model.Ledger, []model.Badge, error) {
	traceID := uuid.New().String()
	s.logger.Log(zapcore.InfoLevel, traceID, "Applying completion event", map[string]any{
		"method": method,
		"userId": userID,
		"kind":   ev.Kind,
		"points": ev.Points,
	}, "SERVICE", nil)

	if userID == "" {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Missing user ID", map[string]any{
			"method":    method,
			"errorType": "VALIDATION_ERROR",
		}, "SERVICE", nil)
		return model.Ledger{}, nil, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}

	before, err := s.RepoConnInstance.GetLedger(ctx, userID)
	if err != nil {
		return model.Ledger{}, nil, err
	}

	ledger, err := s.RepoConnInstance.ApplyCompletion(ctx, userID, ev, time.Now())
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to apply completion event", map[string]any{
			"method":    method,
			"userId":    userID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return model.Ledger{}, nil, err
	}

	unlockedNow, err := s.unlockAll(ctx, traceID, userID, &ledger)
	if err != nil {
		return ledger, unlockedNow, err
	}

	if ledger.Level > before.Level {
		s.publishNotification(traceID, subjectLevelUp, map[string]any{
			"userId": userID,
			"level":  ledger.Level,
		})
	}

	s.invalidateUserCaches(traceID, userID)

	s.logger.Log(zapcore.InfoLevel, traceID, "Completion event applied", map[string]any{
		"method":      method,
		"userId":      userID,
		"level":       ledger.Level,
		"totalPoints": ledger.TotalPoints,
		"newBadges":   len(unlockedNow),
	}, "SERVICE", nil)
	return ledger, unlockedNow, nil
}

// unlockAll evaluates the catalog against the ledger, persists every newly
// satisfied badge and folds its reward back into the ledger, repeating
// until a fixed point. Exceeding the iteration cap means the catalog is
// misconfigured (e.g. cyclic meta-badges); that is fatal, not retried.
func (s *ProgressionService) unlockAll(ctx context.Context, traceID, userID string, ledger *model.Ledger) ([]model.Badge, error) {
	rows, err := s.RepoConnInstance.UnlockedBadges(ctx, userID)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to load unlocked badges", map[string]any{
			"method":    "unlockAll",
			"userId":    userID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return nil, err
	}
	unlocked := make(map[string]bool, len(rows))
	for _, row := range rows {
		unlocked[row.BadgeCode] = true
	}

	next, all, err := badge.RunUnlocks(*ledger, s.Catalog, unlocked, func(b model.Badge) (model.Ledger, bool, error) {
		inserted, err := s.RepoConnInstance.InsertUserBadge(ctx, model.UserBadge{
			UserID:    userID,
			BadgeCode: b.Code,
			EarnedAt:  time.Now().UTC(),
		})
		if err != nil {
			return model.Ledger{}, false, err
		}
		if !inserted {
			// a concurrent writer already unlocked and rewarded it
			return model.Ledger{}, false, nil
		}

		led, err := s.RepoConnInstance.ApplyCompletion(ctx, userID, model.BadgeUnlocked(b.Points), time.Now())
		if err != nil {
			s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to apply badge reward", map[string]any{
				"method":    "unlockAll",
				"userId":    userID,
				"badgeCode": b.Code,
				"errorType": "DB_ERROR",
			}, "SERVICE", err)
			return model.Ledger{}, false, err
		}

		s.logger.Log(zapcore.InfoLevel, traceID, "Badge unlocked", map[string]any{
			"method":    "unlockAll",
			"userId":    userID,
			"badgeCode": b.Code,
			"points":    b.Points,
		}, "SERVICE", nil)
		s.publishNotification(traceID, subjectBadgeUnlocked, map[string]any{
			"userId":    userID,
			"badgeCode": b.Code,
			"badgeName": b.Name,
			"points":    b.Points,
		})
		return led, true, nil
	})
	if errors.Is(err, model.ErrConfiguration) {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Badge unlock loop did not converge", map[string]any{
			"method":    "unlockAll",
			"userId":    userID,
			"errorType": "CONFIGURATION_ERROR",
		}, "SERVICE", err)
	}
	*ledger = next
	return all, err
}

// GetLedger returns the user's ledger with the level window, Redis first.
func (s *ProgressionService) GetLedger(ctx context.Context, userID string) (LedgerView, error) {
	traceID := uuid.New().String()

	if userID == "" {
		return LedgerView{}, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}

	cacheKey := fmt.Sprintf("ledger:%s", userID)
	if cached, err := s.RedisCacheClient.Get(cacheKey); err == nil && cached != nil {
		var view LedgerView
		if cachedStr, ok := cached.(string); ok {
			if err := json.Unmarshal([]byte(cachedStr), &view); err == nil {
				return view, nil
			}
		}
	}

	ledger, err := s.RepoConnInstance.GetLedger(ctx, userID)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to retrieve ledger", map[string]any{
			"method":    "GetLedger",
			"userId":    userID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return LedgerView{}, err
	}

	view := NewLedgerView(ledger)
	s.cacheJSON(traceID, cacheKey, view, ledgerCacheTTL)
	return view, nil
}

// StartAttempt creates a server-side attempt record with a fresh shuffle of
// the test's questions. The correct answers are never sent to the client.
func (s *ProgressionService) StartAttempt(ctx context.Context, userID, testID string) (model.Attempt, error) {
	traceID := uuid.New().String()
	s.logger.Log(zapcore.InfoLevel, traceID, "Starting test attempt", map[string]any{
		"method": "StartAttempt",
		"userId": userID,
		"testId": testID,
	}, "SERVICE", nil)

	if userID == "" || testID == "" {
		return model.Attempt{}, fmt.Errorf("%w: user ID and test ID are required", model.ErrValidation)
	}

	test, err := s.RepoConnInstance.GetTest(ctx, testID)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to load test", map[string]any{
			"method":    "StartAttempt",
			"testId":    testID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return model.Attempt{}, err
	}
	if err := assessment.ValidateTest(test); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Test is misconfigured", map[string]any{
			"method":    "StartAttempt",
			"testId":    testID,
			"errorType": "CONFIGURATION_ERROR",
		}, "SERVICE", err)
		return model.Attempt{}, err
	}

	order := assessment.ShuffleOrder(len(test.Questions), newRand())
	answers := make([]int, len(test.Questions))
	for i := range answers {
		answers[i] = -1
	}
	attempt := model.Attempt{
		ID:            uuid.New().String(),
		UserID:        userID,
		TestID:        testID,
		QuestionOrder: order,
		Answers:       answers,
		Status:        model.AttemptInProgress,
		StartedAt:     time.Now().UTC(),
	}
	if err := s.RepoConnInstance.InsertAttempt(ctx, attempt); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to persist attempt", map[string]any{
			"method":    "StartAttempt",
			"testId":    testID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return model.Attempt{}, err
	}

	s.logger.Log(zapcore.InfoLevel, traceID, "Test attempt started", map[string]any{
		"method":    "StartAttempt",
		"attemptId": attempt.ID,
		"questions": len(order),
	}, "SERVICE", nil)
	return attempt, nil
}

// AttemptOutcome is the authoritative result of a submission.
type AttemptOutcome struct {
	AttemptID      string        `json:"attemptId"`
	Score          int           `json:"score"`
	Passed         bool          `json:"passed"`
	ElapsedSeconds int           `json:"elapsedSeconds"`
	RewardPoints   int           `json:"rewardPoints"`
	NewBadges      []model.Badge `json:"newBadges,omitempty"`
}

// SubmitAttempt scores an attempt server-side from the raw answers (in
// shuffled order) and finalizes it at most once. A duplicate submission of
// a finalized attempt returns the stored result and emits nothing.
func (s *ProgressionService) SubmitAttempt(ctx context.Context, attemptID string, answers []int, elapsedSeconds int) (AttemptOutcome, error) {
	traceID := uuid.New().String()
	s.logger.Log(zapcore.InfoLevel, traceID, "Submitting test attempt", map[string]any{
		"method":    "SubmitAttempt",
		"attemptId": attemptID,
	}, "SERVICE", nil)

	if attemptID == "" {
		return AttemptOutcome{}, fmt.Errorf("%w: attempt ID is required", model.ErrValidation)
	}
	if elapsedSeconds < 0 {
		return AttemptOutcome{}, fmt.Errorf("%w: negative elapsed seconds", model.ErrValidation)
	}

	attempt, err := s.RepoConnInstance.GetAttempt(ctx, attemptID)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to load attempt", map[string]any{
			"method":    "SubmitAttempt",
			"attemptId": attemptID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return AttemptOutcome{}, err
	}
	if attempt.Status == model.AttemptCompleted {
		s.logger.Log(zapcore.WarnLevel, traceID, "Duplicate submission of finalized attempt", map[string]any{
			"method":    "SubmitAttempt",
			"attemptId": attemptID,
		}, "SERVICE", nil)
		return AttemptOutcome{
			AttemptID:      attempt.ID,
			Score:          attempt.Score,
			Passed:         attempt.Passed,
			ElapsedSeconds: attempt.ElapsedSeconds,
		}, nil
	}
	if attempt.Status == model.AttemptCancelled {
		return AttemptOutcome{}, fmt.Errorf("%w: attempt %s was cancelled", model.ErrValidation, attemptID)
	}

	test, err := s.RepoConnInstance.GetTest(ctx, attempt.TestID)
	if err != nil {
		return AttemptOutcome{}, err
	}

	if len(answers) != len(test.Questions) {
		return AttemptOutcome{}, fmt.Errorf("%w: got %d answers for %d questions", model.ErrValidation, len(answers), len(test.Questions))
	}
	for i, ans := range answers {
		if ans < 0 {
			return AttemptOutcome{}, &assessment.UnansweredError{Index: i}
		}
		if ans >= model.OptionsPerQuestion {
			return AttemptOutcome{}, fmt.Errorf("%w: answer %d out of range at index %d", model.ErrValidation, ans, i)
		}
	}

	original := assessment.RemapToOriginal(attempt.QuestionOrder, answers)
	score, passed, err := assessment.Score(test, original)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to score attempt", map[string]any{
			"method":    "SubmitAttempt",
			"attemptId": attemptID,
			"errorType": "SCORING_ERROR",
		}, "SERVICE", err)
		return AttemptOutcome{}, err
	}

	finalized, finalizedNow, err := s.RepoConnInstance.FinalizeAttempt(ctx, attemptID, answers, elapsedSeconds, score, passed, time.Now())
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to finalize attempt", map[string]any{
			"method":    "SubmitAttempt",
			"attemptId": attemptID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return AttemptOutcome{}, err
	}

	outcome := AttemptOutcome{
		AttemptID:      finalized.ID,
		Score:          finalized.Score,
		Passed:         finalized.Passed,
		ElapsedSeconds: finalized.ElapsedSeconds,
	}

	// Reward emission is guarded by finalizedNow: a retried submission
	// that lost the finalize race must not double-count.
	if finalizedNow && finalized.Passed {
		outcome.RewardPoints = test.RewardPoints
		_, newBadges, err := s.applyAndUnlock(ctx, "SubmitAttempt", attempt.UserID, model.TestPassed(test.RewardPoints))
		if err != nil {
			s.logger.Log(zapcore.ErrorLevel, traceID, "Attempt finalized but reward application failed", map[string]any{
				"method":    "SubmitAttempt",
				"attemptId": attemptID,
				"userId":    attempt.UserID,
				"errorType": "DB_ERROR",
			}, "SERVICE", err)
			return outcome, err
		}
		outcome.NewBadges = newBadges
	}

	s.logger.Log(zapcore.InfoLevel, traceID, "Test attempt submitted", map[string]any{
		"method":    "SubmitAttempt",
		"attemptId": attemptID,
		"score":     outcome.Score,
		"passed":    outcome.Passed,
	}, "SERVICE", nil)
	return outcome, nil
}

// CancelAttempt discards an in-progress attempt without side effects.
func (s *ProgressionService) CancelAttempt(ctx context.Context, attemptID string) error {
	traceID := uuid.New().String()
	if attemptID == "" {
		return fmt.Errorf("%w: attempt ID is required", model.ErrValidation)
	}
	if err := s.RepoConnInstance.CancelAttempt(ctx, attemptID); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to cancel attempt", map[string]any{
			"method":    "CancelAttempt",
			"attemptId": attemptID,
			"errorType": "DB_ERROR",
		}, "SERVICE", err)
		return err
	}
	s.logger.Log(zapcore.InfoLevel, traceID, "Test attempt cancelled", map[string]any{
		"method":    "CancelAttempt",
		"attemptId": attemptID,
	}, "SERVICE", nil)
	return nil
}

func (s *ProgressionService) publishNotification(traceID, subject string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to marshal notification", map[string]any{
			"method":    "publishNotification",
			"subject":   subject,
			"errorType": "MARSHAL_ERROR",
		}, "SERVICE", err)
		return
	}
	if err := s.NatsClient.Publish(subject, data); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to publish notification", map[string]any{
			"method":    "publishNotification",
			"subject":   subject,
			"errorType": "NATS_ERROR",
		}, "SERVICE", err)
	}
}

func (s *ProgressionService) invalidateUserCaches(traceID, userID string) {
	cacheKeys := []string{
		fmt.Sprintf("ledger:%s", userID),
		fmt.Sprintf("badges:%s", userID),
	}
	for _, cacheKey := range cacheKeys {
		if err := s.RedisCacheClient.Delete(cacheKey); err != nil {
			s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to delete cache", map[string]any{
				"method":    "invalidateUserCaches",
				"cacheKey":  cacheKey,
				"errorType": "CACHE_ERROR",
			}, "SERVICE", err)
		}
	}
}

func (s *ProgressionService) cacheJSON(traceID, cacheKey string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to marshal cache value", map[string]any{
			"method":    "cacheJSON",
			"cacheKey":  cacheKey,
			"errorType": "MARSHAL_ERROR",
		}, "SERVICE", err)
		return
	}
	if err := s.RedisCacheClient.Set(cacheKey, data, ttl); err != nil {
		s.logger.Log(zapcore.ErrorLevel, traceID, "Failed to cache value", map[string]any{
			"method":    "cacheJSON",
			"cacheKey":  cacheKey,
			"errorType": "CACHE_ERROR",
		}, "SERVICE", err)
	}
}

// newRand seeds a math/rand source from crypto-quality entropy; the shuffle
// itself needs uniformity, not unpredictability guarantees.
func newRand() *mrand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return mrand.New(mrand.NewSource(seed))
}
