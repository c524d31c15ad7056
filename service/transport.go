package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pawcademy/model"
	"pawcademy/utils"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap/zapcore"
)

const handlerTimeout = 10 * time.Second

// Subjects served by this process. Peers send JSON requests and get a
// GenericResponse envelope back on the reply inbox.
const (
	SubjectLessonCompleted = "progress.lesson.completed"
	SubjectCourseCompleted = "progress.course.completed"
	SubjectStreakSet       = "progress.streak.set"
	SubjectAttemptStart    = "progress.attempt.start"
	SubjectAttemptSubmit   = "progress.attempt.submit"
	SubjectAttemptCancel   = "progress.attempt.cancel"
	SubjectLeaderboardGet  = "progress.leaderboard.get"
	SubjectRankGet         = "progress.rank.get"
	SubjectBadgesGet       = "progress.badges.get"
	SubjectBadgeStatsGet   = "progress.badges.stats"
	SubjectLedgerGet       = "progress.ledger.get"
)

type completionRequest struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
}

type streakRequest struct {
	UserID string `json:"userId"`
	Days   int    `json:"days"`
}

type attemptStartRequest struct {
	UserID string `json:"userId"`
	TestID string `json:"testId"`
}

type attemptSubmitRequest struct {
	AttemptID      string `json:"attemptId"`
	Answers        []int  `json:"answers"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

type attemptCancelRequest struct {
	AttemptID string `json:"attemptId"`
}

type leaderboardRequest struct {
	Period string `json:"period"`
	Limit  int    `json:"limit"`
}

type rankRequest struct {
	Period string `json:"period"`
	UserID string `json:"userId"`
}

type userRequest struct {
	UserID string `json:"userId"`
}

type completionResponse struct {
	Ledger    LedgerView    `json:"ledger"`
	NewBadges []model.Badge `json:"newBadges,omitempty"`
}

// RegisterSubjects subscribes the service's request/reply handlers. It
// returns the first subscription error so startup can fail loudly.
func (s *ProgressionService) RegisterSubjects() error {
	handlers := map[string]func(context.Context, []byte) (any, error){
		SubjectLessonCompleted: s.handleLessonCompleted,
		SubjectCourseCompleted: s.handleCourseCompleted,
		SubjectStreakSet:       s.handleStreakSet,
		SubjectAttemptStart:    s.handleAttemptStart,
		SubjectAttemptSubmit:   s.handleAttemptSubmit,
		SubjectAttemptCancel:   s.handleAttemptCancel,
		SubjectLeaderboardGet:  s.handleLeaderboardGet,
		SubjectRankGet:         s.handleRankGet,
		SubjectBadgesGet:       s.handleBadgesGet,
		SubjectBadgeStatsGet:   s.handleBadgeStatsGet,
		SubjectLedgerGet:       s.handleLedgerGet,
	}
	for subject, handler := range handlers {
		if _, err := s.NatsClient.Subscribe(subject, s.serve(subject, handler)); err != nil {
			return err
		}
	}
	return nil
}

// serve wraps a handler with decode, timeout, envelope and reply plumbing.
func (s *ProgressionService) serve(subject string, handler func(context.Context, []byte) (any, error)) func(*nats.Msg) {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		payload, err := handler(ctx, msg.Data)
		resp := envelope(payload, err)

		data, err := json.Marshal(resp)
		if err != nil {
			s.logger.Log(zapcore.ErrorLevel, uuid.New().String(), "Failed to marshal response", map[string]any{
				"method":    "serve",
				"subject":   subject,
				"errorType": "MARSHAL_ERROR",
			}, "SERVICE", err)
			return
		}
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(data); err != nil {
			s.logger.Log(zapcore.ErrorLevel, uuid.New().String(), "Failed to respond on reply inbox", map[string]any{
				"method":    "serve",
				"subject":   subject,
				"errorType": "NATS_ERROR",
			}, "SERVICE", err)
		}
	}
}

// envelope maps the error taxonomy onto the shared response shape.
func envelope(payload any, err error) model.GenericResponse {
	if err == nil {
		return model.GenericResponse{Success: true, Status: http.StatusOK, Payload: payload}
	}

	errorType := "INTERNAL_ERROR"
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		errorType, status = "VALIDATION_ERROR", http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		errorType, status = "NOT_FOUND", http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		errorType, status = "CONFLICT", http.StatusConflict
	case errors.Is(err, model.ErrConfiguration):
		errorType, status = "CONFIGURATION_ERROR", http.StatusInternalServerError
	case errors.Is(err, model.ErrUnavailable):
		errorType, status = "UNAVAILABLE", http.StatusServiceUnavailable
	}

	return model.GenericResponse{
		Success: false,
		Status:  status,
		Error: &model.ErrorInfo{
			ErrorType: errorType,
			Code:      status,
			Message:   err.Error(),
		},
	}
}

func (s *ProgressionService) handleLessonCompleted(ctx context.Context, data []byte) (any, error) {
	var req completionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	ledger, newBadges, err := s.HandleLessonCompleted(ctx, req.UserID, req.Points)
	if err != nil {
		return nil, err
	}
	return completionResponse{Ledger: NewLedgerView(ledger), NewBadges: newBadges}, nil
}

func (s *ProgressionService) handleCourseCompleted(ctx context.Context, data []byte) (any, error) {
	var req completionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	ledger, newBadges, err := s.HandleCourseCompleted(ctx, req.UserID, req.Points)
	if err != nil {
		return nil, err
	}
	return completionResponse{Ledger: NewLedgerView(ledger), NewBadges: newBadges}, nil
}

func (s *ProgressionService) handleStreakSet(ctx context.Context, data []byte) (any, error) {
	var req streakRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	ledger, newBadges, err := s.SetStreak(ctx, req.UserID, req.Days)
	if err != nil {
		return nil, err
	}
	return completionResponse{Ledger: NewLedgerView(ledger), NewBadges: newBadges}, nil
}

func (s *ProgressionService) handleAttemptStart(ctx context.Context, data []byte) (any, error) {
	var req attemptStartRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return s.StartAttempt(ctx, req.UserID, req.TestID)
}

func (s *ProgressionService) handleAttemptSubmit(ctx context.Context, data []byte) (any, error) {
	var req attemptSubmitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return s.SubmitAttempt(ctx, req.AttemptID, req.Answers, req.ElapsedSeconds)
}

func (s *ProgressionService) handleAttemptCancel(ctx context.Context, data []byte) (any, error) {
	var req attemptCancelRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return nil, s.CancelAttempt(ctx, req.AttemptID)
}

func (s *ProgressionService) handleLeaderboardGet(ctx context.Context, data []byte) (any, error) {
	var req leaderboardRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return s.GetLeaderboard(ctx, utils.NormalizePeriod(req.Period), req.Limit)
}

func (s *ProgressionService) handleRankGet(ctx context.Context, data []byte) (any, error) {
	var req rankRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return s.GetUserRank(ctx, utils.NormalizePeriod(req.Period), req.UserID)
}

func (s *ProgressionService) handleBadgesGet(ctx context.Context, data []byte) (any, error) {
	var req userRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return s.GetBadgeOverview(ctx, req.UserID)
}

func (s *ProgressionService) handleBadgeStatsGet(ctx context.Context, data []byte) (any, error) {
	return s.BadgeStatistics(ctx)
}

func (s *ProgressionService) handleLedgerGet(ctx context.Context, data []byte) (any, error) {
	var req userRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, badRequest(err)
	}
	return s.GetLedger(ctx, req.UserID)
}

func badRequest(err error) error {
	return fmt.Errorf("%w: malformed request payload: %v", model.ErrValidation, err)
}
