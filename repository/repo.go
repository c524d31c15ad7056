package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pawcademy/leaderboard"
	"pawcademy/model"
	"pawcademy/progression"
)

// ledgerWriteRetries bounds the optimistic retry loop on a version
// conflict before the caller sees a transient-failure signal.
const ledgerWriteRetries = 3

type Repository struct {
	mongoclientInstance *mongo.Client
	ledgers             *mongo.Collection
	userBadges          *mongo.Collection
	badges              *mongo.Collection
	tests               *mongo.Collection
	attempts            *mongo.Collection
	pointEvents         *mongo.Collection
}

func NewRepository(client *mongo.Client) *Repository {
	db := client.Database("pawcademy_db")
	return &Repository{
		mongoclientInstance: client,
		ledgers:             db.Collection("ledgers"),
		userBadges:          db.Collection("user_badges"),
		badges:              db.Collection("badges"),
		tests:               db.Collection("tests"),
		attempts:            db.Collection("attempts"),
		pointEvents:         db.Collection("point_events"),
	}
}

// EnsureIndexes creates the indexes the invariants depend on: one ledger
// per user, at most one UserBadge per (user, badge), and a window index for
// period aggregations.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.ledgers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: ledgers index: %v", model.ErrUnavailable, err)
	}
	_, err = r.userBadges.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "badge_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: user_badges index: %v", model.ErrUnavailable, err)
	}
	_, err = r.pointEvents.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "occurred_at", Value: 1}, {Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("%w: point_events index: %v", model.ErrUnavailable, err)
	}
	return nil
}

// GetLedger returns the user's ledger, or a fresh zero ledger (version 0,
// not yet persisted) when the user has no row yet.
func (r *Repository) GetLedger(ctx context.Context, userID string) (model.Ledger, error) {
	var ledger model.Ledger
	err := r.ledgers.FindOne(ctx, bson.M{"user_id": userID}).Decode(&ledger)
	if err == mongo.ErrNoDocuments {
		return progression.NewLedger(userID), nil
	}
	if err != nil {
		return model.Ledger{}, fmt.Errorf("%w: get ledger: %v", model.ErrUnavailable, err)
	}
	return ledger, nil
}

// ApplyCompletion folds one completion event into the user's ledger with an
// optimistic versioned write, retried on conflict, and appends the matching
// point event row. Returns the ledger after the event.
func (r *Repository) ApplyCompletion(ctx context.Context, userID string, ev model.CompletionEvent, at time.Time) (model.Ledger, error) {
	for i := 0; i < ledgerWriteRetries; i++ {
		current, err := r.GetLedger(ctx, userID)
		if err != nil {
			return model.Ledger{}, err
		}

		next, err := progression.Apply(current, ev)
		if err != nil {
			return model.Ledger{}, err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = at.UTC()

		if current.Version == 0 {
			_, err = r.ledgers.InsertOne(ctx, next)
			if mongo.IsDuplicateKeyError(err) {
				continue // another writer created the ledger first
			}
			if err != nil {
				return model.Ledger{}, fmt.Errorf("%w: insert ledger: %v", model.ErrUnavailable, err)
			}
		} else {
			res, err := r.ledgers.ReplaceOne(ctx, bson.M{"user_id": userID, "version": current.Version}, next)
			if err != nil {
				return model.Ledger{}, fmt.Errorf("%w: update ledger: %v", model.ErrUnavailable, err)
			}
			if res.ModifiedCount == 0 {
				continue // lost the race, re-read and retry
			}
		}

		if ev.Points > 0 {
			event := model.PointEvent{UserID: userID, Kind: ev.Kind, Points: ev.Points, OccurredAt: at.UTC()}
			if _, err := r.pointEvents.InsertOne(ctx, event); err != nil {
				return model.Ledger{}, fmt.Errorf("%w: insert point event: %v", model.ErrUnavailable, err)
			}
		}
		return next, nil
	}
	return model.Ledger{}, fmt.Errorf("%w: ledger for user %s", model.ErrConflict, userID)
}

// UpsertStreak sets current_streak_days; the daily-activity check that
// decides resets runs outside this service.
func (r *Repository) UpsertStreak(ctx context.Context, userID string, days int, at time.Time) error {
	update := bson.M{
		"$set":         bson.M{"current_streak_days": days, "updated_at": at.UTC()},
		"$inc":         bson.M{"version": 1},
		"$setOnInsert": bson.M{"user_id": userID, "level": 1},
	}
	_, err := r.ledgers.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: upsert streak: %v", model.ErrUnavailable, err)
	}
	return nil
}

// InsertUserBadge persists an unlock. A duplicate (user, badge) insert hits
// the unique index and is reported as inserted=false with no error, making
// re-unlock attempts no-ops.
func (r *Repository) InsertUserBadge(ctx context.Context, ub model.UserBadge) (bool, error) {
	_, err := r.userBadges.InsertOne(ctx, ub)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: insert user badge: %v", model.ErrUnavailable, err)
	}
	return true, nil
}

func (r *Repository) UnlockedBadges(ctx context.Context, userID string) ([]model.UserBadge, error) {
	cursor, err := r.userBadges.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("%w: unlocked badges: %v", model.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)
	var unlocked []model.UserBadge
	if err = cursor.All(ctx, &unlocked); err != nil {
		return nil, fmt.Errorf("%w: unlocked badges: %v", model.ErrUnavailable, err)
	}
	return unlocked, nil
}

// UnlockTimesSince returns earned_at timestamps for a user's unlocks on or
// after since, for the trend windows.
func (r *Repository) UnlockTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	filter := bson.M{"user_id": userID, "earned_at": bson.M{"$gte": since.UTC()}}
	cursor, err := r.userBadges.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: unlock times: %v", model.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)
	var rows []model.UserBadge
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: unlock times: %v", model.ErrUnavailable, err)
	}
	times := make([]time.Time, len(rows))
	for i, row := range rows {
		times[i] = row.EarnedAt
	}
	return times, nil
}

// BadgeEarnCounts aggregates how many users earned each badge, for the
// admin extremal picks.
func (r *Repository) BadgeEarnCounts(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$badge_code", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.userBadges.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: badge earn counts: %v", model.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)
	var rows []struct {
		Code  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: badge earn counts: %v", model.ErrUnavailable, err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Code] = row.Count
	}
	return counts, nil
}

// BadgeCatalog loads catalog entries from the badges collection. An empty
// result means the built-in default catalog applies; the service decides.
func (r *Repository) BadgeCatalog(ctx context.Context) ([]model.Badge, error) {
	cursor, err := r.badges.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: badge catalog: %v", model.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)
	var catalog []model.Badge
	if err = cursor.All(ctx, &catalog); err != nil {
		return nil, fmt.Errorf("%w: badge catalog: %v", model.ErrUnavailable, err)
	}
	return catalog, nil
}

func (r *Repository) GetTest(ctx context.Context, testID string) (model.Test, error) {
	var test model.Test
	err := r.tests.FindOne(ctx, bson.M{"_id": testID}).Decode(&test)
	if err == mongo.ErrNoDocuments {
		return model.Test{}, fmt.Errorf("%w: test %s", model.ErrNotFound, testID)
	}
	if err != nil {
		return model.Test{}, fmt.Errorf("%w: get test: %v", model.ErrUnavailable, err)
	}
	return test, nil
}

func (r *Repository) InsertAttempt(ctx context.Context, attempt model.Attempt) error {
	if _, err := r.attempts.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("%w: insert attempt: %v", model.ErrUnavailable, err)
	}
	return nil
}

func (r *Repository) GetAttempt(ctx context.Context, attemptID string) (model.Attempt, error) {
	var attempt model.Attempt
	err := r.attempts.FindOne(ctx, bson.M{"_id": attemptID}).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		return model.Attempt{}, fmt.Errorf("%w: attempt %s", model.ErrNotFound, attemptID)
	}
	if err != nil {
		return model.Attempt{}, fmt.Errorf("%w: get attempt: %v", model.ErrUnavailable, err)
	}
	return attempt, nil
}

// FinalizeAttempt completes an attempt exactly once. The update is guarded
// on status=in_progress, so a retried submission of an already-finalized
// attempt matches nothing and the stored result is returned with
// finalizedNow=false; the caller must not re-emit reward events for it.
func (r *Repository) FinalizeAttempt(ctx context.Context, attemptID string, answers []int, elapsedSeconds, score int, passed bool, at time.Time) (model.Attempt, bool, error) {
	finalizedAt := at.UTC()
	update := bson.M{"$set": bson.M{
		"answers":         answers,
		"elapsed_seconds": elapsedSeconds,
		"score":           score,
		"passed":          passed,
		"status":          model.AttemptCompleted,
		"finalized_at":    finalizedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var attempt model.Attempt
	err := r.attempts.FindOneAndUpdate(ctx,
		bson.M{"_id": attemptID, "status": model.AttemptInProgress}, update, opts,
	).Decode(&attempt)
	if err == nil {
		return attempt, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return model.Attempt{}, false, fmt.Errorf("%w: finalize attempt: %v", model.ErrUnavailable, err)
	}

	existing, err := r.GetAttempt(ctx, attemptID)
	if err != nil {
		return model.Attempt{}, false, err
	}
	if existing.Status == model.AttemptCompleted {
		return existing, false, nil
	}
	return model.Attempt{}, false, fmt.Errorf("%w: attempt %s is %s", model.ErrValidation, attemptID, existing.Status)
}

// CancelAttempt discards an in-progress attempt. Cancelling a finalized
// attempt is a validation error.
func (r *Repository) CancelAttempt(ctx context.Context, attemptID string) error {
	res, err := r.attempts.UpdateOne(ctx,
		bson.M{"_id": attemptID, "status": model.AttemptInProgress},
		bson.M{"$set": bson.M{"status": model.AttemptCancelled}},
	)
	if err != nil {
		return fmt.Errorf("%w: cancel attempt: %v", model.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: attempt %s not in progress", model.ErrValidation, attemptID)
	}
	return nil
}

// AllTimeScores snapshots every ledger as a lifetime period score.
func (r *Repository) AllTimeScores(ctx context.Context) ([]leaderboard.PeriodScore, error) {
	cursor, err := r.ledgers.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: all-time scores: %v", model.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)
	var ledgers []model.Ledger
	if err = cursor.All(ctx, &ledgers); err != nil {
		return nil, fmt.Errorf("%w: all-time scores: %v", model.ErrUnavailable, err)
	}
	scores := make([]leaderboard.PeriodScore, len(ledgers))
	for i, l := range ledgers {
		scores[i] = leaderboard.PeriodScore{
			UserID:           l.UserID,
			Points:           l.TotalPoints,
			Level:            l.Level,
			TotalBadges:      l.TotalBadges,
			CoursesCompleted: l.CoursesCompleted,
		}
	}
	return scores, nil
}

// PeriodScores sums point events on or after the window start per user and
// joins the display fields in from the ledgers collection.
func (r *Repository) PeriodScores(ctx context.Context, since time.Time) ([]leaderboard.PeriodScore, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"occurred_at": bson.M{"$gte": since.UTC()}}}},
		{{Key: "$group", Value: bson.M{"_id": "$user_id", "points": bson.M{"$sum": "$points"}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "ledgers",
			"localField":   "_id",
			"foreignField": "user_id",
			"as":           "ledger",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$ledger", "preserveNullAndEmptyArrays": true}}},
	}
	cursor, err := r.pointEvents.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: period scores: %v", model.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)
	var rows []struct {
		UserID string       `bson:"_id"`
		Points int          `bson:"points"`
		Ledger model.Ledger `bson:"ledger"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: period scores: %v", model.ErrUnavailable, err)
	}
	scores := make([]leaderboard.PeriodScore, len(rows))
	for i, row := range rows {
		scores[i] = leaderboard.PeriodScore{
			UserID:           row.UserID,
			Points:           row.Points,
			Level:            row.Ledger.Level,
			TotalBadges:      row.Ledger.TotalBadges,
			CoursesCompleted: row.Ledger.CoursesCompleted,
		}
	}
	return scores, nil
}
