package model

import (
	"time"
)

type GenericResponse struct {
	Success bool        `json:"success"`
	Status  int         `json:"status"`
	Payload interface{} `json:"payload,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	ErrorType string `json:"errorType"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

// Ledger holds a learner's durable progression counters. One ledger per
// user; every field except current_streak_days is monotonically
// non-decreasing. Level is derived from experience points and must be
// recomputed on every mutation.
type Ledger struct {
	UserID            string    `bson:"user_id" json:"userId"`
	TotalPoints       int       `bson:"total_points" json:"totalPoints"`
	ExperiencePoints  int       `bson:"experience_points" json:"experiencePoints"`
	Level             int       `bson:"level" json:"level"`
	LessonsCompleted  int       `bson:"lessons_completed" json:"lessonsCompleted"`
	CoursesCompleted  int       `bson:"courses_completed" json:"coursesCompleted"`
	TestsPassed       int       `bson:"tests_passed" json:"testsPassed"`
	TotalBadges       int       `bson:"total_badges" json:"totalBadges"`
	CurrentStreakDays int       `bson:"current_streak_days" json:"currentStreakDays"`
	Version           int       `bson:"version" json:"-"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updatedAt"`
}

type BadgeCategory string

const (
	CategoryProgress  BadgeCategory = "progress"
	CategoryCourses   BadgeCategory = "courses"
	CategoryKnowledge BadgeCategory = "knowledge"
	CategoryTime      BadgeCategory = "time"
	CategorySpecial   BadgeCategory = "special"
	CategorySocial    BadgeCategory = "social"
)

type BadgeTier string

const (
	TierBronze   BadgeTier = "bronze"
	TierSilver   BadgeTier = "silver"
	TierGold     BadgeTier = "gold"
	TierPlatinum BadgeTier = "platinum"
	TierDiamond  BadgeTier = "diamond"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Metric names the ledger counter a badge requirement is checked against.
type Metric string

const (
	MetricLessonsCompleted Metric = "lessons_completed"
	MetricCoursesCompleted Metric = "courses_completed"
	MetricTestsPassed      Metric = "tests_passed"
	MetricTotalPoints      Metric = "total_points"
	MetricLevel            Metric = "level"
	MetricStreakDays       Metric = "streak_days"
	MetricBadgesEarned     Metric = "badges_earned"
)

// Requirement is a badge's unlock predicate: metric >= threshold.
type Requirement struct {
	Metric    Metric `bson:"metric" json:"metric"`
	Threshold int    `bson:"threshold" json:"threshold"`
}

// Badge is a catalog entry, immutable at runtime.
type Badge struct {
	Code        string        `bson:"code" json:"code"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description" json:"description"`
	Category    BadgeCategory `bson:"category" json:"category"`
	Tier        BadgeTier     `bson:"tier" json:"tier"`
	Rarity      BadgeRarity   `bson:"rarity" json:"rarity"`
	Points      int           `bson:"points" json:"points"`
	IsSecret    bool          `bson:"is_secret" json:"isSecret"`
	Requirement Requirement   `bson:"requirement" json:"requirement"`
}

// UserBadge joins a user to an earned badge. At most one row per
// (user, badge) pair, enforced by a unique index; never updated after
// insertion.
type UserBadge struct {
	UserID    string    `bson:"user_id" json:"userId"`
	BadgeCode string    `bson:"badge_code" json:"badgeCode"`
	EarnedAt  time.Time `bson:"earned_at" json:"earnedAt"`
}

type Period string

const (
	PeriodAllTime   Period = "all_time"
	PeriodThisMonth Period = "this_month"
	PeriodThisWeek  Period = "this_week"
)

// LeaderboardEntry is derived per request, never stored.
type LeaderboardEntry struct {
	UserID           string `bson:"user_id" json:"userId"`
	Points           int    `bson:"points" json:"points"`
	Level            int    `bson:"level" json:"level"`
	TotalBadges      int    `bson:"total_badges" json:"totalBadges"`
	CoursesCompleted int    `bson:"courses_completed" json:"coursesCompleted"`
	Rank             int    `bson:"rank" json:"rank"`
}

// PointEvent records a single point grant with its timestamp. Period
// leaderboards are aggregated from these rows rather than lifetime totals.
type PointEvent struct {
	UserID     string    `bson:"user_id" json:"userId"`
	Kind       EventKind `bson:"kind" json:"kind"`
	Points     int       `bson:"points" json:"points"`
	OccurredAt time.Time `bson:"occurred_at" json:"occurredAt"`
}

// OptionsPerQuestion is fixed for module tests: four choices each.
const OptionsPerQuestion = 4

type TestQuestion struct {
	ID            string   `bson:"id" json:"id"`
	Question      string   `bson:"question" json:"question"`
	Options       []string `bson:"options" json:"options"`
	CorrectAnswer int      `bson:"correct_answer" json:"-"`
}

// Test is a module test: an ordered question set with a passing threshold
// and the points awarded on a pass.
type Test struct {
	ID           string         `bson:"_id,omitempty" json:"id"`
	ModuleID     string         `bson:"module_id" json:"moduleId"`
	Title        string         `bson:"title" json:"title"`
	Questions    []TestQuestion `bson:"questions" json:"questions"`
	PassingScore int            `bson:"passing_score" json:"passingScore"`
	RewardPoints int            `bson:"reward_points" json:"rewardPoints"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptCancelled  AttemptStatus = "cancelled"
)

// Attempt is one timed instance of taking a module test. QuestionOrder maps
// shuffled position -> original question index; Answers are stored in
// shuffled order with -1 for unanswered slots.
type Attempt struct {
	ID             string        `bson:"_id" json:"id"`
	UserID         string        `bson:"user_id" json:"userId"`
	TestID         string        `bson:"test_id" json:"testId"`
	QuestionOrder  []int         `bson:"question_order" json:"questionOrder"`
	Answers        []int         `bson:"answers" json:"answers"`
	ElapsedSeconds int           `bson:"elapsed_seconds" json:"elapsedSeconds"`
	Status         AttemptStatus `bson:"status" json:"status"`
	Score          int           `bson:"score" json:"score"`
	Passed         bool          `bson:"passed" json:"passed"`
	StartedAt      time.Time     `bson:"started_at" json:"startedAt"`
	FinalizedAt    *time.Time    `bson:"finalized_at,omitempty" json:"finalizedAt,omitempty"`
}
