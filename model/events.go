package model

// EventKind is the closed set of completion events a ledger can absorb.
type EventKind string

const (
	EventLessonCompleted EventKind = "lesson_completed"
	EventCourseCompleted EventKind = "course_completed"
	EventBadgeUnlocked   EventKind = "badge_unlocked"
	EventTestPassed      EventKind = "test_passed"
)

// CompletionEvent is the only input that mutates a ledger.
type CompletionEvent struct {
	Kind   EventKind `json:"kind"`
	Points int       `json:"points"`
}

func LessonCompleted(points int) CompletionEvent {
	return CompletionEvent{Kind: EventLessonCompleted, Points: points}
}

func CourseCompleted(points int) CompletionEvent {
	return CompletionEvent{Kind: EventCourseCompleted, Points: points}
}

func BadgeUnlocked(points int) CompletionEvent {
	return CompletionEvent{Kind: EventBadgeUnlocked, Points: points}
}

func TestPassed(points int) CompletionEvent {
	return CompletionEvent{Kind: EventTestPassed, Points: points}
}
