// Package models - mentorship.go defines the MentorshipAssignment aggregate and its
// nested records: sessions, messages, feedback, goals, and progress entries.
package models

import "time"

// AssignmentStatus is the state of a mentorship assignment.
// Transitions: pending → active → completed | cancelled.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// CanTransitionTo reports whether the status state machine permits moving to next
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	switch s {
	case AssignmentPending:
		return next == AssignmentActive || next == AssignmentCancelled
	case AssignmentActive:
		return next == AssignmentCompleted || next == AssignmentCancelled
	}
	return false
}

// MentorshipAssignment links one mentor, one student, and one cohort
type MentorshipAssignment struct {
	ID        string           `db:"id" json:"id"`
	MentorID  string           `db:"mentor_id" json:"mentor_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	CohortID  string           `db:"cohort_id" json:"cohort_id"`
	Status    AssignmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// OtherParty returns the assignment participant that is not the given user.
// The second return value is false when userID is neither party.
func (a *MentorshipAssignment) OtherParty(userID string) (string, bool) {
	switch userID {
	case a.MentorID:
		return a.StudentID, true
	case a.StudentID:
		return a.MentorID, true
	}
	return "", false
}

// SessionStatus is the state of a scheduled mentor session
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

// MentorSession is a scheduled meeting between mentor and student
type MentorSession struct {
	ID              string        `db:"id" json:"id"`
	AssignmentID    string        `db:"assignment_id" json:"assignment_id"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Topic           string        `db:"topic" json:"topic"`
	Status          SessionStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// MentorMessage is a message between the two assignment parties
type MentorMessage struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	SenderID     string    `db:"sender_id" json:"sender_id"`
	Body         string    `db:"body" json:"body"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MentorFeedback is a rating and comment left by one party about the assignment
type MentorFeedback struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	AuthorID     string    `db:"author_id" json:"author_id"`
	Rating       int       `db:"rating" json:"rating"`
	Comments     string    `db:"comments" json:"comments"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GoalStatus is the state of a mentorship goal
type GoalStatus string

const (
	GoalOpen       GoalStatus = "open"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalCancelled  GoalStatus = "cancelled"
)

// Terminal reports whether the goal can no longer change; terminal goals never
// trigger deadline reminders.
func (s GoalStatus) Terminal() bool {
	return s == GoalCompleted || s == GoalCancelled
}

// MentorshipGoal is a dated objective attached to an assignment
type MentorshipGoal struct {
	ID           string     `db:"id" json:"id"`
	AssignmentID string     `db:"assignment_id" json:"assignment_id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Status       GoalStatus `db:"status" json:"status"`
	TargetDate   *time.Time `db:"target_date" json:"target_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// DeadlineWithin reports whether the goal's target date falls inside the
// reminder window ending windowDays after "today" (inclusive), and the goal is
// still open. Goals without a target date never match.
func (g *MentorshipGoal) DeadlineWithin(today time.Time, windowDays int) bool {
	if g.TargetDate == nil || g.Status.Terminal() {
		return false
	}
	day := today.Truncate(24 * time.Hour)
	target := g.TargetDate.Truncate(24 * time.Hour)
	if target.Before(day) {
		return false
	}
	return !target.After(day.AddDate(0, 0, windowDays))
}

// StudentProgress is a progress note recorded against an assignment
type StudentProgress struct {
	ID              string    `db:"id" json:"id"`
	AssignmentID    string    `db:"assignment_id" json:"assignment_id"`
	Note            string    `db:"note" json:"note"`
	PercentComplete int       `db:"percent_complete" json:"percent_complete"`
	RecordedAt      time.Time `db:"recorded_at" json:"recorded_at"`
}
