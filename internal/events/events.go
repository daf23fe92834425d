// Package events defines the domain events emitted by entity-mutating operations
// and the synchronous Bus that carries them to subscribers. Mutating code
// publishes a typed event after the entity write; subscribers run inside the
// same call, sharing the publisher's transaction, so a subscriber failure rolls
// back the triggering write.
package events

import (
	"time"

	"github.com/learnstack/lms-backend/internal/db/models"
)

// Event is one domain event. Name returns a stable dotted identifier used for
// subscription routing and logging.
type Event interface {
	Name() string
}

// AssignmentCreated fires when a new mentorship assignment is created
type AssignmentCreated struct {
	Assignment *models.MentorshipAssignment
}

func (AssignmentCreated) Name() string { return "assignment.created" }

// SessionScheduled fires when a session is scheduled on an assignment
type SessionScheduled struct {
	Session    *models.MentorSession
	Assignment *models.MentorshipAssignment
}

func (SessionScheduled) Name() string { return "session.scheduled" }

// MessageSent fires when either assignment party sends a message
type MessageSent struct {
	Message    *models.MentorMessage
	Assignment *models.MentorshipAssignment
}

func (MessageSent) Name() string { return "message.sent" }

// FeedbackGiven fires when either assignment party leaves feedback
type FeedbackGiven struct {
	Feedback   *models.MentorFeedback
	Assignment *models.MentorshipAssignment
}

func (FeedbackGiven) Name() string { return "feedback.given" }

// GoalCreated fires when a goal is attached to an assignment
type GoalCreated struct {
	Goal       *models.MentorshipGoal
	Assignment *models.MentorshipAssignment
}

func (GoalCreated) Name() string { return "goal.created" }

// GoalDeadlineApproaching fires when a non-terminal goal's target date enters
// the reminder window. Day is the calendar day the check ran on; it feeds the
// dedupe key that limits reminders to one per (recipient, goal, day).
type GoalDeadlineApproaching struct {
	Goal       *models.MentorshipGoal
	Assignment *models.MentorshipAssignment
	Day        time.Time
}

func (GoalDeadlineApproaching) Name() string { return "goal.deadline_approaching" }

// ProgressRecorded fires when a progress note is recorded on an assignment
type ProgressRecorded struct {
	Progress   *models.StudentProgress
	Assignment *models.MentorshipAssignment
}

func (ProgressRecorded) Name() string { return "progress.recorded" }
