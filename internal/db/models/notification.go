// Package models - notification.go defines the Notification record written by the
// fanout. Rows are created exclusively by the fanout and mutated only by mark-read.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType tags what kind of event produced a notification
type NotificationType string

const (
	NotificationNewAssignment    NotificationType = "new_assignment"
	NotificationSessionScheduled NotificationType = "session_scheduled"
	NotificationNewMessage       NotificationType = "new_message"
	NotificationFeedbackReceived NotificationType = "feedback_received"
	NotificationGoalCreated      NotificationType = "goal_created"
	NotificationGoalDeadline     NotificationType = "goal_deadline"
	NotificationProgressRecorded NotificationType = "progress_recorded"
)

// NotificationPriority orders notifications for display
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification is one per-recipient record produced by the fanout
type Notification struct {
	ID          string               `db:"id" json:"id"`
	RecipientID string               `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType     `db:"type" json:"type"`
	Priority    NotificationPriority `db:"priority" json:"priority"`
	Title       string               `db:"title" json:"title"`
	Message     string               `db:"message" json:"message"`
	ActionURL   string               `db:"action_url" json:"action_url"`
	Metadata    json.RawMessage      `db:"metadata" json:"metadata"`
	IsRead      bool                 `db:"is_read" json:"is_read"`
	ReadAt      *time.Time           `db:"read_at" json:"read_at,omitempty"`
	ExpiresAt   *time.Time           `db:"expires_at" json:"expires_at,omitempty"`

	RelatedAssignmentID *string `db:"related_assignment_id" json:"related_assignment_id,omitempty"`
	RelatedGoalID       *string `db:"related_goal_id" json:"related_goal_id,omitempty"`

	// DedupeKey is non-nil only for at-most-once notifications (deadline
	// reminders). A partial unique index on this column turns a duplicate
	// emission into a silent no-op.
	DedupeKey *string `db:"dedupe_key" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GoalReminderDedupeKey builds the natural key that limits deadline reminders
// to one per (recipient, goal, day).
func GoalReminderDedupeKey(recipientID, goalID string, day time.Time) string {
	return fmt.Sprintf("goal_deadline:%s:%s:%s", goalID, recipientID, day.Format("2006-01-02"))
}
