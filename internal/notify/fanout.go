// fanout.go implements the notification fanout: an event-bus subscriber that turns
// domain events into per-recipient notification records, plus an optional
// best-effort email per record.
//
// Notification writes go through the executor the publisher passed to the bus,
// so they commit or roll back with the triggering entity write. Email delivery
// runs asynchronously after the insert and never surfaces a failure to the
// publisher.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
	"github.com/learnstack/lms-backend/internal/safego"
	"github.com/learnstack/lms-backend/internal/telemetry"
)

const emailLookupTimeout = 10 * time.Second

// Fanout subscribes to domain events and writes one notification per recipient
type Fanout struct {
	cfg *config.NotificationsConfig
	// db serves the async email path's user lookup; notification writes use the
	// publisher's executor instead. A nil db disables email entirely.
	db      *sqlx.DB
	emailer Emailer
}

// NewFanout creates a notification fanout. db and emailer may be nil when the
// email side channel is not wanted (tests, rollup-only deployments).
func NewFanout(cfg *config.NotificationsConfig, db *sqlx.DB, emailer Emailer) *Fanout {
	return &Fanout{cfg: cfg, db: db, emailer: emailer}
}

// Register subscribes the fanout to every event it produces notifications for
func (f *Fanout) Register(bus *events.Bus) {
	names := []string{
		events.AssignmentCreated{}.Name(),
		events.SessionScheduled{}.Name(),
		events.MessageSent{}.Name(),
		events.FeedbackGiven{}.Name(),
		events.GoalCreated{}.Name(),
		events.GoalDeadlineApproaching{}.Name(),
		events.ProgressRecorded{}.Name(),
	}
	for _, name := range names {
		bus.Subscribe(name, f.handle)
	}
}

// handle dispatches one event to its notification builder
func (f *Fanout) handle(ctx context.Context, ext sqlx.ExtContext, ev events.Event) error {
	switch ev := ev.(type) {
	case events.AssignmentCreated:
		return f.onAssignmentCreated(ctx, ext, ev)
	case events.SessionScheduled:
		return f.onSessionScheduled(ctx, ext, ev)
	case events.MessageSent:
		return f.onMessageSent(ctx, ext, ev)
	case events.FeedbackGiven:
		return f.onFeedbackGiven(ctx, ext, ev)
	case events.GoalCreated:
		return f.onGoalCreated(ctx, ext, ev)
	case events.GoalDeadlineApproaching:
		return f.onGoalDeadline(ctx, ext, ev)
	case events.ProgressRecorded:
		return f.onProgressRecorded(ctx, ext, ev)
	}
	return fmt.Errorf("fanout: unexpected event %s", ev.Name())
}

// Both parties receive an independent notification for a new assignment.
func (f *Fanout) onAssignmentCreated(ctx context.Context, ext sqlx.ExtContext, ev events.AssignmentCreated) error {
	a := ev.Assignment
	url := assignmentURL(a.ID)

	mentorNote := &models.Notification{
		RecipientID:         a.MentorID,
		Type:                models.NotificationNewAssignment,
		Priority:            models.PriorityNormal,
		Title:               "New mentorship assignment",
		Message:             "You have been assigned a new student.",
		ActionURL:           url,
		RelatedAssignmentID: &a.ID,
	}
	if err := f.emit(ctx, ext, mentorNote); err != nil {
		return err
	}

	studentNote := &models.Notification{
		RecipientID:         a.StudentID,
		Type:                models.NotificationNewAssignment,
		Priority:            models.PriorityNormal,
		Title:               "New mentorship assignment",
		Message:             "You have been assigned a new mentor.",
		ActionURL:           url,
		RelatedAssignmentID: &a.ID,
	}
	return f.emit(ctx, ext, studentNote)
}

func (f *Fanout) onSessionScheduled(ctx context.Context, ext sqlx.ExtContext, ev events.SessionScheduled) error {
	a := ev.Assignment
	when := ev.Session.ScheduledAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	message := fmt.Sprintf("A mentoring session is scheduled for %s.", when)
	if ev.Session.Topic != "" {
		message = fmt.Sprintf("A mentoring session on %q is scheduled for %s.", ev.Session.Topic, when)
	}

	for _, recipient := range []string{a.MentorID, a.StudentID} {
		n := &models.Notification{
			RecipientID:         recipient,
			Type:                models.NotificationSessionScheduled,
			Priority:            models.PriorityNormal,
			Title:               "Session scheduled",
			Message:             message,
			ActionURL:           assignmentURL(a.ID),
			RelatedAssignmentID: &a.ID,
		}
		if err := f.emit(ctx, ext, n); err != nil {
			return err
		}
	}
	return nil
}

// The message recipient is whichever assignment party is not the sender.
func (f *Fanout) onMessageSent(ctx context.Context, ext sqlx.ExtContext, ev events.MessageSent) error {
	recipient, ok := ev.Assignment.OtherParty(ev.Message.SenderID)
	if !ok {
		return fmt.Errorf("fanout: message sender %s is not a party of assignment %s",
			ev.Message.SenderID, ev.Assignment.ID)
	}

	n := &models.Notification{
		RecipientID:         recipient,
		Type:                models.NotificationNewMessage,
		Priority:            models.PriorityNormal,
		Title:               "New message",
		Message:             "You have a new message in your mentorship conversation.",
		ActionURL:           assignmentURL(ev.Assignment.ID),
		RelatedAssignmentID: &ev.Assignment.ID,
	}
	return f.emit(ctx, ext, n)
}

func (f *Fanout) onFeedbackGiven(ctx context.Context, ext sqlx.ExtContext, ev events.FeedbackGiven) error {
	recipient, ok := ev.Assignment.OtherParty(ev.Feedback.AuthorID)
	if !ok {
		return fmt.Errorf("fanout: feedback author %s is not a party of assignment %s",
			ev.Feedback.AuthorID, ev.Assignment.ID)
	}

	n := &models.Notification{
		RecipientID:         recipient,
		Type:                models.NotificationFeedbackReceived,
		Priority:            models.PriorityNormal,
		Title:               "Feedback received",
		Message:             fmt.Sprintf("You received a %d-star feedback rating.", ev.Feedback.Rating),
		ActionURL:           assignmentURL(ev.Assignment.ID),
		RelatedAssignmentID: &ev.Assignment.ID,
	}
	return f.emit(ctx, ext, n)
}

func (f *Fanout) onGoalCreated(ctx context.Context, ext sqlx.ExtContext, ev events.GoalCreated) error {
	a := ev.Assignment
	for _, recipient := range []string{a.MentorID, a.StudentID} {
		n := &models.Notification{
			RecipientID:         recipient,
			Type:                models.NotificationGoalCreated,
			Priority:            models.PriorityNormal,
			Title:               "New goal",
			Message:             fmt.Sprintf("Goal %q was added to your mentorship.", ev.Goal.Title),
			ActionURL:           assignmentURL(a.ID),
			RelatedAssignmentID: &a.ID,
			RelatedGoalID:       &ev.Goal.ID,
		}
		if err := f.emit(ctx, ext, n); err != nil {
			return err
		}
	}
	return nil
}

// Deadline reminders go to both parties and carry a dedupe key, so re-running
// the reminder scan within the same day re-emits nothing.
func (f *Fanout) onGoalDeadline(ctx context.Context, ext sqlx.ExtContext, ev events.GoalDeadlineApproaching) error {
	a := ev.Assignment
	g := ev.Goal
	var due string
	if g.TargetDate != nil {
		due = g.TargetDate.Format("2006-01-02")
	}

	for _, recipient := range []string{a.MentorID, a.StudentID} {
		key := models.GoalReminderDedupeKey(recipient, g.ID, ev.Day)
		n := &models.Notification{
			RecipientID:         recipient,
			Type:                models.NotificationGoalDeadline,
			Priority:            models.PriorityHigh,
			Title:               "Goal deadline approaching",
			Message:             fmt.Sprintf("Goal %q is due on %s.", g.Title, due),
			ActionURL:           assignmentURL(a.ID),
			RelatedAssignmentID: &a.ID,
			RelatedGoalID:       &g.ID,
			DedupeKey:           &key,
		}
		if err := f.emit(ctx, ext, n); err != nil {
			return err
		}
	}
	return nil
}

// Progress notes are recorded by the student; the mentor is notified.
func (f *Fanout) onProgressRecorded(ctx context.Context, ext sqlx.ExtContext, ev events.ProgressRecorded) error {
	a := ev.Assignment
	n := &models.Notification{
		RecipientID:         a.MentorID,
		Type:                models.NotificationProgressRecorded,
		Priority:            models.PriorityLow,
		Title:               "Progress recorded",
		Message:             fmt.Sprintf("Your student reported %d%% completion.", ev.Progress.PercentComplete),
		ActionURL:           assignmentURL(a.ID),
		RelatedAssignmentID: &a.ID,
	}
	return f.emit(ctx, ext, n)
}

// emit inserts one notification through the publisher's executor. A dedupe
// conflict is a silent skip; a successful insert bumps the metric and queues
// the optional email.
func (f *Fanout) emit(ctx context.Context, ext sqlx.ExtContext, n *models.Notification) error {
	repo := repositories.NewNotificationRepository(ext)
	inserted, err := repo.Create(ctx, n)
	if err != nil {
		return err
	}
	if !inserted {
		slog.Debug("notification deduped",
			"type", n.Type,
			"recipient_id", n.RecipientID)
		return nil
	}

	telemetry.NotificationsEmittedTotal.WithLabelValues(string(n.Type)).Inc()
	f.queueEmail(n)
	return nil
}

// queueEmail delivers the notification by email in the background. Lookup and
// delivery failures are logged and counted, never returned: the notification
// row is already written and must stand regardless.
func (f *Fanout) queueEmail(n *models.Notification) {
	if !f.cfg.Email.Enabled || f.cfg.Email.SMTP.Host == "" || f.db == nil || f.emailer == nil {
		return
	}

	recipientID := n.RecipientID
	subject := n.Title
	body := n.Message

	safego.Go("notification-email", func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailLookupTimeout)
		defer cancel()

		user, err := repositories.NewUserRepository(f.db).GetByID(ctx, recipientID)
		if err != nil || user == nil || user.Email == "" {
			telemetry.NotificationEmailFailuresTotal.Inc()
			slog.Warn("notification email skipped: recipient lookup failed",
				"recipient_id", recipientID,
				"error", err)
			return
		}

		if err := f.emailer.Send(user.Email, subject, body); err != nil {
			telemetry.NotificationEmailFailuresTotal.Inc()
			slog.Warn("notification email delivery failed",
				"recipient_id", recipientID,
				"error", err)
		}
	})
}

func assignmentURL(id string) string {
	return "/mentorship/assignments/" + id
}
