// goal_reminder.go implements the GoalReminderJob background job, which
// periodically scans for open mentorship goals whose target date falls inside
// the reminder window and publishes a deadline event for each. The notification
// fanout turns the event into per-party reminder records; the dedupe key on
// (recipient, goal, day) keeps repeated scans within the same day from
// re-emitting, so the job is safe to run as often as configured and across
// server restarts.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// GoalReminderJob periodically emits deadline-approaching events for open goals
type GoalReminderJob struct {
	db       *sqlx.DB
	bus      *events.Bus
	cfg      *config.NotificationsConfig
	interval time.Duration
	stopChan chan struct{}
}

// NewGoalReminderJob creates a new goal reminder job.
// GoalReminderCheckIntervalHours controls how often the scan runs (default 6h).
func NewGoalReminderJob(db *sqlx.DB, bus *events.Bus, cfg *config.NotificationsConfig) *GoalReminderJob {
	hours := cfg.GoalReminderCheckIntervalHours
	if hours <= 0 {
		hours = 6
	}
	return &GoalReminderJob{
		db:       db,
		bus:      bus,
		cfg:      cfg,
		interval: time.Duration(hours) * time.Hour,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background reminder loop.
// It runs an initial scan immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (j *GoalReminderJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("goal reminder job started",
		"check_interval", j.interval,
		"window_days", j.windowDays())

	// Run once immediately on startup
	j.runScan(ctx)

	for {
		select {
		case <-ticker.C:
			j.runScan(ctx)
		case <-j.stopChan:
			slog.Info("goal reminder job stopped")
			return
		case <-ctx.Done():
			slog.Info("goal reminder job context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (j *GoalReminderJob) Stop() {
	close(j.stopChan)
}

func (j *GoalReminderJob) windowDays() int {
	if j.cfg.GoalReminderWindowDays > 0 {
		return j.cfg.GoalReminderWindowDays
	}
	return 3
}

// runScan finds goals due within the window and publishes one deadline event each.
func (j *GoalReminderJob) runScan(ctx context.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	mentorships := repositories.NewMentorshipRepository(j.db)
	goals, err := mentorships.ListGoalsDueWithin(ctx, today, j.windowDays())
	if err != nil {
		slog.Error("goal reminder scan failed", "error", err)
		return
	}
	if len(goals) == 0 {
		return
	}

	slog.Info("goal reminder scan found goals in window", "count", len(goals))

	for _, goal := range goals {
		if !goal.DeadlineWithin(today, j.windowDays()) {
			continue
		}

		assignment, err := mentorships.GetAssignment(ctx, goal.AssignmentID)
		if err != nil {
			slog.Error("goal reminder: failed to load assignment",
				"goal_id", goal.ID,
				"assignment_id", goal.AssignmentID,
				"error", err)
			continue
		}
		if assignment == nil {
			continue
		}

		ev := events.GoalDeadlineApproaching{
			Goal:       goal,
			Assignment: assignment,
			Day:        today,
		}
		if err := j.bus.Publish(ctx, j.db, ev); err != nil {
			slog.Error("goal reminder: failed to publish deadline event",
				"goal_id", goal.ID,
				"error", err)
		}
	}
}
