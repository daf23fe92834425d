// rollup_scheduler.go implements the RollupScheduler, the in-process cron wrapper
// that drives the analytics aggregator. The daily job aggregates yesterday's
// activity shortly after midnight UTC; an existing row makes a rerun a no-op
// unless analytics.force is set, so overlapping or restarted schedules are safe.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/learnstack/lms-backend/internal/analytics"
	"github.com/learnstack/lms-backend/internal/config"
)

// RollupScheduler runs the daily analytics rollup pass on a cron schedule
type RollupScheduler struct {
	aggregator *analytics.Aggregator
	cfg        *config.AnalyticsConfig
	cron       *cron.Cron
}

// NewRollupScheduler creates a rollup scheduler. Call Start to begin.
func NewRollupScheduler(aggregator *analytics.Aggregator, cfg *config.AnalyticsConfig) *RollupScheduler {
	return &RollupScheduler{
		aggregator: aggregator,
		cfg:        cfg,
		cron:       cron.New(),
	}
}

// Start registers the daily job and starts the cron scheduler
func (s *RollupScheduler) Start(ctx context.Context) error {
	schedule := s.cfg.DailySchedule
	if schedule == "" {
		schedule = "15 0 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
		slog.Info("starting daily rollup pass", "date", yesterday.Format("2006-01-02"))

		if err := s.aggregator.RunDaily(ctx, yesterday, s.cfg.Force); err != nil {
			slog.Error("daily rollup pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily rollup: %w", err)
	}

	s.cron.Start()
	slog.Info("rollup scheduler started", "daily_schedule", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish
func (s *RollupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("rollup scheduler stopped")
}
