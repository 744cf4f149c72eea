// Package retention implements the Retention Sweeper (spec.md §4.6): a
// daily cron-scheduled deletion of ExecutionLog rows older than the
// configured retention window.
package retention

import (
	"context"
	"log"
	"time"

	"github.com/minisource/httpscheduler/config"
	"github.com/minisource/httpscheduler/internal/repository"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically deletes old ExecutionLog rows.
type Sweeper struct {
	logRepo *repository.LogRepository
	cfg     config.RetentionConfig
	cron    *cron.Cron
}

// NewSweeper creates a Sweeper that will run on its own *cron.Cron
// instance in location, at cfg.SweepCron.
func NewSweeper(logRepo *repository.LogRepository, cfg config.RetentionConfig, location *time.Location) *Sweeper {
	return &Sweeper{
		logRepo: logRepo,
		cfg:     cfg,
		cron:    cron.New(cron.WithLocation(location)),
	}
}

// Start schedules the daily sweep and, if cfg.CleanupOnBoot is set, runs
// one sweep immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.SweepCron, func() {
		if _, err := s.SweepNow(ctx, nil); err != nil {
			log.Printf("retention: sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()

	if s.cfg.CleanupOnBoot {
		if _, err := s.SweepNow(ctx, nil); err != nil {
			log.Printf("retention: startup sweep failed: %v", err)
		}
	}
	return nil
}

// Stop halts the sweep schedule.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepNow deletes every ExecutionLog older than retentionOverride days
// (or cfg.Days if nil), logging start/end/duration/deleted-count. A
// retention window <= 0 is a no-op, per spec.md §4.6's "must be > 0".
func (s *Sweeper) SweepNow(ctx context.Context, retentionOverride *int) (int64, error) {
	days := s.cfg.Days
	if retentionOverride != nil {
		days = *retentionOverride
	}
	if days <= 0 {
		return 0, nil
	}

	start := time.Now()
	cutoff := start.AddDate(0, 0, -days)

	log.Printf("retention: sweep starting, deleting execution_logs older than %s", cutoff.Format(time.RFC3339))

	deleted, err := s.logRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("retention: sweep failed after %s: %v", time.Since(start), err)
		return 0, err
	}

	log.Printf("retention: sweep finished in %s, deleted %d rows", time.Since(start), deleted)
	return deleted, nil
}
