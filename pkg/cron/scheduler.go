// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	purgeSchedule = "*/15 * * * *"
	pruneSchedule = "*/5 * * * *"
)

// ContextPurger deletes expired assistant context snapshots
type ContextPurger interface {
	PurgeExpiredContexts(ctx context.Context) (int64, error)
}

// LimiterPruner drops idle rate limiter buckets
type LimiterPruner interface {
	Prune() int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	purger  ContextPurger
	limiter LimiterPruner
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler. limiter may be nil.
func NewScheduler(purger ContextPurger, limiter LimiterPruner, logger *slog.Logger) *Scheduler {
	// standard 5-field format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		purger:  purger,
		limiter: limiter,
		logger:  logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(purgeSchedule, s.purgeExpiredContexts); err != nil {
		return err
	}
	if s.limiter != nil {
		if _, err := s.cron.AddFunc(pruneSchedule, s.pruneLimiter); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs every job once synchronously.
func (s *Scheduler) RunNow() {
	s.purgeExpiredContexts()
	if s.limiter != nil {
		s.pruneLimiter()
	}
}

func (s *Scheduler) purgeExpiredContexts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.purger.PurgeExpiredContexts(ctx)
	if err != nil {
		s.logger.Error("failed to purge expired assistant contexts", slog.Any("error", err))
		return
	}
	s.logger.Info("expired assistant contexts purged", slog.Int64("removed", removed))
}

func (s *Scheduler) pruneLimiter() {
	removed := s.limiter.Prune()
	s.logger.Debug("rate limiter pruned", slog.Int("removed", removed))
}
