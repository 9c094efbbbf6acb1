// Package scheduler runs periodic helpdesk housekeeping.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

const jobTimeout = time.Minute

// Backlogger summarises the escalation backlog.
type Backlogger interface {
	Backlog(ctx context.Context, staleAfter time.Duration) (*service.PendingSummary, error)
}

// Scheduler owns the cron runner and its jobs
type Scheduler struct {
	cron       *cron.Cron
	backlog    Backlogger
	staleAfter time.Duration
	log        *logger.Logger
}

// New creates a scheduler. Jobs are added by Start.
func New(backlog Backlogger, staleAfter time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		backlog:    backlog,
		staleAfter: staleAfter,
		log:        log,
	}
}

// Start schedules the escalation digest with the given cron spec and
// starts the runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.digestJob); err != nil {
		return fmt.Errorf("schedule escalation digest %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info("Scheduler started", "digest", spec, "stale_after", s.staleAfter.String())
	return nil
}

// Stop halts the runner and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) digestJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	s.Digest(ctx)
}

// Digest logs the size of the escalation backlog. Stale escalations are
// reported at warn level.
func (s *Scheduler) Digest(ctx context.Context) *service.PendingSummary {
	summary, err := s.backlog.Backlog(ctx, s.staleAfter)
	if err != nil {
		s.log.LogError(err, "Escalation digest failed")
		return nil
	}

	if summary.Stale > 0 {
		s.log.Warn("Escalations waiting for staff",
			"pending", summary.Pending,
			"stale", summary.Stale,
			"stale_after", summary.StaleAfter,
			"oldest_at", summary.OldestAt,
		)
	} else {
		s.log.Info("Escalation digest", "pending", summary.Pending)
	}
	return summary
}
