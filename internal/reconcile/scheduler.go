package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = time.Minute

// Scheduler runs the reconciler on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	schedule   string
	logger     *logrus.Logger
}

func NewScheduler(reconciler *Reconciler, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		// Skip a tick while the previous pass is still running.
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		reconciler: reconciler,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runJob); err != nil {
		return fmt.Errorf("failed to schedule reconciliation %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("reconciliation scheduled")
	return nil
}

// Stop waits for a running pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reconciliation stopped")
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.reconciler.Run(ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"released": res.Released,
		"reserved": res.Reserved,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("reconciliation failed")
		return
	}
	entry.Debug("reconciliation finished")
}
