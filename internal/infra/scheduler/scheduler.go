package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"outreach_scheduler/internal/app"
	"outreach_scheduler/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ErrPassInProgress is returned by RunNow while another pass is still running.
var ErrPassInProgress = errors.New("an outreach pass is already running")

// PassRunner performs one outreach pass.
type PassRunner interface {
	Run(ctx context.Context) (*app.RunResult, error)
}

// OutreachCron triggers outreach passes on a cron schedule and on demand.
// At most one pass runs at a time.
type OutreachCron struct {
	cronEngine *cron.Cron
	runner     PassRunner
	logger     *logrus.Entry
	cronSpec   string // e.g., "*/5 * * * *" (every 5 minutes)
	timeout    time.Duration

	running sync.Mutex
}

func NewOutreachCron(runner PassRunner, logger *logrus.Entry, cronSpec string, timeout time.Duration) *OutreachCron {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	cronLog := cron.PrintfLogger(logger.WithField("component", "cron"))
	return &OutreachCron{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLog)),
		),
		runner:   runner,
		logger:   logger,
		cronSpec: cronSpec,
		timeout:  timeout,
	}
}

// Start registers the pass job and starts the cron engine.
func (s *OutreachCron) Start() error {
	s.logger.Info("Starting outreach scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for outreach pass.")
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunNow(ctx); err != nil {
			if errors.Is(err, ErrPassInProgress) {
				s.logger.Warn("Previous outreach pass still running, skipping this tick")
				return
			}
			s.logger.WithError(err).Error("Outreach pass failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Outreach scheduler started.")
	return nil
}

// RunNow runs a pass immediately unless one is already in progress.
func (s *OutreachCron) RunNow(ctx context.Context) (*app.RunResult, error) {
	if !s.running.TryLock() {
		metrics.SchedulerRuns.WithLabelValues(metrics.RunSkipped).Inc()
		return nil, ErrPassInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	res, err := s.runner.Run(ctx)
	metrics.SchedulerRunDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.SchedulerRuns.WithLabelValues(metrics.RunFailed).Inc()
	case res != nil && res.Err() != nil:
		metrics.SchedulerRuns.WithLabelValues(metrics.RunPartial).Inc()
	default:
		metrics.SchedulerRuns.WithLabelValues(metrics.RunSucceeded).Inc()
	}
	return res, err
}

// Stop stops scheduling new passes and waits for a running one to finish.
func (s *OutreachCron) Stop() {
	s.logger.Info("Stopping outreach scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Outreach scheduler gracefully stopped.")
}
