// Package scheduler drives the agent's periodic reporting loop. Activity
// reports and screenshot captures run on independent cadences; a slow or
// failing action never delays the next tick or the other action, and the
// loop itself only exits on context cancellation.
package scheduler

import (
	"context"
	"time"

	"sightline/internal/agent/config"

	"go.uber.org/zap"
)

// loopCooldown is how long the loop pauses after an unexpected panic
// before resuming. Distinct from the report interval so a persistently
// broken loop cannot spin hot.
const loopCooldown = 60 * time.Second

// Sender sends the three report kinds to the collector.
// Implemented by reporter.Reporter.
type Sender interface {
	ReportIdentity(ctx context.Context) error
	ReportActivity(ctx context.Context) error
	ReportScreenshot(ctx context.Context) error
}

// Scheduler owns the reporting loop state. The lastScreenshot watermark is
// written only by the loop goroutine, never by dispatched actions, so no
// locking is needed.
type Scheduler struct {
	config *config.Config
	logger *zap.Logger
	sender Sender

	lastScreenshot time.Time

	// injected for tests; real clock in production
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates new scheduler
func New(cfg *config.Config, sender Sender, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config: cfg,
		logger: logger,
		sender: sender,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Run runs the reporting loop until ctx is canceled. The returned error is
// always the context's error; no report failure propagates this far.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Agent scheduler starting",
		zap.String("agent_id", s.config.Agent.ID),
		zap.Duration("report_interval", s.config.Agent.ReportInterval),
		zap.Duration("screenshot_interval", s.config.Agent.ScreenshotInterval))

	// One-time identity report: best effort, concurrent, never retried
	// in-process. A failure here is picked up on the next restart.
	s.dispatch(ctx, "identity", s.sender.ReportIdentity)

	// Negative watermark forces a screenshot on the first tick.
	s.lastScreenshot = s.now().Add(-s.config.Agent.ScreenshotInterval)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("Agent scheduler stopping")
			return err
		}
		s.runIteration(ctx)
	}
}

// runIteration performs one tick of the loop. Panics are confined here:
// the loop logs, cools down and resumes.
func (s *Scheduler) runIteration(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in scheduler loop, cooling down",
				zap.Any("panic", r),
				zap.Duration("cooldown", loopCooldown))
			s.sleep(ctx, loopCooldown)
		}
	}()

	now := s.now()

	s.dispatch(ctx, "activity", s.sender.ReportActivity)

	if now.Sub(s.lastScreenshot) >= s.config.Agent.ScreenshotInterval {
		// Advance the watermark before the outcome is known: steady
		// cadence takes priority over guaranteed delivery.
		s.lastScreenshot = now
		s.dispatch(ctx, "screenshot", s.sender.ReportScreenshot)
	}

	s.sleep(ctx, s.config.Agent.ReportInterval)
}

// dispatch runs one action on its own goroutine. Errors and panics stay
// inside the action; the loop never sees them.
func (s *Scheduler) dispatch(ctx context.Context, name string, fn func(context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in dispatched action",
					zap.String("action", name),
					zap.Any("panic", r))
			}
		}()

		if err := fn(ctx); err != nil {
			s.logger.Error("Action failed",
				zap.String("action", name),
				zap.Error(err))
		}
	}()
}

// sleepContext sleeps for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
