package dump

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// Scheduler executes runs on a cron expression until the context is
// cancelled. Firings never overlap; a tick arriving while the previous
// run is still going is skipped.
type Scheduler struct {
	expression string
	logger     *logging.Logger
}

// NewScheduler creates a scheduler for a standard 5-field cron
// expression.
func NewScheduler(expression string, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Scheduler{expression: expression, logger: logger}
}

// Run blocks, invoking fire on every scheduled tick, until ctx is done.
// The context is passed through to fire so an in-flight run observes
// cancellation.
func (s *Scheduler) Run(ctx context.Context, fire func(context.Context)) error {
	cronLogger := cron.PrintfLogger(s.logger)
	runner := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := runner.AddFunc(s.expression, func() { fire(ctx) }); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid schedule expression %q", s.expression), err)
	}

	runner.Start()

	if entries := runner.Entries(); len(entries) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"schedule": s.expression,
			"next_run": entries[0].Next.Format("2006-01-02 15:04:05 MST"),
		}).Info("Scheduler started")
	}

	<-ctx.Done()

	s.logger.Info("Scheduler stopping, waiting for any running dump to finish")
	stopCtx := runner.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")

	return nil
}
