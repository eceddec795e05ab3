package searchindex

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/vidshelf/internal/catchpanic"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
)

type cronLogger struct {
	l logrus.FieldLogger
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprintf("cron.%v", keysAndValues[i])] = keysAndValues[i+1]
	}

	return f
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

// Scheduler rebuilds the index on a cron schedule. A run that is still going
// when the next one is due causes that one to be skipped.
type Scheduler struct {
	schedule string
	rebuild  func(ctx context.Context) (int64, error)
}

func NewScheduler(schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("searchindex.NewScheduler: invalid schedule %q: %w", schedule, err)
	}

	return &Scheduler{schedule: schedule, rebuild: Rebuild}, nil
}

// RunOnce performs a single rebuild; a panic is reported as an error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := catchpanic.CatchErr0(func() error {
		_, err := s.rebuild(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("searchindex.Scheduler.RunOnce: %w", err)
	}

	return nil
}

// Run blocks until ctx is cancelled, then waits for a running rebuild.
func (s *Scheduler) Run(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	logger := cronLogger{l}

	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(s.schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			l.WithError(err).Error("scheduled search index rebuild failed")
		}
	}); err != nil {
		return fmt.Errorf("searchindex.Scheduler.Run: %w", err)
	}

	l.WithField("search.schedule", s.schedule).Info("search index rebuild scheduled")

	c.Start()

	<-ctx.Done()

	<-c.Stop().Done()

	return nil
}
