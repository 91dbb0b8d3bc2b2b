// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout bounds a single job run.
const runTimeout = time.Minute

// InscriptionOpener opens workshop inscriptions whose start date passed.
type InscriptionOpener interface {
	OpenDue(ctx context.Context) (int64, error)
}

// Scheduler owns the cron runner.  Overlapping runs of the same job are
// skipped and panics are recovered and logged.
type Scheduler struct {
	c   *cron.Cron
	log *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	log = log.Named("jobs")
	cl := cronLogger{s: log.Sugar()}
	return &Scheduler{
		c: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// AddInscriptionOpener schedules o on spec, e.g. "@every 5m".
func (s *Scheduler) AddInscriptionOpener(spec string, o InscriptionOpener) error {
	_, err := s.c.AddFunc(spec, openInscriptions(o, s.log))
	return err
}

func (s *Scheduler) Start() {
	s.c.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.c.Entries())))
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func openInscriptions(o InscriptionOpener, log *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		n, err := o.OpenDue(ctx)
		if err != nil {
			log.Error("open inscriptions", zap.Error(err))
			return
		}
		log.Debug("inscription opener ran", zap.Int64("opened", n))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
