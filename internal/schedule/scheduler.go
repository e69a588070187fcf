package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named unit of background work. Run receives the scheduler's
// lifetime context so a stopping server cancels in-flight work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronScheduler runs jobs on standard five-field cron specs. A job that is
// still running when its next tick fires is skipped, not queued.
type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
	}
}

func (s *CronScheduler) AddJob(job Job, spec string) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(job)); err != nil {
		return err
	}
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", job.Name()),
		zap.String("spec", spec),
	)
	return nil
}

func (s *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

// Stop blocks until any running job invocation returns.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *CronScheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: previous run still active")
			return
		}
		defer running.Store(false)

		start := time.Now()
		err := job.Run(ctx)
		if err != nil {
			logger.Error("job run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job run finished", zap.Duration("duration", time.Since(start)))
	}
}
