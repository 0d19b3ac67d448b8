// Package scheduler runs the periodic background jobs on cron specs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/logging"
)

var (
	ErrUnknownJob   = eris.New("unknown job")
	ErrDuplicateJob = eris.New("job already registered")
)

// JobFunc is one run of a job. ctx is cancelled when the scheduler stops.
type JobFunc func(ctx context.Context) error

type job struct {
	name string
	spec string
	run  JobFunc
}

// Scheduler wraps cron so that every job recovers from panics and never
// overlaps with a previous run of itself.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
}

func New() *Scheduler {
	logger := logging.CronLogger{Logger: zap.L().Named("cron")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			// Recover sits inside SkipIfStillRunning so a panicking run still
			// releases the job for its next tick.
			cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
		),
		ctx:  ctx,
		stop: cancel,
		jobs: make(map[string]*job),
	}
}

// Add registers run under name on the given cron spec.
func (s *Scheduler) Add(name, spec string, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return eris.Wrap(ErrDuplicateJob, name)
	}
	j := &job{name: name, spec: spec, run: run}
	if _, err := s.cron.AddFunc(spec, func() { s.execute(s.ctx, j) }); err != nil {
		return eris.Wrapf(err, "schedule %s on %q", name, spec)
	}
	s.jobs[name] = j
	return nil
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) Start() {
	zap.L().Info("scheduler started", zap.Strings("jobs", s.Jobs()))
	s.cron.Start()
}

// Stop prevents new runs, cancels running ones and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.stop()
	select {
	case <-done.Done():
		zap.L().Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "waiting for running jobs")
	}
}

// RunNow runs the named job once on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return eris.Wrap(ErrUnknownJob, name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	start := time.Now()
	err := j.run(ctx)
	if err != nil {
		zap.L().Error("job failed",
			zap.String("job", j.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	zap.L().Debug("job finished", zap.String("job", j.name), zap.Duration("duration", time.Since(start)))
	return nil
}
