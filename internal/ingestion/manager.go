package ingestion

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
	"github.com/mr1hm/go-disaster-v2v/internal/stream"
	"github.com/mr1hm/go-disaster-v2v/internal/worker"
)

var (
	ErrRefreshInProgress = eris.New("refresh already in progress")
	ErrNotStarted        = eris.New("ingestion manager not started")
)

type persistJob struct {
	disaster models.Disaster
	done     func(stored bool)
}

type RefreshResult struct {
	Result
	Stored int `json:"stored"`
}

// Manager runs the aggregator on demand and writes new disasters to the
// cache through a worker pool.
type Manager struct {
	cfg         *config.Config
	repo        repository.DisasterRepository
	aggregator  *Aggregator
	broadcaster *stream.Broadcaster
	pool        *worker.Pool[persistJob]
	running     atomic.Bool
	last        snapshot
}

func NewManager(cfg *config.Config, repo repository.DisasterRepository, aggregator *Aggregator, broadcaster *stream.Broadcaster) *Manager {
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		aggregator:  aggregator,
		broadcaster: broadcaster,
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.persist).
		OnError(func(job persistJob, err error) {
			zap.L().Error("error storing disaster", zap.String("id", job.disaster.ID), zap.Error(err))
			job.done(false)
		})
	m.pool.Start(ctx)
}

func (m *Manager) persist(ctx context.Context, job persistJob) error {
	d := job.disaster

	exists, err := m.repo.Exists(ctx, d.ID)
	if err != nil {
		return eris.Wrapf(err, "check existence %s", d.ID)
	}
	if exists {
		job.done(false)
		return nil
	}

	if err := m.repo.Add(ctx, &d); err != nil {
		return err
	}

	if m.broadcaster != nil && shouldBroadcast(&d) {
		m.broadcaster.PublishAll(stream.NewEvent(stream.KindDisaster, d))
	}

	zap.L().Info("added disaster", zap.String("id", d.ID), zap.String("type", string(d.Type)), zap.String("source", d.Source))
	job.done(true)
	return nil
}

// Refresh aggregates every feed once and waits until new records are stored.
// Only one refresh runs at a time.
func (m *Manager) Refresh(ctx context.Context) (*RefreshResult, error) {
	if m.pool == nil {
		return nil, ErrNotStarted
	}
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer m.running.Store(false)

	res := m.aggregator.Aggregate(ctx)
	m.last.store(res)

	var (
		wg     sync.WaitGroup
		stored atomic.Int64
	)
	done := func(ok bool) {
		if ok {
			stored.Add(1)
		}
		wg.Done()
	}

	for _, d := range res.Disasters {
		wg.Add(1)
		if err := m.pool.Submit(ctx, persistJob{disaster: d, done: done}); err != nil {
			wg.Done()
			return nil, eris.Wrap(err, "queue disaster")
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "wait for disasters to be stored")
	}

	zap.L().Info("refresh complete",
		zap.Int("fetched", len(res.Disasters)),
		zap.Int64("stored", stored.Load()),
		zap.Strings("failed_feeds", res.Failed()),
	)
	return &RefreshResult{Result: res, Stored: int(stored.Load())}, nil
}

func (m *Manager) Refreshing() bool { return m.running.Load() }

// Last returns the most recent aggregate, if any.
func (m *Manager) Last() (Result, bool) {
	return m.last.load()
}

// Live aggregates without persisting, for read paths that want fresh data.
func (m *Manager) Live(ctx context.Context) Result {
	res := m.aggregator.Aggregate(ctx)
	m.last.store(res)
	return res
}

func (m *Manager) Stop() {
	if m.pool != nil {
		m.pool.Stop()
	}
	zap.L().Info("ingestion manager stopped")
}

// shouldBroadcast reports whether d is severe enough to push to every
// connected vehicle.
func shouldBroadcast(d *models.Disaster) bool {
	return d.Severity >= models.SeverityHigh
}
