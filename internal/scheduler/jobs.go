package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/analytics"
	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/ingestion"
)

const (
	JobRefresh   = "refresh"
	JobAnalytics = "analytics"
	JobCleanup   = "cleanup"
	JobSweep     = "sweep"

	analyticsWindowDays = 30
)

type Refresher interface {
	Refresh(ctx context.Context) (*ingestion.RefreshResult, error)
}

type Generator interface {
	Generate(ctx context.Context, windowDays int) (*analytics.Summary, error)
}

type Sweeper interface {
	SweepStatuses(ctx context.Context) (int, error)
}

// Pruner deletes rows older than a cutoff.
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteChatsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Deps are the services the standard jobs drive. A nil dependency leaves
// its job unregistered.
type Deps struct {
	Refresher Refresher
	Analytics Generator
	Sweeper   Sweeper
	Pruner    Pruner
}

// Register adds the standard jobs on the configured specs.
func Register(s *Scheduler, cfg *config.Config, deps Deps) error {
	if deps.Refresher != nil {
		if err := s.Add(JobRefresh, cfg.Schedule.Refresh, RefreshJob(deps.Refresher)); err != nil {
			return err
		}
	}
	if deps.Analytics != nil {
		if err := s.Add(JobAnalytics, cfg.Schedule.Analytics, AnalyticsJob(deps.Analytics)); err != nil {
			return err
		}
	}
	if deps.Pruner != nil {
		if err := s.Add(JobCleanup, cfg.Schedule.Cleanup, CleanupJob(deps.Pruner, cfg.Retention, time.Now)); err != nil {
			return err
		}
	}
	if deps.Sweeper != nil {
		if err := s.Add(JobSweep, cfg.Schedule.Sweep, SweepJob(deps.Sweeper)); err != nil {
			return err
		}
	}
	return nil
}

func RefreshJob(r Refresher) JobFunc {
	return func(ctx context.Context) error {
		res, err := r.Refresh(ctx)
		if errors.Is(err, ingestion.ErrRefreshInProgress) {
			zap.L().Debug("refresh skipped, one is already running")
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "refresh")
		}
		zap.L().Info("refresh complete",
			zap.Int("fetched", len(res.Disasters)),
			zap.Int("stored", res.Stored),
			zap.Strings("failed_feeds", res.Failed()),
		)
		return nil
	}
}

func AnalyticsJob(g Generator) JobFunc {
	return func(ctx context.Context) error {
		_, err := g.Generate(ctx, analyticsWindowDays)
		return eris.Wrap(err, "generate analytics")
	}
}

func SweepJob(sw Sweeper) JobFunc {
	return func(ctx context.Context) error {
		n, err := sw.SweepStatuses(ctx)
		if err != nil {
			return eris.Wrap(err, "sweep vehicle statuses")
		}
		if n > 0 {
			zap.L().Info("vehicle statuses updated", zap.Int("changed", n))
		}
		return nil
	}
}

// CleanupJob prunes disasters, messages and chat history past retention.
// Every table is attempted even if an earlier one fails.
func CleanupJob(p Pruner, retention config.RetentionConfig, now func() time.Time) JobFunc {
	return func(ctx context.Context) error {
		t := now()
		steps := []struct {
			name   string
			maxAge time.Duration
			prune  func(context.Context, time.Time) (int64, error)
		}{
			{"disasters", retention.Disasters, p.DeleteBefore},
			{"messages", retention.Messages, p.DeleteMessagesBefore},
			{"chats", retention.Chats, p.DeleteChatsBefore},
		}

		var errs []error
		for _, step := range steps {
			n, err := step.prune(ctx, t.Add(-step.maxAge))
			if err != nil {
				errs = append(errs, eris.Wrapf(err, "prune %s", step.name))
				continue
			}
			zap.L().Info("pruned", zap.String("table", step.name), zap.Int64("rows", n))
		}
		return errors.Join(errs...)
	}
}
