package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
)

const (
	DefaultWindowDays = 30
	MaxWindowDays     = 365
)

var ErrInvalidWindow = eris.New("invalid analytics window")

type Service struct {
	disasters repository.DisasterRepository
	snapshots repository.AnalyticsRepository
	now       func() time.Time
}

func NewService(disasters repository.DisasterRepository, snapshots repository.AnalyticsRepository) *Service {
	return &Service{disasters: disasters, snapshots: snapshots, now: time.Now}
}

// Generate summarizes the cached disasters of the last windowDays days and
// stores the result as the latest snapshot.
func (s *Service) Generate(ctx context.Context, windowDays int) (*Summary, error) {
	summary, err := s.summarize(ctx, windowDays)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, eris.Wrap(err, "encode summary")
	}
	snap := &models.AnalyticsSnapshot{
		ID:          uuid.NewString(),
		WindowDays:  summary.WindowDays,
		Summary:     raw,
		GeneratedAt: summary.To,
	}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return nil, eris.Wrap(err, "save snapshot")
	}

	zap.L().Info("analytics snapshot generated",
		zap.String("id", snap.ID),
		zap.Int("window_days", summary.WindowDays),
		zap.Int("total", summary.Total),
		zap.Int("hotspots", len(summary.Hotspots)),
	)
	return summary, nil
}

// Latest returns the most recently generated snapshot.
func (s *Service) Latest(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	return s.snapshots.LatestSnapshot(ctx)
}

type TrendReport struct {
	WindowDays int                           `json:"window_days"`
	Overall    Trend                         `json:"overall"`
	ByType     map[models.DisasterType]Trend `json:"by_type"`
}

func (s *Service) Trends(ctx context.Context, windowDays int) (*TrendReport, error) {
	summary, err := s.summarize(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return &TrendReport{WindowDays: summary.WindowDays, Overall: summary.Trend, ByType: summary.TrendByType}, nil
}

func (s *Service) Hotspots(ctx context.Context, windowDays int) ([]Hotspot, error) {
	summary, err := s.summarize(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return summary.Hotspots, nil
}

func (s *Service) Predictions(ctx context.Context, windowDays int) ([]Prediction, error) {
	summary, err := s.summarize(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return summary.Predictions, nil
}

func (s *Service) summarize(ctx context.Context, windowDays int) (*Summary, error) {
	if windowDays == 0 {
		windowDays = DefaultWindowDays
	}
	if windowDays < 1 || windowDays > MaxWindowDays {
		return nil, eris.Wrapf(ErrInvalidWindow, "%d days", windowDays)
	}

	now := s.now().UTC()
	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	disasters, err := s.disasters.ListDisasters(ctx, repository.Filter{Since: &since})
	if err != nil {
		return nil, eris.Wrap(err, "load disasters")
	}

	summary := Summarize(disasters, windowDays, now)
	return &summary, nil
}
