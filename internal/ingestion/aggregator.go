package ingestion

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

type FeedStatus struct {
	Name     string        `json:"name"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

func (s FeedStatus) OK() bool { return s.Error == "" }

type Result struct {
	Disasters []models.Disaster `json:"disasters"`
	Feeds     []FeedStatus      `json:"feeds"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Failed returns the names of feeds that errored.
func (r *Result) Failed() []string {
	var names []string
	for _, f := range r.Feeds {
		if !f.OK() {
			names = append(names, f.Name)
		}
	}
	return names
}

// Aggregator queries every feed concurrently. A failing feed is reported in
// its FeedStatus and never hides the others.
type Aggregator struct {
	feeds []Feed
	now   func() time.Time
}

func NewAggregator(feeds ...Feed) *Aggregator {
	return &Aggregator{
		feeds: feeds,
		now:   time.Now,
	}
}

func (a *Aggregator) Feeds() []string {
	names := make([]string, len(a.feeds))
	for i, f := range a.feeds {
		names[i] = f.Name()
	}
	return names
}

func (a *Aggregator) Aggregate(ctx context.Context) Result {
	statuses := make([]FeedStatus, len(a.feeds))
	batches := make([][]models.Disaster, len(a.feeds))

	// Plain group: a feed error must not cancel its siblings.
	var g errgroup.Group
	for i, feed := range a.feeds {
		g.Go(func() error {
			start := time.Now()
			disasters, err := feed.Fetch(ctx)
			status := FeedStatus{
				Name:     feed.Name(),
				Count:    len(disasters),
				Duration: time.Since(start),
			}
			if err != nil {
				status.Error = err.Error()
				status.Count = 0
				disasters = nil
				zap.L().Warn("feed failed", zap.String("feed", feed.Name()), zap.Error(err))
			}
			statuses[i] = status
			batches[i] = disasters
			return nil
		})
	}
	_ = g.Wait()

	var all []models.Disaster
	for _, b := range batches {
		all = append(all, b...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	return Result{
		Disasters: all,
		Feeds:     statuses,
		FetchedAt: a.now(),
	}
}

// snapshot guards the most recent Result for concurrent readers.
type snapshot struct {
	mu   sync.RWMutex
	last *Result
}

func (s *snapshot) store(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &r
}

func (s *snapshot) load() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}
