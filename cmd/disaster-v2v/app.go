package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/ai"
	"github.com/mr1hm/go-disaster-v2v/internal/analytics"
	"github.com/mr1hm/go-disaster-v2v/internal/api"
	"github.com/mr1hm/go-disaster-v2v/internal/assistant"
	"github.com/mr1hm/go-disaster-v2v/internal/auth"
	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/ingestion"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
	"github.com/mr1hm/go-disaster-v2v/internal/scheduler"
	"github.com/mr1hm/go-disaster-v2v/internal/stream"
	"github.com/mr1hm/go-disaster-v2v/internal/v2v"
)

// app holds every long-lived service. serve and run share it.
type app struct {
	db          *repository.SQLiteDB
	broadcaster *stream.Broadcaster
	manager     *ingestion.Manager
	assistant   *assistant.Service
	vehicles    *v2v.Service
	analytics   *analytics.Service
	users       *auth.UserService
	verifier    *auth.Verifier
}

func newApp(cfg *config.Config) (*app, error) {
	if dir := filepath.Dir(cfg.DB.Path); cfg.DB.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create database directory %s", dir)
		}
	}

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		return nil, eris.Wrap(err, "initialize database")
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "initialize token verifier")
	}
	if !verifier.Configured() {
		zap.L().Warn("no AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY set, protected routes will reject every request")
	}

	client := ai.NewClient(cfg.AI)
	if client == nil {
		zap.L().Warn("ANTHROPIC_API_KEY not set, assistant features are disabled")
	}

	broadcaster := stream.NewBroadcaster()
	httpClient := &http.Client{Timeout: cfg.Sources.HTTPTimeout}
	aggregator := ingestion.NewAggregator(buildFeeds(cfg.Sources, httpClient)...)
	zap.L().Info("feeds enabled", zap.Strings("feeds", aggregator.Feeds()))
	assist := assistant.NewService(client, db)

	return &app{
		db:          db,
		broadcaster: broadcaster,
		manager:     ingestion.NewManager(cfg, db, aggregator, broadcaster),
		assistant:   assist,
		vehicles:    v2v.NewService(cfg.V2V, db, db, assist, broadcaster),
		analytics:   analytics.NewService(db, db),
		users:       auth.NewUserService(db, db),
		verifier:    verifier,
	}, nil
}

// buildFeeds returns the enabled upstream feeds.
func buildFeeds(src config.SourcesConfig, client *http.Client) []ingestion.Feed {
	var feeds []ingestion.Feed
	if src.USGSEnabled {
		feeds = append(feeds, ingestion.NewEarthquakeFeed(src, client))
	}
	if src.TsunamiEnabled {
		feeds = append(feeds, ingestion.NewTsunamiFeed(src, client))
	}
	if src.OpenWeatherEnabled {
		if src.OpenWeatherAPIKey == "" {
			zap.L().Warn("OPENWEATHER_API_KEY not set, weather feed disabled")
		} else {
			feeds = append(feeds, ingestion.NewOpenWeatherFeed(src, client))
		}
	}
	if src.GDACSEnabled {
		feeds = append(feeds, ingestion.NewGDACSFeed(src, client))
	}
	return feeds
}

func (a *app) handler() *api.Handler {
	return api.NewHandler(api.Deps{
		Disasters:   a.db,
		Ingestor:    a.manager,
		Users:       a.users,
		Verifier:    a.verifier,
		Assistant:   a.assistant,
		Vehicles:    a.vehicles,
		Analytics:   a.analytics,
		Broadcaster: a.broadcaster,
	})
}

func (a *app) jobs() scheduler.Deps {
	return scheduler.Deps{
		Refresher: a.manager,
		Analytics: a.analytics,
		Sweeper:   a.vehicles,
		Pruner:    a.db,
	}
}

func (a *app) start(ctx context.Context) {
	a.manager.Start(ctx)
}

func (a *app) close() {
	a.manager.Stop()
	a.broadcaster.Close()
	if err := a.db.Close(); err != nil {
		zap.L().Error("close database", zap.Error(err))
	}
}
