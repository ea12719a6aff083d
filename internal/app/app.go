package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/newscurator/internal/cache"
	"github.com/bilgisen/newscurator/internal/config"
	"github.com/bilgisen/newscurator/internal/extract"
	"github.com/bilgisen/newscurator/internal/feed"
	"github.com/bilgisen/newscurator/internal/filter"
	"github.com/bilgisen/newscurator/internal/ingest"
	"github.com/bilgisen/newscurator/internal/jobs"
	"github.com/bilgisen/newscurator/internal/logger"
	"github.com/bilgisen/newscurator/internal/storage"
	"github.com/bilgisen/newscurator/internal/workflow"
	"github.com/rs/zerolog"
)

// Application wires configuration to the stores, the pipeline and the runner
type Application struct {
	Config *config.Config
	Stores *storage.Stores
	Runner *jobs.Runner

	moveLog cache.MoveLog
	log     *zerolog.Logger
}

// Bootstrap loads configuration and initializes the global logger. Entry
// points call it first so that every later failure is logged.
func Bootstrap() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.Get(), err
	}

	output := "stdout"
	if cfg.LogFile != "" {
		output = cfg.LogFile
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.LogPretty,
	}); err != nil {
		return nil, logger.Get(), fmt.Errorf("init logger: %w", err)
	}

	return cfg, logger.Get(), nil
}

// New opens the stores and the move-log and builds the job runner
func New(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*Application, error) {
	if log == nil {
		log = logger.Get()
	}

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}

	var moveLog cache.MoveLog
	if cfg.RedisURL != "" {
		moveLog, err = cache.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("connect move-log: %w", err)
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, move-log kept in memory for this process only")
		moveLog = cache.NewMemoryLog(cfg.RedisPrefix)
	}

	reader := feed.NewReader(feed.Options{
		Limit:     cfg.FeedLimit,
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	})
	extractOpts := extract.Options{
		Timeout:             cfg.FetchTimeout,
		UserAgent:           cfg.UserAgent,
		ReadabilityFallback: cfg.ReadabilityFallback,
	}
	plain := extract.New(extractOpts)
	resolving := extract.New(extractOpts).WithResolver(extract.NewResolver(extract.ResolverOptions{
		Timeout:          cfg.FetchTimeout,
		UserAgent:        cfg.UserAgent,
		IndirectionHosts: cfg.IndirectionHosts,
	}))
	relevance := filter.New(cfg.Keywords)

	runner, err := jobs.NewRunner(jobs.Options{
		Ingester: func(runLog *zerolog.Logger) jobs.Ingester {
			return ingest.NewProcessor(ingest.Deps{
				Reader:     reader,
				Extractor:  plain,
				Resolving:  resolving,
				Filter:     relevance,
				Candidates: stores.Candidates,
				Feeds:      cfg.Feeds,
				EmptyBody:  cfg.EmptyBodyPolicy,
				Logger:     runLog,
			})
		},
		Promoter: func(runLog *zerolog.Logger) jobs.Promoter {
			return workflow.NewMover(workflow.Deps{
				Candidates: stores.Candidates,
				Approved:   stores.Approved,
				MoveLog:    moveLog,
				Logger:     runLog,
			})
		},
		LockFile: cfg.LockFile,
		Logger:   log,
	})
	if err != nil {
		_ = moveLog.Close()
		_ = stores.Close()
		return nil, err
	}

	log.Info().
		Str("backend", cfg.StoreBackend).
		Int("feeds", len(cfg.Feeds)).
		Bool("redis", cfg.RedisURL != "").
		Msg("Application initialized")

	return &Application{
		Config:  cfg,
		Stores:  stores,
		Runner:  runner,
		moveLog: moveLog,
		log:     log,
	}, nil
}

// Close releases the move-log and the stores
func (a *Application) Close() error {
	return errors.Join(a.moveLog.Close(), a.Stores.Close())
}
