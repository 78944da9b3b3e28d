package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	r "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/phrazzld/podscribe/internal/config"
	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/events"
	"github.com/phrazzld/podscribe/internal/history"
	"github.com/phrazzld/podscribe/internal/metrics"
	"github.com/phrazzld/podscribe/internal/pipeline"
	"github.com/phrazzld/podscribe/internal/platform/natsbus"
	"github.com/phrazzld/podscribe/internal/platform/postgres"
	"github.com/phrazzld/podscribe/internal/platform/redisstore"
	"github.com/phrazzld/podscribe/internal/redact"
	"github.com/phrazzld/podscribe/internal/stream"
	"github.com/phrazzld/podscribe/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	fs        afero.Fs
	startedAt time.Time

	// Connections owned by the application, nil when unused
	db    *sql.DB
	redis *r.Client
	nats  *natsbus.Client

	store    *history.Store
	emitter  *events.InMemoryEventEmitter
	queue    *task.Queue[domain.Payload, domain.Result]
	jobFunc  task.JobFunc[domain.Payload, domain.Result]
	sessions *stream.SessionHub
	status   *stream.Broadcaster[task.Snapshot]
	metrics  *metrics.Collector
}

// newApplication creates a new application instance with all dependencies
// initialized. Connections opened before a failure are closed.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	return newApplicationWithFs(ctx, cfg, logger, afero.NewOsFs())
}

func newApplicationWithFs(ctx context.Context, cfg *config.Config, logger *slog.Logger, fs afero.Fs) (_ *application, err error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		fs:        fs,
		startedAt: time.Now(),
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	persister, err := app.openPersister(ctx)
	if err != nil {
		return nil, err
	}

	app.store = history.NewStore(ctx, persister, history.Config{MaxRecords: cfg.History.MaxRecords}, logger)
	for _, rec := range app.store.Processing() {
		logger.Warn("job was processing when the server stopped",
			"record_id", rec.ID,
			"url", redact.String(rec.URL),
			"progress", rec.Progress,
			"stage", rec.Stage)
	}
	app.store.RecoverInterrupted(ctx)

	app.sessions = stream.NewSessionHub(0, logger)

	// The store is registered first so history reflects a transition
	// before any stream or bus subscriber sees it
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.store)
	app.emitter.RegisterHandler(app.sessions)

	if cfg.Events.NATSURL != "" {
		app.nats, err = natsbus.Connect(cfg.Events.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		app.emitter.RegisterHandler(natsbus.NewEventPublisher(app.nats, cfg.Events.Subject))
		logger.Info("publishing job events to NATS", "subject", cfg.Events.Subject)
	}

	app.queue = task.NewQueue[domain.Payload, domain.Result](app.emitter, task.QueueConfig{
		CompletedLimit:      cfg.Queue.CompletedLimit,
		SnapshotRecentLimit: cfg.Queue.SnapshotRecentLimit,
		ProgressBuffer:      cfg.Queue.ProgressBuffer,
	}, logger)

	app.metrics = metrics.NewCollector(app.queue)
	app.emitter.RegisterHandler(app.metrics)

	backend, err := pipeline.NewCommandBackend(pipeline.CommandConfig{
		DownloadCommand:   cfg.Pipeline.DownloadCommand,
		TranscribeCommand: cfg.Pipeline.TranscribeCommand,
		WorkDir:           cfg.Pipeline.WorkDir,
	}, fs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	if cfg.Pipeline.DownloadCommand == "" || cfg.Pipeline.TranscribeCommand == "" {
		logger.Warn("pipeline commands not configured, submitted jobs will fail")
	}
	app.jobFunc = pipeline.NewJobFunc(backend, backend, logger)

	app.status = stream.NewBroadcaster(app.queue.Snapshot, cfg.Queue.BroadcastInterval, logger)

	return app, nil
}

// openPersister connects the configured history backend
func (app *application) openPersister(ctx context.Context) (history.Persister, error) {
	cfg := app.config.History

	switch cfg.Backend {
	case config.HistoryBackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.db = db

		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return postgres.NewHistoryPersister(db), nil

	case config.HistoryBackendRedis:
		rdb, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = rdb
		return redisstore.New(rdb, cfg.RedisKey), nil

	case config.HistoryBackendFile:
		p, err := history.NewFilePersister(app.fs, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history file: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// cleanup releases every connection the application opened. It is safe
// to call on a partially initialized application.
func (app *application) cleanup() {
	if app.nats != nil {
		app.nats.Close()
		app.nats = nil
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
		app.db = nil
	}
}
