package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-vault/internal/config"
	"github.com/phrazzld/scry-vault/internal/container"
	"github.com/phrazzld/scry-vault/internal/content"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/events"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
	"github.com/phrazzld/scry-vault/internal/redact"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/phrazzld/scry-vault/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger

	// Container access
	source *service.FileSource

	// Unlock pipeline
	taskQueue  *task.TaskQueue
	workerPool *task.WorkerPool
	unlocker   *service.Unlocker

	// Event system
	eventEmitter *events.InMemoryEventEmitter

	// Service interfaces
	studyService service.StudyService
}

// newApplication creates a new application instance with all dependencies initialized.
// The worker pool is started here, so callers must Run or cleanup the result.
func newApplication(cfg *config.Config, log *slog.Logger) (*application, error) {
	if log == nil {
		log = slog.Default()
	}

	app := &application{
		config: cfg,
		logger: log,
		source: service.NewFileSource(cfg.Container.Path),
	}

	// Unlock pipeline: key derivation is slow, so it runs on a bounded pool
	codec := container.NewCodec(container.WithLogger(log))
	parser := content.NewParser(log)

	app.taskQueue = task.NewTaskQueue(cfg.Unlock.QueueSize, log)
	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Unlock.WorkerCount,
	}, log)
	app.workerPool.SetErrorHandler(app.handleTaskError)
	app.workerPool.Start()

	var err error
	app.unlocker, err = service.NewUnlocker(app.taskQueue, codec, parser, cfg.Unlock.Timeout, log)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create unlocker: %w", err)
	}

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(log)
	app.eventEmitter.RegisterHandler(newEventLogHandler(log))

	app.studyService, err = service.NewStudyService(
		app.source,
		app.unlocker,
		log,
		service.WithSeed(cfg.Session.Seed),
		service.WithMaxSessions(cfg.Session.MaxSessions),
		service.WithIdleTimeout(cfg.Session.IdleTimeout),
		service.WithEventEmitter(app.eventEmitter),
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create study service: %w", err)
	}

	log.Info("Application initialized successfully",
		slog.String("container_path", redact.String(app.source.Path())),
		slog.Int("unlock_workers", cfg.Unlock.WorkerCount))
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// handleTaskError records failed unlock tasks. Only the error kind is logged;
// the password never reaches a task error.
func (app *application) handleTaskError(t task.Task, err error) {
	app.logger.Warn("unlock task failed",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
		slog.String("kind", domain.Kind(err)))
}

// newEventLogHandler logs every session transition at debug level.
func newEventLogHandler(base *slog.Logger) events.EventHandler {
	log := base.With(slog.String("component", "session_events"))
	return events.HandlerFunc(func(ctx context.Context, event *events.Event) error {
		logger.FromContextOrDefault(ctx, log).Debug("session event",
			slog.String("event_type", event.Type),
			slog.String("session_id", event.SessionID.String()))
		return nil
	})
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop accepting unlocks before draining the workers
	if app.taskQueue != nil {
		app.taskQueue.Close()
	}
	if app.workerPool != nil {
		app.workerPool.Stop()
	}

	app.logger.Info("Application shutdown completed")
}
