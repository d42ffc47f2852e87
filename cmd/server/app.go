package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbital-hq/taskboard-api/internal/config"
	"github.com/orbital-hq/taskboard-api/internal/platform/memory"
	"github.com/orbital-hq/taskboard-api/internal/platform/postgres"
	"github.com/orbital-hq/taskboard-api/internal/platform/trello"
	"github.com/orbital-hq/taskboard-api/internal/service"
	"github.com/orbital-hq/taskboard-api/internal/service/auth"
	trelloservice "github.com/orbital-hq/taskboard-api/internal/service/trello"
	"github.com/orbital-hq/taskboard-api/internal/store"
	"github.com/orbital-hq/taskboard-api/internal/worker"
)

// application holds the assembled dependencies of the server. All wiring
// happens in newApplication; the rest of the code receives interfaces.
type application struct {
	config *config.Config
	logger *slog.Logger

	db *sql.DB

	taskStore store.TaskStore
	userStore store.UserStore
	jobStore  worker.JobStore

	jwtService    auth.JWTService
	userService   service.UserService
	taskService   *service.TaskService
	trelloService *trelloservice.Service

	runner *worker.Runner
}

// newApplication builds the full dependency graph from configuration.
func newApplication(cfg *config.Config) (*application, error) {
	logger := slog.Default()

	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.setupStores(); err != nil {
		return nil, err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	verifier := auth.NewBcryptVerifier()
	userService, err := service.NewUserService(app.userStore, verifier, verifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}
	app.userService = userService

	trelloClient, err := trello.NewClient(cfg.Trello, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create trello client: %w", err)
	}
	trelloService, err := trelloservice.NewService(trelloClient, app.userStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create trello service: %w", err)
	}
	app.trelloService = trelloService

	taskService, err := service.NewTaskService(
		app.taskStore,
		trelloService,
		service.NewRandomizer(),
		cfg.Trello,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.taskService = taskService

	factory, err := worker.NewCardSyncJobFactory(taskService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job factory: %w", err)
	}

	runnerCfg := worker.Config{
		WorkerCount: cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		Retry: worker.RetryPolicy{
			MaxAttempts: cfg.Worker.MaxAttempts,
			Interval:    time.Duration(cfg.Worker.RetryIntervalSeconds) * time.Second,
		},
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
	app.runner = worker.NewRunner(app.jobStore, factory, runnerCfg, logger)
	app.runner.SetAttemptFailureHandler(app.onSyncAttemptFailure)
	app.runner.SetExhaustedHandler(app.onSyncExhausted)

	taskService.SetSubmitter(app.runner)

	return app, nil
}

// setupStores selects the persistence backend from configuration.
func (app *application) setupStores() error {
	switch app.config.Database.Driver {
	case "postgres":
		db, err := setupAppDatabase(app.config, app.logger)
		if err != nil {
			return err
		}
		if err := postgres.MigrateUp(db); err != nil {
			return err
		}
		app.db = db
		app.taskStore = postgres.NewTaskStore(db)
		app.userStore = postgres.NewUserStore(db)
		app.jobStore = postgres.NewJobStore(db)

	case "memory":
		app.logger.Warn("using in-memory stores, data will not survive a restart")
		app.taskStore = memory.NewTaskStore()
		app.userStore = memory.NewUserStore()
		app.jobStore = memory.NewJobStore()

	default:
		return fmt.Errorf("unknown database driver %q", app.config.Database.Driver)
	}
	return nil
}

// onSyncAttemptFailure records a failed sync attempt on the affected task.
func (app *application) onSyncAttemptFailure(ctx context.Context, job worker.Job, err error, attempts int) {
	syncJob, ok := job.(*worker.CardSyncJob)
	if !ok {
		return
	}
	if recordErr := app.taskService.RecordSyncFailure(ctx, syncJob.TaskID()); recordErr != nil {
		if !errors.Is(recordErr, service.ErrTaskNotFound) {
			app.logger.Error("failed to record sync failure",
				"task_id", syncJob.TaskID(),
				"error", recordErr)
		}
	}
}

// onSyncExhausted marks the affected task as failed once retries run out.
func (app *application) onSyncExhausted(ctx context.Context, job worker.Job, err error) {
	syncJob, ok := job.(*worker.CardSyncJob)
	if !ok {
		return
	}
	if markErr := app.taskService.MarkSyncExhausted(ctx, syncJob.TaskID()); markErr != nil {
		if !errors.Is(markErr, service.ErrTaskNotFound) {
			app.logger.Error("failed to mark task as failed",
				"task_id", syncJob.TaskID(),
				"error", markErr)
		}
	}
}

// run starts the job runner and HTTP server and blocks until shutdown.
func (app *application) run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}

	router := app.setupRouter()
	return app.startHTTPServer(ctx, router)
}

// cleanup releases resources during shutdown.
func (app *application) cleanup() {
	app.runner.Stop()
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
