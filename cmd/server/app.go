package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/domain/matching"
	"github.com/phrazzld/skillmatch-api/internal/events"
	"github.com/phrazzld/skillmatch-api/internal/generation"
	"github.com/phrazzld/skillmatch-api/internal/lock"
	"github.com/phrazzld/skillmatch-api/internal/platform/gemini"
	"github.com/phrazzld/skillmatch-api/internal/platform/mailer"
	"github.com/phrazzld/skillmatch-api/internal/platform/postgres"
	"github.com/phrazzld/skillmatch-api/internal/platform/rabbitmq"
	"github.com/phrazzld/skillmatch-api/internal/platform/redis"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/task"
)

// recoverBatchSize bounds how many unnotified assignments are requeued at startup.
const recoverBatchSize = 500

// eventPublisher is an event handler that owns a broker connection.
type eventPublisher interface {
	events.EventHandler
	Close() error
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore       store.UserStore
	taskStore       store.TaskStore
	assignmentStore store.AssignmentStore

	jwtService        auth.JWTService
	engine            matching.Service
	userService       service.UserService
	taskService       service.TaskService
	assignmentService service.AssignmentService
	importService     service.ImportService
	exportService     service.ExportService

	locker      lock.Locker
	redisClient *goredis.Client
	publisher   eventPublisher
	notifier    task.Notifier
	explainer   generation.Explainer

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies initialized.
// The database must already be open and migrated.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.assignmentStore = postgres.NewPostgresAssignmentStore(db, logger)

	app.engine, err = matching.NewServiceWithParams(matching.NewParams(cfg.Matching.EngineParams()))
	if err != nil {
		return nil, fmt.Errorf("failed to create matching engine: %w", err)
	}

	if err := app.setupInfrastructure(ctx); err != nil {
		app.cleanup(ctx)
		return nil, err
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.userService = service.NewUserService(app.userStore, logger)
	app.taskService, err = service.NewTaskService(service.TaskServiceDeps{
		DB:          db,
		Tasks:       app.taskStore,
		Users:       app.userStore,
		Assignments: app.assignmentStore,
		Logger:      logger,
	})
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.importService = service.NewImportService(app.userStore, app.taskStore, logger)
	app.exportService = service.NewExportService(app.userStore, app.taskStore, logger)
	app.assignmentService, err = service.NewAssignmentService(service.AssignmentServiceDeps{
		DB:          db,
		Users:       app.userStore,
		Tasks:       app.taskStore,
		Assignments: app.assignmentStore,
		Engine:      app.engine,
		Locker:      app.locker,
		Explainer:   app.explainer,
		Emitter:     app.eventEmitter,
		Logger:      logger,
	})
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create assignment service: %w", err)
	}

	factory := task.NewNotificationTaskFactory(app.notifier, app.assignmentService, logger)
	app.taskRunner, err = setupTaskRunner(ctx, app, factory)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	app.eventEmitter.RegisterHandler(task.NewNotificationEventHandler(factory, app.taskRunner, logger))
	app.eventEmitter.RegisterHandler(app.publisher)

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupInfrastructure selects the run lock, event publisher, notifier and
// explainer from configuration. Unconfigured integrations fall back to
// in-process or logging implementations.
func (app *application) setupInfrastructure(ctx context.Context) error {
	cfg, logger := app.config, app.logger

	if cfg.Redis.URL != "" {
		locker, client, err := redis.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to set up run lock: %w", err)
		}
		app.locker, app.redisClient = locker, client
		logger.Info("Using redis run lock")
	} else {
		app.locker = lock.NewInProcess()
		logger.Info("Using in-process run lock")
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.Dial(cfg.RabbitMQ, logger)
		if err != nil {
			return fmt.Errorf("failed to set up event publisher: %w", err)
		}
		app.publisher = publisher
	} else {
		app.publisher = rabbitmq.NewNoopPublisher(logger)
	}

	if cfg.Mail.Enabled {
		app.notifier = mailer.New(mailer.NewSMTPSender(cfg.Mail), cfg.Mail, logger)
		logger.Info("SMTP notifications enabled", "host", cfg.Mail.Host)
	} else {
		app.notifier = mailer.NewLogNotifier(logger)
	}

	app.explainer = generation.TemplateExplainer{}
	if cfg.LLM.Enabled {
		llm, err := gemini.NewExplainer(ctx, logger.With("component", "llm_explainer"), cfg.LLM)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM explainer: %w", err)
		}
		app.explainer = generation.NewFallbackExplainer(llm, logger)
		logger.Info("LLM explainer initialized", "model", cfg.LLM.ModelName)
	}

	return nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTaskRunner starts the notification workers. Assignments committed
// before a restart but never notified are requeued on start.
func setupTaskRunner(ctx context.Context, app *application, factory *task.NotificationTaskFactory) (*task.TaskRunner, error) {
	runnerCfg := task.DefaultTaskRunnerConfig()
	runnerCfg.WorkerCount = app.config.Task.WorkerCount
	runnerCfg.QueueSize = app.config.Task.QueueSize

	recoverFn := factory.RecoverNotifications(func(ctx context.Context) ([]events.AssignmentPayload, error) {
		return app.assignmentService.PendingNotifications(ctx, recoverBatchSize)
	})

	taskRunner := task.NewTaskRunner(runnerCfg, recoverFn, app.logger)
	if err := taskRunner.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return taskRunner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) {
	if app.taskRunner != nil {
		if err := app.taskRunner.Stop(ctx); err != nil {
			app.logger.Error("Error stopping task runner", "error", err)
		}
	}

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("Error closing event publisher", "error", err)
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing redis client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}

// runTimeout bounds one HTTP-triggered assignment run.
func (app *application) runTimeout() time.Duration {
	return time.Duration(app.config.Matching.RunTimeoutSeconds) * time.Second
}
