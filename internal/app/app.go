// -----------------------------------------------------------------------
// Application - dependency wiring for services, storage and handlers
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/analyzer"
	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/handlers"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/scheduler"
	"github.com/martien2kk/workflow-scheduler/internal/services/events"
	"github.com/martien2kk/workflow-scheduler/internal/services/maintenance"
	"github.com/martien2kk/workflow-scheduler/internal/slide"
	"github.com/martien2kk/workflow-scheduler/internal/state"
	badgerstore "github.com/martien2kk/workflow-scheduler/internal/storage/badger"
	"github.com/martien2kk/workflow-scheduler/internal/storage/results"
	"github.com/martien2kk/workflow-scheduler/internal/workers"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Shared state and storage
	Store       *state.Store
	ResultStore interfaces.ResultStore
	Archive     interfaces.ArchiveStorage
	OutputsDir  string
	archiveDB   *badgerstore.BadgerDB

	// Services
	EventService       interfaces.EventService
	Scheduler          *scheduler.Scheduler
	MaintenanceService *maintenance.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	WorkflowHandler *handlers.WorkflowHandler
	JobHandler      *handlers.JobHandler
	UserHandler     *handlers.UserHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.EventService = events.NewService(logger)
	app.Store = state.New(logger)

	resultStore, err := results.New(cfg.Storage.Outputs.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result store: %w", err)
	}
	app.ResultStore = resultStore
	app.OutputsDir = resultStore.BaseDir()

	archiveDB, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive database: %w", err)
	}
	app.archiveDB = archiveDB
	app.Archive = badgerstore.NewArchiveStorage(archiveDB, logger)

	// Worker registry: both job runtimes share the slide opener; the
	// analyzer is constructed lazily on first use.
	registry := workers.NewRegistry(logger)
	slides := slide.NewReader()
	analyzerProvider := workers.NewAnalyzerProvider(
		func() (interfaces.TileAnalyzer, error) { return analyzer.New(), nil },
		cfg.Runtime.SerializeAnalyzer,
		logger,
	)
	registry.Register(workers.NewCellSegmentationWorker(
		slides, analyzerProvider, app.ResultStore, app.Store, app.EventService, cfg.Runtime, logger))
	registry.Register(workers.NewTissueMaskWorker(
		slides, app.ResultStore, cfg.Runtime, logger))

	app.Scheduler = scheduler.New(
		app.Store, registry, app.ResultStore, app.Archive, app.EventService, cfg.Scheduler, logger)

	app.MaintenanceService = maintenance.NewService(
		app.OutputsDir, app.Archive, cfg.Maintenance, logger)

	// HTTP handlers
	app.APIHandler = handlers.NewAPIHandler(logger)
	app.WorkflowHandler = handlers.NewWorkflowHandler(app.Store, app.EventService, logger)
	app.JobHandler = handlers.NewJobHandler(app.Store, app.ResultStore, app.Archive, logger)
	app.UserHandler = handlers.NewUserHandler(app.Store, logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger)

	// Background services
	app.Scheduler.Start()
	if err := app.MaintenanceService.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start maintenance service")
	}

	logger.Info().
		Int("max_workers", cfg.Scheduler.MaxWorkers).
		Int("max_active_users", cfg.Scheduler.MaxActiveUsers).
		Str("outputs_dir", app.OutputsDir).
		Msg("Application initialization complete")

	return app, nil
}

// Close shuts down background services and storage
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.MaintenanceService != nil {
		a.MaintenanceService.Stop()
	}
	if a.archiveDB != nil {
		if err := a.archiveDB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close archive database")
		}
	}
}
