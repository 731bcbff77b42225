// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "robot-service/docs"
	"robot-service/internal/config"
	"robot-service/internal/database"
	"robot-service/internal/handler"
	"robot-service/internal/monitor"
	"robot-service/internal/protocol"
	"robot-service/internal/repository"
	"robot-service/internal/robot"
	"robot-service/internal/routes"
	"robot-service/internal/service"
	"robot-service/internal/telemetry"
	"robot-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Metrics
	registry *prometheus.Registry
	metrics  *monitor.Metrics

	// Robot link
	router       *robot.Router
	journal      repository.CommandRepository
	robotService *service.RobotService

	// Event fan-out
	eventBus  *handler.EventBus
	wsHandler *handler.WebSocketHandler
	publisher *telemetry.RedisPublisher

	// Background work stops when ctx is cancelled
	ctx    context.Context
	cancel context.CancelFunc
}

// @title Robot Service API
// @version 1.0.0
// @description Command and response router for a serial motor controller
// @contact.name Robot Service API Support
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8085
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version,
		zap.String("environment", cfg.App.Environment),
		zap.String("transport", cfg.Transport.Type),
	)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"metrics", app.initializeMetrics},
		{"journal", app.initializeJournal},
		{"robot", app.initializeRobot},
		{"telemetry", app.initializeTelemetry},
		{"server", app.initializeServer},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}

	return app, nil
}

// initializeMetrics creates the Prometheus registry
func (app *Application) initializeMetrics() error {
	if !app.config.Metrics.Enabled {
		app.logger.Info("Metrics disabled")
		return nil
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = monitor.NewMetrics(app.registry)

	app.logger.Info("Metrics initialized", zap.String("path", app.config.Metrics.Path))
	return nil
}

// initializeJournal opens the PostgreSQL journal, or an in-memory one when
// the database is disabled
func (app *Application) initializeJournal() error {
	if !app.config.Database.Enabled {
		app.journal = repository.NewMemoryCommandRepository(app.config.Database.MemoryLimit)
		app.logger.Info("Using in-memory command journal",
			zap.Int("limit", app.config.Database.MemoryLimit),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(app.ctx, 10*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.journal = repository.NewCommandRepository(db, app.logger)
	app.logger.Info("Database journal initialized successfully")
	return nil
}

// initializeRobot builds the transport factory, router and service
func (app *Application) initializeRobot() error {
	factory, err := protocol.NewTransportFactory(&app.config.Transport, app.logger)
	if err != nil {
		return err
	}

	app.router = robot.NewRouter(factory, service.RouterOptions(app.config.Robot), app.logger)
	app.router.SetMetrics(app.metrics)

	app.robotService = service.NewRobotService(app.router, app.journal, app.config, app.logger)

	app.eventBus = handler.NewEventBus(app.logger)
	app.robotService.AddSink(app.eventBus)

	app.logger.Info("Robot service initialized successfully")
	return nil
}

// initializeTelemetry attaches the Redis publisher when enabled. An
// unreachable Redis is logged and telemetry stays off.
func (app *Application) initializeTelemetry() error {
	if !app.config.Telemetry.Enabled {
		return nil
	}

	publisher, err := telemetry.NewRedisPublisher(app.ctx, &app.config.Telemetry, app.logger)
	if err != nil {
		app.logger.Warn("Telemetry disabled", zap.Error(err))
		return nil
	}

	app.publisher = publisher
	app.robotService.AddSink(publisher)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	app.wsHandler = handler.NewWebSocketHandler(
		app.robotService,
		app.eventBus,
		app.config.Security.AllowedOrigins,
		app.logger,
	)

	handlers := routes.Handlers{
		Robot:     handler.NewRobotHandler(app.robotService, app.logger),
		Command:   handler.NewCommandHandler(app.robotService, app.logger),
		Health:    handler.NewHealthHandler(app.database, app.publisher, app.robotService, app.config, app.logger),
		WebSocket: app.wsHandler,
	}

	var gatherer prometheus.Gatherer
	if app.registry != nil {
		gatherer = app.registry
	}
	router := routes.NewRouter(app.config, app.logger, app.metrics, gatherer, handlers).SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.startBackgroundServices()

	go func() {
		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(app.config.Server.TLS.CertFile, app.config.Server.TLS.KeyFile)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	app.logger.Info("Server started", zap.String("address", app.config.GetServerAddr()))

	if app.config.Robot.ConnectOnStart {
		go app.connectOnStart()
	}

	app.waitForShutdown()
	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	go app.eventBus.Start(app.ctx)
	go app.wsHandler.Run(app.ctx)
	go app.startCleanupService()

	app.metrics.StartRuntimeMonitor(app.ctx, 10*time.Second, app.logger)

	app.logger.Info("Background services started")
}

// connectOnStart opens the controller link and optionally waits for READY.
// Failure leaves the service up; clients can retry through the API.
func (app *Application) connectOnStart() {
	if err := app.robotService.Connect(app.ctx); err != nil {
		app.logger.Error("Initial controller connection failed", zap.Error(err))
		return
	}

	if !app.config.Robot.WaitReady {
		return
	}
	if err := app.robotService.WaitReady(app.ctx, app.config.Robot.ReadyTimeout); err != nil {
		app.logger.Warn("Controller did not report ready", zap.Error(err))
	}
}

// startCleanupService prunes journal entries older than the retention window
func (app *Application) startCleanupService() {
	if app.config.Database.Retention <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started",
		zap.Duration("retention", app.config.Database.Retention),
	)

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 5*time.Minute)
			deleted, err := app.robotService.CleanupJournal(ctx)
			cancel()

			if err != nil {
				app.logger.Error("Failed to cleanup command journal", zap.Error(err))
			} else if deleted > 0 {
				app.logger.Info("Cleaned up command journal", zap.Int64("deleted", deleted))
			}
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, app.config.App.Name)
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.cleanup()
	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

// cleanup releases the controller link, telemetry and database
func (app *Application) cleanup() {
	if app.robotService != nil && app.robotService.Status().IsConnected {
		if err := app.robotService.Disconnect(); err != nil {
			app.logger.Error("Controller disconnect error", zap.Error(err))
		}
	}

	// Stops the bus, websocket fan-out and cleanup ticker
	app.cancel()

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("Telemetry close error", zap.Error(err))
		}
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}
}
