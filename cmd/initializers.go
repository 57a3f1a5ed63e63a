package main

import (
	"fmt"
	"net/http"

	"vigil/app/handler"
	"vigil/app/router"
	"vigil/internal/service"
	"vigil/pkg/config"
	"vigil/pkg/logger"
	"vigil/pkg/notification"
	mysqlstore "vigil/pkg/store/mysql"
	redisstore "vigil/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})

	// Config loads before logging comes up, so the effective settings are
	// reported here.
	logger.InfoCtx(app.ctx,
		"Effective config: port=%d sweep_interval=%ds staleness_threshold=%dm max_notifications=%d failure_backoff=%ds",
		app.config.Server.Port,
		app.config.Monitor.SweepIntervalSeconds,
		app.config.Monitor.StalenessThresholdMinutes,
		app.config.Monitor.MaxNotifications,
		app.config.Monitor.FailureBackoffSeconds,
	)
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis.
// Redis only backs the sweep leader lock, so a missing address is not an
// error: the lock then runs in single-instance mode.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.InfoCtx(app.ctx, "Redis not configured, sweep leader lock will run in single-instance mode")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initNotifier initializes the Slack alert sink
func (app *Application) initNotifier() error {
	app.notifier = notification.NewSlackNotifier()
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	app.registryService = service.NewRegistryService(app.mysqlRepo.Instance, app.notifier)

	app.sweeperService = service.NewSweeperService(
		app.mysqlRepo.Instance,
		app.notifier,
		app.config.Monitor.StalenessThreshold(),
		app.config.Monitor.MaxNotifications,
	)

	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.instanceHandler = handler.NewInstanceHandler(app.registryService)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(app.instanceHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server
	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
