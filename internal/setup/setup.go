package setup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bczgroup/tracker/internal/database"
	"github.com/bczgroup/tracker/internal/platform/api"
	"github.com/bczgroup/tracker/internal/platform/fetcher"
	"github.com/bczgroup/tracker/internal/redis"
	"github.com/bczgroup/tracker/internal/setup/config"
	"github.com/bczgroup/tracker/internal/setup/telemetry"
	"github.com/bczgroup/tracker/pkg/utils"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config        // Application configuration
	Logger       *zap.Logger           // Main application logger
	DBLogger     *zap.Logger           // Database-specific logger
	DB           database.Client       // Database connection pool
	API          *api.Client           // Remote platform client
	Fetcher      *fetcher.GroupFetcher // Group collection and search
	Location     *time.Location        // Time zone of completion times and weeks
	RedisManager *redis.Manager        // Redis connection manager
	StatusClient rueidis.Client        // Redis client for worker status reporting, nil when unavailable
	LogManager   *telemetry.Manager    // Log management system
}

// Options controls optional parts of initialization.
type Options struct {
	// AutoMigrate applies pending migrations instead of refusing to start.
	AutoMigrate bool
	// SkipMigrationCheck connects without checking migration status.
	SkipMigrationCheck bool
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(
	ctx context.Context, serviceType telemetry.ServiceType, logDir string, opts Options,
) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	location, err := cfg.Common.Platform.Location()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	db, err := connectDatabase(ctx, &cfg.Common.PostgreSQL, dbLogger, opts)
	if err != nil {
		logManager.Stop()
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Status reporting is optional; commands still work without Redis
	statusClient, err := redisManager.GetClient(redis.StatusDBIndex)
	if err != nil {
		logger.Warn("Worker status reporting disabled", zap.Error(err))
		statusClient = nil
	}

	platform := cfg.Common.Platform
	retry := cfg.Common.Retry

	apiClient := api.NewClient(api.Options{
		MainToken:   platform.MainToken,
		Timeout:     platform.RequestTimeoutDuration(),
		MaxInFlight: platform.MaxInFlight,
		Retry: utils.GetRequestRetryOptions(
			retry.MaxRetries,
			time.Duration(retry.Delay)*time.Millisecond,
			time.Duration(retry.MaxDelay)*time.Millisecond,
		),
	}, logger)

	groupFetcher := fetcher.NewGroupFetcher(apiClient, logger,
		fetcher.WithLocation(location),
		fetcher.WithMaxConcurrency(platform.MaxConcurrency),
	)

	logger.Info("Application initialized",
		zap.String("service", serviceType.String()),
		zap.String("instanceID", logManager.GetInstanceID()),
		zap.String("logSession", logManager.GetCurrentSessionDir()),
		zap.String("timeZone", location.String()))

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		API:          apiClient,
		Fetcher:      groupFetcher,
		Location:     location,
		RedisManager: redisManager,
		StatusClient: statusClient,
		LogManager:   logManager,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(_ context.Context) {
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections after the database as workers may still report status
	s.RedisManager.Close()

	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	s.LogManager.Stop()
}

// connectDatabase opens the database and checks that no migration is pending.
func connectDatabase(
	ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger, opts Options,
) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, opts.AutoMigrate)
	if err != nil {
		return nil, err
	}

	if opts.AutoMigrate || opts.SkipMigrationCheck {
		return db, nil
	}

	pending, err := database.PendingMigrations(ctx, db.DB())
	if err != nil {
		db.Close()
		return nil, err
	}

	if len(pending) > 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %v (run `tracker db migrate`)", ErrMigrationsPending, pending)
	}

	return db, nil
}
