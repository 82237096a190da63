package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/config"
	"github.com/noah-isme/gema-arena/internal/database"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/handler"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/observability"
	"github.com/noah-isme/gema-arena/internal/repository"
	"github.com/noah-isme/gema-arena/internal/router"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/session"
	"github.com/noah-isme/gema-arena/pkg/arena"
	cloud "github.com/noah-isme/gema-arena/pkg/cloudinary"
)

const (
	submitRateLimit  = 5
	submitRateWindow = time.Minute
	authRateLimit    = 10
	authRateWindow   = time.Minute
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "gema-arena").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	observability.RegisterMetrics()

	redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := db.AutoMigrate(&models.ActivityLog{}); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	} else {
		logger.Warn().Msg("database url not set, activity log disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	client, err := arena.New(arena.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout,
		RPS:     cfg.UpstreamRPS,
		Burst:   cfg.UpstreamBurst,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create arena client")
	}

	healthChecks := []handler.HealthDependency{
		{Name: "arena", Check: client.Ping},
		{Name: "redis", Check: database.RedisCheck(redisClient)},
	}
	if natsConn != nil {
		healthChecks = append(healthChecks, handler.HealthDependency{Name: "nats", Check: database.NATSCheck(natsConn), Optional: true})
	}
	if db != nil {
		healthChecks = append(healthChecks, handler.HealthDependency{Name: "activity_log", Check: database.GormCheck(db), Optional: true})
	}

	validate := dto.NewValidator()
	responseCache := cache.New(redisClient, cfg.EventsChannel+":cache", cfg.CacheTTL, logger)
	sessions := session.NewStore(redisClient, cfg.EventsChannel+":session", cfg.SessionTTL, logger)

	authRepo := repository.NewAuthRepository(client)
	userRepo := repository.NewUserRepository(client)
	transactionRepo := repository.NewTransactionRepository(client)
	challengeRepo := repository.NewChallengeRepository(client)
	submissionRepo := repository.NewSubmissionRepository(client)
	shopRepo := repository.NewShopRepository(client)
	announcementRepo := repository.NewAnnouncementRepository(client)

	var activityRepo repository.ActivityLogRepository
	if db != nil {
		activityRepo = repository.NewActivityLogRepository(db)
	}

	registry := service.NewWorkspaceRegistry(service.WorkspaceOptions{
		ExplanationMinLength: cfg.ExplanationMinLength,
		DefaultLanguage:      cfg.ExplanationLanguage,
	}, cfg.WorkspaceIdleTTL, logger)
	if err := registry.StartSweeper(0); err != nil {
		logger.Fatal().Err(err).Msg("failed to start workspace sweeper")
	}
	defer registry.Close()

	policy := service.NewPollPolicy(cfg.PollInterval)
	watcher := service.NewSubmissionWatcher(policy, redisClient, cfg.EventsChannel, natsConn, logger)
	watchCtx, stopWatcher := context.WithCancel(context.Background())
	watcher.Start(watchCtx)
	defer func() {
		stopWatcher()
		watcher.Close()
	}()

	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(authRepo, sessions, responseCache, registry, validate, logger)
	client.SetUnauthorizedHook(authService.Invalidate)

	userService := service.NewUserService(userRepo, transactionRepo, sessions, responseCache, validate, logger)
	challengeService := service.NewChallengeService(challengeRepo, submissionRepo, registry, watcher, policy, responseCache, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, registry, watcher, policy, responseCache, logger)
	shopService := service.NewShopService(shopRepo, userService, responseCache, validate, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, responseCache, logger)
	adminChallengeService := service.NewAdminChallengeService(challengeRepo, submissionRepo, responseCache, validate, activityService, logger)
	adminShopService := service.NewAdminShopService(shopRepo, responseCache, validate, activityService, logger)
	adminAnnouncementService := service.NewAdminAnnouncementService(announcementRepo, responseCache, validate, activityService, logger)
	adminUserService := service.NewAdminUserService(userRepo, submissionRepo, responseCache, validate, activityService, logger)

	var storage service.FileStorage
	if cfg.CloudinaryEnabled() {
		host, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = host
	} else {
		logger.Warn().Msg("cloudinary credentials not set, image uploads disabled")
	}
	uploadService := service.NewUploadService(storage, cfg.UploadMaxMB, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:              handler.NewAuthHandler(authService, handler.CookieOptions{TTL: cfg.SessionTTL, Secure: cfg.CookieSecure}, logger),
		UserHandler:              handler.NewUserHandler(userService, logger),
		WorkspaceHandler:         handler.NewWorkspaceHandler(challengeService, validate, middleware.NewUserLimiter(submitRateLimit, submitRateWindow), logger),
		SubmissionHandler:        handler.NewSubmissionHandler(submissionService, logger, 0),
		ShopHandler:              handler.NewShopHandler(shopService, logger),
		AnnouncementHandler:      handler.NewAnnouncementHandler(announcementService, logger),
		AdminChallengeHandler:    handler.NewAdminChallengeHandler(adminChallengeService, logger),
		AdminShopHandler:         handler.NewAdminShopHandler(adminShopService, logger),
		AdminAnnouncementHandler: handler.NewAdminAnnouncementHandler(adminAnnouncementService, logger),
		AdminUserHandler:         handler.NewAdminUserHandler(adminUserService, logger),
		AdminActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		UploadHandler:            handler.NewUploadHandler(uploadService, logger),
		AuthMiddleware: middleware.WithAuth(authService, middleware.AuthOptions{
			Secret:       cfg.JWTSecret,
			CookieSecure: cfg.CookieSecure,
			Logger:       logger,
		}),
		AuthRateLimit:  middleware.RateLimit("auth", authRateLimit, authRateWindow),
		HealthChecks:   healthChecks,
		MetricsHandler: observability.MetricsHandler(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
