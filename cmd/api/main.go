package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/queosk/queosk/config"
	"github.com/queosk/queosk/internal/adapter/notification"
	"github.com/queosk/queosk/internal/domain"
	apihandler "github.com/queosk/queosk/internal/handler/api"
	"github.com/queosk/queosk/internal/repository/memory"
	"github.com/queosk/queosk/internal/repository/postgres"
	redisrepo "github.com/queosk/queosk/internal/repository/redis"
	"github.com/queosk/queosk/internal/usecase"
	"github.com/queosk/queosk/internal/worker"
	"github.com/queosk/queosk/pkg/auth"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/observability"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.Environment)
	defer logger.Close()

	// Print configuration in development mode
	if cfg.App.IsDevelopment() {
		cfg.Print()
	}

	// Initialize database connection
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetMaxOpenConns(cfg.Database.MaxOpen)
	db.SetConnMaxLifetime(cfg.Database.MaxLife)

	if cfg.Database.Migrate {
		if err := postgres.Migrate(context.Background(), db); err != nil {
			logger.Fatal("Failed to migrate database", logger.ErrorField(err))
		}
	}

	// Initialize Redis connection when a component needs it
	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})

		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
		}
		defer rdb.Close()
	}

	logger.Info("Storage connections established",
		logger.String("live_store", cfg.Queue.LiveStore),
		logger.Bool("redis", rdb != nil),
	)

	// Initialize repositories
	queueRepo := postgres.NewQueueRepository(db)
	restaurantRepo := postgres.NewRestaurantRepository(db)
	userRepo := postgres.NewUserRepository(db)
	transactor := postgres.NewTransactor(db)

	var liveStore domain.LiveQueueStore
	if cfg.Queue.LiveStore == config.LiveStoreMemory {
		logger.Warn("Using in-process live queue store; queue order is lost on restart")
		liveStore = memory.NewQueueStore()
	} else {
		liveStore = redisrepo.NewQueueStore(rdb, cfg.Queue.KeyPrefix)
	}

	// Initialize notification senders
	senders := notification.NewRegistry()
	senders.Register(notification.NewLogSender())
	if cfg.Notification.PushURL != "" {
		senders.Register(notification.NewHTTPPushSender(
			cfg.Notification.PushURL,
			cfg.Notification.PushAPIKey,
			cfg.Notification.PushTimeout,
			nil,
		))
	}
	if cfg.Notification.Driver == config.NotifyDriverRabbitMQ {
		rabbit, err := notification.DialRabbitMQ(cfg.Notification.RabbitMQURL, cfg.Notification.RabbitMQExchange)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", logger.ErrorField(err))
		}
		defer rabbit.Close()
		senders.Register(rabbit)
	}

	sender, err := senders.Get(cfg.Notification.Driver)
	if err != nil {
		logger.Fatal("Notification sender not available", logger.ErrorField(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var gateway domain.NotificationGateway
	if cfg.Notification.Delivery == config.DeliveryQueued {
		outbox := redisrepo.NewNotificationQueue(rdb, cfg.Notification.OutboxKey, time.Second)
		gateway = notification.NewQueuedGateway(outbox)

		// Start background notification worker
		notificationWorker := worker.NewNotificationWorker(outbox, sender, worker.NotificationWorkerConfig{
			PollingInterval: cfg.Notification.PollInterval,
		})
		go notificationWorker.Start(workerCtx)
	} else {
		gateway = notification.NewDirectGateway(sender)
	}

	// Initialize use cases
	queueUC := usecase.NewQueueUsecase(
		transactor,
		queueRepo,
		liveStore,
		restaurantRepo,
		userRepo,
		gateway,
		usecase.QueueOptions{
			GraceWindow:     cfg.Queue.GraceWindow,
			NotifyThreshold: cfg.Queue.NotifyThreshold,
			NotifyByRank:    cfg.Queue.NotifyByRank,
		},
	)

	// Initialize handlers
	queueHandler := apihandler.NewQueueHandler(queueUC)

	// Set Gin mode
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize auth service
	authService := auth.NewJWTAuthService(cfg.Auth)

	// Initialize metrics handler
	metricsHandler := observability.NewMetricsHandler(cfg.App.Name)
	metricsHandler.RegisterMetrics()
	metricsHandler.AddCheck("database", db.PingContext)
	if rdb != nil {
		metricsHandler.AddCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// Create Gin router
	router := gin.New()
	router.MaxMultipartMemory = cfg.API.MaxRequestSize

	// Add middleware
	router.Use(observability.ObservabilityMiddleware())

	// Setup metrics and health endpoints
	router.GET("/metrics", metricsHandler.MetricsEndpoint())
	router.GET("/health", metricsHandler.HealthEndpoint())
	router.GET("/ready", metricsHandler.ReadinessEndpoint())
	router.GET("/live", metricsHandler.LivenessEndpoint())

	// Setup API routes
	apihandler.SetupRoutes(router, queueHandler, authService)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			logger.String("port", cfg.App.Port),
			logger.String("environment", cfg.App.Environment),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	workerCancel()

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server exited")
}
