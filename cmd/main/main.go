package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/bot"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/config"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/storage"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/usecase"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/wa"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/webhook"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize Metrics conditionally
	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	// Log startup information
	logger.Log.Info("Starting MANAS Helpline Bot",
		zap.String("environment", cfg.Environment),
		zap.String("phone_number_id", cfg.WhatsApp.PhoneNumberID),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Create repository adapters for the services
	userRepo := storage.NewUserRepoAdapter(postgresRepo)
	sessionRepo := storage.NewSessionRepoAdapter(postgresRepo)
	flowRepo := storage.NewSessionFlowRepoAdapter(postgresRepo)
	messageRepo := storage.NewChatMessageRepoAdapter(postgresRepo)
	eventRepo := storage.NewAnalyticsEventRepoAdapter(postgresRepo)
	metricRepo := storage.NewDashboardMetricRepoAdapter(postgresRepo)

	// Analytics events fan out to NATS when enabled, otherwise stay in Postgres only
	var publisher eventbus.Publisher
	if cfg.NATS.Enabled {
		natsPublisher, err := eventbus.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.Log.Fatal("Failed to initialize NATS publisher", zap.Error(err))
		}
		publisher = natsPublisher
	} else {
		logger.Log.Info("NATS publishing disabled, analytics events persist to Postgres only")
		publisher = eventbus.NoopPublisher{}
	}

	// WhatsApp Cloud API client for outbound replies
	sender := wa.NewClient(cfg.WhatsApp.APIBaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Token, cfg.WhatsApp.SendTimeout)

	// Conversation services
	dispatcher := bot.NewDispatcher(bot.NewCategoryCache())
	resolver := usecase.NewResolver(userRepo, sessionRepo, eventRepo, publisher)
	recorder := usecase.NewRecorder(userRepo, sessionRepo, flowRepo, messageRepo, eventRepo, publisher)
	sessionService := usecase.NewSessionService(userRepo, sessionRepo, eventRepo, publisher)
	aggregator := usecase.NewAggregator(userRepo, sessionRepo, flowRepo, messageRepo, eventRepo, metricRepo)

	// Create inbound worker pool
	inboundWorker, err := usecase.NewInboundWorker(
		cfg.WorkerPools.Inbound,
		resolver,
		dispatcher,
		sender,
		recorder,
		logger.Log, // Pass the base logger
	)
	if err != nil {
		logger.Log.Fatal("Failed to initialize inbound worker pool", zap.Error(err))
	}

	// Daily metric rollups run in the background for as long as main lives
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()
	go aggregator.RunDailyScheduler(mainCtx, cfg.Aggregation.DailyRunHourUTC)

	// Create webhook/API server
	server := webhook.NewServer(
		strconv.Itoa(cfg.Server.Port),
		cfg.WhatsApp.VerifyToken,
		inboundWorker,
		sessionService,
		aggregator,
		logger.Log,
	)

	// Register metrics handler if enabled BEFORE starting the server
	if metricsEnabled {
		server.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	server.Start()

	logger.Log.Info("Webhook endpoints available",
		zap.String("verify", fmt.Sprintf("http://localhost:%d/webhook", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
	)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Stop the daily scheduler
	mainCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	// Use WaitGroup to track shutdown of all components
	var wg sync.WaitGroup
	wg.Add(3)

	// Shutdown HTTP server first so no new webhook tasks are accepted
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping HTTP server")
		start := time.Now()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping HTTP server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] HTTP server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping HTTP server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done() // Ensure WaitGroup is decremented even in case of panic
	})

	// Shutdown inbound worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping inbound worker pool")
		start := time.Now()
		inboundWorker.Stop()
		logger.Log.Info("[shutdown] Inbound worker pool stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping inbound worker pool",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close external connections
	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing event bus publisher")
		busStart := time.Now()
		publisher.Close()
		logger.Log.Info("[shutdown] Event bus publisher closed",
			zap.Duration("duration", time.Since(busStart)))

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done() // Ensure WaitGroup is decremented even in case of panic
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("MANAS Helpline Bot shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	return repo, nil
}
