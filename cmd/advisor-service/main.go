package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-invest-advisor/internal/advisor/config"
	delivery "golang-invest-advisor/internal/advisor/delivery/http"
	"golang-invest-advisor/internal/advisor/repository"
	"golang-invest-advisor/internal/advisor/scheduler"
	"golang-invest-advisor/internal/advisor/service"
	"golang-invest-advisor/pkg/logger"
	"golang-invest-advisor/pkg/postgres"
	"golang-invest-advisor/pkg/redis"
	"golang-invest-advisor/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the advisor service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Advisor Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize Gemini client
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
	}

	// Initialize repositories
	riskScoreRepo := repository.NewRiskScoreRepository(db.DB)
	signalEventRepo := repository.NewSignalEventRepository(db.DB)
	reportRepo := repository.NewResearchReportRepository(db.DB)
	userProfileRepo := repository.NewUserProfileRepository(db.DB)
	watchlistRepo := repository.NewWatchlistRepository(db.DB)
	leaseRepo := repository.NewRedisLeaseRepository(redisClient.Client)
	macroFitRepo := repository.NewMacroFitRepository(cfg, appLogger)
	marketEventRepo := repository.NewMarketEventRepository(cfg, appLogger)
	fundamentalsRepo, err := repository.NewFundamentalsRepository(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize fundamentals repository", logger.ErrorField(err))
	}
	completionRepo, err := repository.NewGeminiCompletionRepository(cfg, appLogger, genAiClient)
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini completion repository", logger.ErrorField(err))
	}

	// Initialize Telegram notifier
	var notifier telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize services
	riskScorer := service.NewRiskScorer()
	signalDetector := service.NewSignalDetector(cfg, appLogger)
	orchestrator := service.NewResearchOrchestrator(cfg, appLogger, completionRepo, reportRepo, leaseRepo, notifier)
	advisorSvc := service.NewAdvisorService(
		cfg,
		appLogger,
		riskScorer,
		signalDetector,
		orchestrator,
		fundamentalsRepo,
		marketEventRepo,
		macroFitRepo,
		riskScoreRepo,
		signalEventRepo,
		reportRepo,
		userProfileRepo,
		watchlistRepo,
		redisClient,
		notifier,
	)

	// Start scheduler
	sched := scheduler.NewScheduler(cfg, appLogger, advisorSvc, watchlistRepo)
	if err := sched.Start(); err != nil {
		appLogger.Fatal("Failed to start scheduler", logger.ErrorField(err))
	}
	defer sched.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	advisorHandler := delivery.NewAdvisorHandler(advisorSvc, appLogger)
	apiV1 := e.Group("/api/v1")
	advisorHandler.RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "advisor-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-advisor.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing advisor-service CLI: %s\n", err)
		os.Exit(1)
	}
}
