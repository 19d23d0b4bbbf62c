package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quantfolio/portfolio-performance-backend/internal/api"
	"github.com/quantfolio/portfolio-performance-backend/internal/config"
	"github.com/quantfolio/portfolio-performance-backend/internal/database"
	"github.com/quantfolio/portfolio-performance-backend/internal/pricefeed"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	assetRepo := repository.NewAssetRepository(db)
	pairRepo := repository.NewCurrencyPairRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	systemService := service.NewSystemService(db)
	// Create services
	feed := pricefeed.NewClient(cfg.PriceFeed.BaseURL)
	pricingService := service.NewPricingService(
		assetRepo,
		pairRepo,
		priceRepo,
		feed,
	)
	normalizerService := service.NewNormalizerService(
		transactionRepo,
		pairRepo,
		priceRepo,
	)
	positionService := service.NewPositionService(
		portfolioRepo,
		transactionRepo,
		assetRepo,
		pairRepo,
		priceRepo,
		snapshotRepo,
	)
	aggregationService := service.NewAggregationService(
		portfolioRepo,
		transactionRepo,
		snapshotRepo,
	)
	processingService := service.NewProcessingService(
		db,
		settingsRepo,
		portfolioRepo,
		assetRepo,
		pairRepo,
		normalizerService,
		positionService,
		aggregationService,
	)
	performanceService := service.NewPerformanceService(
		portfolioRepo,
		snapshotRepo,
	)
	resetService := service.NewResetService(
		db,
		portfolioRepo,
		transactionRepo,
		snapshotRepo,
		assetRepo,
		pairRepo,
		priceRepo,
	)

	// Schedule the daily refresh: pull fresh prices, then recompute
	// performance for every configured user.
	scheduler := cron.New()
	if cfg.Schedule.DailyRefresh != "" {
		_, err := scheduler.AddFunc(cfg.Schedule.DailyRefresh, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			if err := pricingService.RefreshAllPrices(ctx); err != nil {
				log.Printf("Scheduled price refresh failed: %v", err)
				return
			}

			userIDs, err := settingsRepo.GetUserIDs()
			if err != nil {
				log.Printf("Scheduled run failed to list users: %v", err)
				return
			}
			for _, userID := range userIDs {
				if err := processingService.Run(ctx, userID); err != nil {
					log.Printf("Scheduled run failed for user %d: %v", userID, err)
				}
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule daily refresh: %v", err)
		}
		scheduler.Start()
		log.Printf("Scheduled daily refresh: %s", cfg.Schedule.DailyRefresh)
	}

	// Create router
	router := api.NewRouter(systemService, pricingService, processingService, performanceService, resetService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
