package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moveboard/service-booking/internal/application"
	"github.com/moveboard/service-booking/internal/auth"
	"github.com/moveboard/service-booking/internal/config"
	"github.com/moveboard/service-booking/internal/database"
	bookingDomain "github.com/moveboard/service-booking/internal/domain/booking"
	"github.com/moveboard/service-booking/internal/domain/pricing"
	bookingEvents "github.com/moveboard/service-booking/internal/events"
	"github.com/moveboard/service-booking/internal/handler"
	"github.com/moveboard/service-booking/internal/logger"
	"github.com/moveboard/service-booking/internal/middleware"
	"github.com/moveboard/service-booking/internal/repository"
	"github.com/moveboard/service-booking/internal/scheduling"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
	)

	platformFeeRate, err := decimal.NewFromString(cfg.Booking.PlatformFeeRate)
	if err != nil {
		log.Fatal("invalid platform fee rate", zap.Error(err))
	}

	// Connect to database
	db, err := database.Connect(cfg.DB.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.BookingModel{},
			&repository.ReservationModel{},
			&repository.StatusRecordModel{},
			&repository.PricingConfigModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DB.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, 15*time.Minute)

	// Initialize Kafka producer
	producer := bookingEvents.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = producer.Close() }()

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	historyRepo := repository.NewGormStatusHistoryRepository(db)
	configRepo := repository.NewGormPricingConfigRepository(db)
	reservationStore := repository.NewGormReservationStore(db)

	// Initialize domain services
	engine := pricing.NewEngine(platformFeeRate)
	guard := scheduling.NewGuard(reservationStore, time.Duration(cfg.Booking.LockWaitMS)*time.Millisecond, log)
	policy := bookingDomain.NewCancellationPolicy()

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		historyRepo,
		configRepo,
		engine,
		guard,
		policy,
		producer,
		cfg.Booking.BufferMinutes,
		log,
	)
	pricingService := application.NewPricingService(configRepo, log)

	// Initialize and start payment event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.Kafka.GroupPrefix + "booking-service"
	paymentConsumer := bookingEvents.NewPaymentEventConsumer(
		cfg.Kafka.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.RequestID())

	// Register health check routes
	healthHandler := handler.NewHealthHandler(db, "service-booking")
	healthHandler.RegisterRoutes(router)

	// Register routes
	bookingHandler := handler.NewBookingHandler(bookingService)
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	pricingHandler := handler.NewPricingHandler(bookingService, pricingService)
	pricingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	adminHandler := handler.NewAdminBookingHandler(bookingService)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
