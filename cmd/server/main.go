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
	"github.com/ruralretreats/tourism-backend/internal/config"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/handlers"
	"github.com/ruralretreats/tourism-backend/internal/middleware"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/ruralretreats/tourism-backend/pkg/jwt"
	"github.com/ruralretreats/tourism-backend/pkg/pricing"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Rural Retreats booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.EnsureSchema(ctx, db); err != nil {
			cancel()
			logger.Fatalf("Failed to apply schema: %v", err)
		}
		cancel()
		logger.Info("Database schema is up to date")
	}

	// Repositories
	paymentRepository := database.NewPaymentRepository(db.DB)
	bookingRepository := database.NewBookingRepository(db.DB)
	paymentAuditRepository := database.NewPaymentAuditRepository(db.DB, logger)
	userRepository := database.NewUserRepository(db.DB)
	refreshTokenRepository := database.NewRefreshTokenRepository(db.DB)

	// Services
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	auditService := services.NewAuditService(db)
	paymentAuditService := services.NewPaymentAuditService(paymentAuditRepository, logger)
	razorpayService := services.NewRazorpayService(cfg.Razorpay, logger)
	pricingEngine := pricing.NewEngine(cfg.Pricing.RouteSurcharge)

	var securityAuditor services.SecurityAuditor = auditService
	if !cfg.Security.EnableAuditLog {
		securityAuditor = services.NopSecurityAuditor{}
	}

	paymentService := services.NewPaymentService(
		paymentRepository,
		bookingRepository,
		razorpayService,
		paymentAuditService,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.Currency,
		logger,
	)
	webhookService := services.NewWebhookService(paymentRepository, paymentAuditService, cfg.Razorpay.WebhookSecret, logger)
	receiptService := services.NewReceiptService(paymentRepository, bookingRepository)
	quoteService := services.NewQuoteService(pricingEngine)
	authService := services.NewAuthService(
		userRepository,
		refreshTokenRepository,
		jwtService,
		securityAuditor,
		cfg.Security.BcryptCost,
		cfg.JWT.RefreshTokenExpiry,
		logger,
	)

	reconciliationService := services.NewReconciliationService(paymentRepository, paymentAuditService, cfg.Reconciliation, logger)
	if cfg.Reconciliation.Enabled {
		if err := reconciliationService.Start(); err != nil {
			logger.Fatalf("Failed to start reconciliation job: %v", err)
		}
		logger.WithField("schedule", cfg.Reconciliation.Schedule).Info("Reconciliation job started")
	}

	rateLimiter := middleware.NewRateLimiterFromConfig(cfg.RateLimit)
	stopSweeper := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := rateLimiter.Cleanup(); removed > 0 {
					logger.WithField("removed", removed).Debug("Dropped idle rate limit buckets")
				}
			case <-stopSweeper:
				return
			}
		}
	}()

	router := setupRouter(cfg, routes{
		health:         handlers.HealthCheck(db, version),
		payments:       handlers.NewPaymentHandler(paymentService, receiptService, logger),
		webhooks:       handlers.NewWebhookHandler(webhookService, logger),
		quotes:         handlers.NewQuoteHandler(quoteService, logger),
		auth:           handlers.NewAuthHandler(authService, logger),
		reconciliation: handlers.NewReconciliationHandler(reconciliationService, logger),
	}, jwtService, rateLimiter, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	reconciliationService.Stop()
	close(stopSweeper)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
