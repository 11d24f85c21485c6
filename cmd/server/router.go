package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/config"
	"github.com/ruralretreats/tourism-backend/internal/handlers"
	"github.com/ruralretreats/tourism-backend/internal/middleware"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// routes holds the handlers the router dispatches to
type routes struct {
	health         gin.HandlerFunc
	payments       *handlers.PaymentHandler
	webhooks       *handlers.WebhookHandler
	quotes         *handlers.QuoteHandler
	auth           *handlers.AuthHandler
	reconciliation *handlers.ReconciliationHandler
}

func setupRouter(cfg *config.Config, r routes, jwtService *jwt.Service, rateLimiter *middleware.RateLimiter, logger *logrus.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check (no rate limit, polled by the platform)
	router.GET("/health", r.health)

	// Signed gateway callbacks, outside the per-IP limiter
	router.POST("/api/payments/webhook", r.webhooks.Handle)

	api := router.Group("/api")
	api.Use(rateLimiter.Middleware())
	{
		// Payments: checkout works for guests, a bearer token links the booking to the account
		checkout := api.Group("/payments")
		checkout.Use(middleware.OptionalAuth(jwtService))
		{
			checkout.POST("/create-order", r.payments.CreateOrder)
			checkout.POST("/verify-payment", r.payments.VerifyPayment)
			checkout.POST("/payment-failed", r.payments.PaymentFailed)
			checkout.GET("/status/:orderId", r.payments.GetStatus)
			checkout.GET("/receipt/:orderId", r.payments.GetReceipt)
		}

		quotes := api.Group("/quotes")
		{
			quotes.POST("/bus", r.quotes.Bus)
			quotes.POST("/homestay", r.quotes.Homestay)
			quotes.POST("/package", r.quotes.Package)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/register", r.auth.Register)
			auth.POST("/login", r.auth.Login)
			auth.POST("/refresh", r.auth.RefreshToken)

			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService, logger))
			protected.POST("/logout", r.auth.Logout)
			protected.GET("/me", r.auth.Me)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService, logger), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/reconciliation", r.reconciliation.Status)
			admin.POST("/reconciliation/run", r.reconciliation.Run)
		}
	}

	return router
}
