package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ruralretreats/tourism-backend/internal/config"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// One-shot reconciliation sweep plus housekeeping, for cron hosts or manual runs.
func main() {
	var (
		dbURLFlag      string
		orderTTL       time.Duration
		captureGrace   time.Duration
		auditRetention time.Duration
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.DurationVar(&orderTTL, "order-ttl", 30*time.Minute, "expire created orders older than this")
	flag.DurationVar(&captureGrace, "capture-grace", 10*time.Minute, "report captured payments without a booking older than this")
	flag.DurationVar(&auditRetention, "audit-retention", 90*24*time.Hour, "delete security audit rows older than this (0 keeps everything)")
	flag.Parse()

	// .env is optional; it keeps secrets off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	payments := database.NewPaymentRepository(db.DB)
	audit := services.NewPaymentAuditService(database.NewPaymentAuditRepository(db.DB, logger), logger)
	reconciler := services.NewReconciliationService(payments, audit, config.ReconciliationConfig{
		OrderTTL:     orderTTL,
		CaptureGrace: captureGrace,
	}, logger)

	report, err := reconciler.RunNow(ctx)
	if err != nil {
		log.Fatalf("reconciliation failed: %v", err)
	}

	fmt.Printf("Expired orders: %d\n", len(report.Expired))
	for _, id := range report.Expired {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("Captured without booking: %d (%d newly reported)\n", len(report.OrphanCaptures), report.NewlyReported)
	for _, id := range report.OrphanCaptures {
		fmt.Printf("  %s\n", id)
	}

	removed, err := database.NewRefreshTokenRepository(db.DB).DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Fatalf("failed to delete expired refresh tokens: %v", err)
	}
	fmt.Printf("Expired refresh tokens deleted: %d\n", removed)

	if auditRetention > 0 {
		purged, err := services.NewAuditService(db).CleanupOldAuditLogs(ctx, auditRetention)
		if err != nil {
			log.Fatalf("failed to clean audit logs: %v", err)
		}
		fmt.Printf("Audit rows older than %s deleted: %d\n", auditRetention, purged)
	}
}
