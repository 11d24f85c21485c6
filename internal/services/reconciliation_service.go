package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ruralretreats/tourism-backend/internal/config"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const orphanBatchSize = 100

// ReconciliationReport summarises one sweep
type ReconciliationReport struct {
	Expired        []string      `json:"expired"`
	OrphanCaptures []string      `json:"orphanCaptures"`
	NewlyReported  int           `json:"newlyReported"`
	Duration       time.Duration `json:"duration"`
}

// ReconciliationService runs the scheduled payment sweep: it expires stale
// orders and reports captured payments that never got a booking.
type ReconciliationService struct {
	cron     *cron.Cron
	payments PaymentStore
	audit    *PaymentAuditService
	cfg      config.ReconciliationConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(payments PaymentStore, audit *PaymentAuditService, cfg config.ReconciliationConfig, logger *logrus.Logger) *ReconciliationService {
	return &ReconciliationService{
		cron:     cron.New(cron.WithSeconds()),
		payments: payments,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start schedules the sweep
func (s *ReconciliationService) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, s.reconcileJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation job: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.cfg.Schedule).Info("Reconciliation job scheduled")
	return nil
}

// Stop waits for a running sweep to finish
func (s *ReconciliationService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reconciliation job stopped")
}

func (s *ReconciliationService) reconcileJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := s.RunNow(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Reconciliation failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"expired":         len(report.Expired),
		"orphan_captures": len(report.OrphanCaptures),
		"duration":        report.Duration.String(),
	}).Info("[CRON] Reconciliation finished")
}

// RunNow performs one sweep immediately
func (s *ReconciliationService) RunNow(ctx context.Context) (*ReconciliationReport, error) {
	startTime := time.Now()
	now := s.now()
	report := &ReconciliationReport{}

	expired, err := s.payments.ExpireCreated(ctx, now.Add(-s.cfg.OrderTTL), ReasonOrderExpired)
	if err != nil {
		return nil, err
	}
	report.Expired = expired
	for _, orderID := range expired {
		audit := models.NewPaymentAudit(models.PaymentEventOrderExpired, models.PaymentSourceSystem).
			SetOrderID(orderID).
			SetPaymentStatus(models.PaymentStatusFailed).
			SetError(ReasonOrderExpired, nil)
		s.audit.Record(ctx, audit)
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("Expired stale payment orders")
	}

	orphans, err := s.payments.ListCapturedWithoutBooking(ctx, now.Add(-s.cfg.CaptureGrace), orphanBatchSize)
	if err != nil {
		return nil, err
	}
	for _, p := range orphans {
		report.OrphanCaptures = append(report.OrphanCaptures, p.RazorpayOrderID)

		code := "CAPTURED_WITHOUT_BOOKING"
		audit := models.NewPaymentAudit(models.PaymentEventBookingConfirmFailed, models.PaymentSourceSystem).
			SetPayment(p).
			SetPaymentStatus(p.Status).
			SetError("payment captured but no booking was created", &code)
		if p.RazorpayPaymentID != nil {
			audit.SetGatewayPaymentID(*p.RazorpayPaymentID)
		}
		if s.audit.RecordOnce(ctx, audit, "orphan-"+p.RazorpayOrderID) {
			report.NewlyReported++
			s.logger.WithFields(logrus.Fields{
				"order_id":     p.RazorpayOrderID,
				"amount":       p.Amount,
				"booking_type": p.BookingType,
			}).Error("Captured payment has no booking")
		}
	}

	report.Duration = time.Since(startTime)
	return report, nil
}

// GetJobStatus returns the status of the scheduled sweep
func (s *ReconciliationService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
