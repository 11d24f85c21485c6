package services

import (
	"context"
	"testing"
	"time"

	"github.com/ruralretreats/tourism-backend/internal/config"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconciliationFixture() (*ReconciliationService, *memStore, *memAudit) {
	store := newMemStore()
	audit := &memAudit{}
	logger := testLogger()
	svc := NewReconciliationService(store, NewPaymentAuditService(audit, logger), config.ReconciliationConfig{
		Enabled:      true,
		Schedule:     "0 */5 * * * *",
		OrderTTL:     30 * time.Minute,
		CaptureGrace: 10 * time.Minute,
	}, logger)
	return svc, store, audit
}

func TestRunNow_ExpiresStaleOrders(t *testing.T) {
	svc, store, audit := newReconciliationFixture()
	now := time.Now()

	store.put(&models.Payment{RazorpayOrderID: "order_stale", Status: models.PaymentStatusCreated, CreatedAt: now.Add(-time.Hour)})
	store.put(&models.Payment{RazorpayOrderID: "order_fresh", Status: models.PaymentStatusCreated, CreatedAt: now.Add(-5 * time.Minute)})
	store.put(&models.Payment{RazorpayOrderID: "order_old_authorized", Status: models.PaymentStatusAuthorized, CreatedAt: now.Add(-time.Hour)})

	report, err := svc.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"order_stale"}, report.Expired)
	assert.Equal(t, models.PaymentStatusFailed, store.payment("order_stale").Status)
	assert.Equal(t, ReasonOrderExpired, *store.payment("order_stale").FailureReason)
	assert.Equal(t, models.PaymentStatusCreated, store.payment("order_fresh").Status)
	assert.Equal(t, models.PaymentStatusAuthorized, store.payment("order_old_authorized").Status)

	expired := audit.byType(models.PaymentEventOrderExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, "order_stale", *expired[0].RazorpayOrderID)
}

func TestRunNow_ReportsOrphanCapturesOnce(t *testing.T) {
	svc, store, audit := newReconciliationFixture()
	capturedAt := time.Now().Add(-time.Hour)
	recent := time.Now().Add(-time.Minute)
	paymentID := "pay_orphan"

	store.put(&models.Payment{
		RazorpayOrderID:   "order_orphan",
		RazorpayPaymentID: &paymentID,
		Status:            models.PaymentStatusCaptured,
		BookingType:       models.BookingTypeHomestay,
		Amount:            9676,
		CapturedAt:        &capturedAt,
	})
	store.put(&models.Payment{
		RazorpayOrderID: "order_just_captured",
		Status:          models.PaymentStatusCaptured,
		CapturedAt:      &recent,
	})

	first, err := svc.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"order_orphan"}, first.OrphanCaptures)
	assert.Equal(t, 1, first.NewlyReported)

	second, err := svc.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"order_orphan"}, second.OrphanCaptures)
	assert.Zero(t, second.NewlyReported)

	reports := audit.byType(models.PaymentEventBookingConfirmFailed)
	require.Len(t, reports, 1)
	assert.Equal(t, "CAPTURED_WITHOUT_BOOKING", *reports[0].ErrorCode)
	assert.Equal(t, "pay_orphan", *reports[0].RazorpayPaymentID)
}

func TestRunNow_StoreFailure(t *testing.T) {
	svc, store, _ := newReconciliationFixture()
	store.failWith = errStoreDown

	_, err := svc.RunNow(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}

func TestReconciliation_StartStop(t *testing.T) {
	svc, _, _ := newReconciliationFixture()

	require.NoError(t, svc.Start())
	status := svc.GetJobStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 1, status["job_count"])
	svc.Stop()
}

func TestReconciliation_InvalidSchedule(t *testing.T) {
	svc, _, _ := newReconciliationFixture()
	svc.cfg.Schedule = "every now and then"

	assert.Error(t, svc.Start())
}
