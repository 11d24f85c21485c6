package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// Reconciler is the payment sweep as seen by operators
type Reconciler interface {
	RunNow(ctx context.Context) (*services.ReconciliationReport, error)
	GetJobStatus() map[string]interface{}
}

// ReconciliationHandler exposes the sweep to admins
type ReconciliationHandler struct {
	reconciler Reconciler
	logger     *logrus.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(reconciler Reconciler, logger *logrus.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler, logger: logger}
}

// Status handles GET /api/admin/reconciliation
func (h *ReconciliationHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "job": h.reconciler.GetJobStatus()})
}

// Run handles POST /api/admin/reconciliation/run
func (h *ReconciliationHandler) Run(c *gin.Context) {
	report, err := h.reconciler.RunNow(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual reconciliation failed")
		fail(c, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"expired":        len(report.Expired),
		"orphans":        len(report.OrphanCaptures),
		"newly_reported": report.NewlyReported,
	}).Info("Manual reconciliation completed")
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
