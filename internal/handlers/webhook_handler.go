package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// WebhookProcessor applies signed gateway deliveries
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, req services.WebhookRequest) error
}

// WebhookHandler receives Razorpay webhooks
type WebhookHandler struct {
	webhooks WebhookProcessor
	logger   *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhooks WebhookProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// Handle handles POST /api/payments/webhook.
// The body is read raw because the signature covers the exact bytes sent.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	err = h.webhooks.HandleWebhook(c.Request.Context(), services.WebhookRequest{
		Body:      body,
		Signature: c.GetHeader("X-Razorpay-Signature"),
		EventID:   c.GetHeader("X-Razorpay-Event-Id"),
		Meta:      requestMeta(c),
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
	default:
		h.logger.WithError(err).WithField("event_id", c.GetHeader("X-Razorpay-Event-Id")).Error("Webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
	}
}
