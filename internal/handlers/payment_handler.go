package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/middleware"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// PaymentFlow is the order/verify/failure lifecycle behind /api/payments
type PaymentFlow interface {
	CreateOrder(ctx context.Context, req services.CreateOrderRequest) (*services.OrderResult, error)
	VerifyPayment(ctx context.Context, req services.VerifyRequest) (*services.VerifyResult, error)
	RecordFailure(ctx context.Context, orderID, description string, meta models.RequestMeta) error
	GetStatus(ctx context.Context, orderID string) (*models.PaymentStatusView, error)
}

// ReceiptRenderer produces a downloadable receipt for a confirmed order
type ReceiptRenderer interface {
	GenerateReceipt(ctx context.Context, orderID string, requester services.ReceiptRequester) ([]byte, string, error)
}

// PaymentHandler handles checkout HTTP requests
type PaymentHandler struct {
	payments PaymentFlow
	receipts ReceiptRenderer
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments PaymentFlow, receipts ReceiptRenderer, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, receipts: receipts, logger: logger}
}

// PaymentFailedRequest is what the checkout widget posts when a payment fails.
// Error is either a plain string or the gateway's error object.
type PaymentFailedRequest struct {
	OrderID string          `json:"razorpay_order_id"`
	Error   json.RawMessage `json:"error"`
}

func (r PaymentFailedRequest) description() string {
	if len(r.Error) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(r.Error, &text); err == nil {
		return text
	}
	var obj struct {
		Description string `json:"description"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(r.Error, &obj); err == nil {
		if obj.Description != "" {
			return obj.Description
		}
		return obj.Reason
	}
	return ""
}

// CreateOrder handles POST /api/payments/create-order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}
	req.UserID = middleware.UserID(c)
	req.Meta = requestMeta(c)

	result, err := h.payments.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "create_order", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"order":           result.Order,
		"customerDetails": result.CustomerDetails,
	})
}

// VerifyPayment handles POST /api/payments/verify-payment
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}
	req.UserID = middleware.UserID(c)
	req.Meta = requestMeta(c)

	result, err := h.payments.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "verify_payment", err)
		return
	}

	message := "Payment verified and booking confirmed"
	if result.AlreadyCaptured {
		message = "Payment already verified"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          message,
		"bookingReference": result.BookingReference,
		"bookingId":        result.BookingID,
	})
}

// PaymentFailed handles POST /api/payments/payment-failed
func (h *PaymentHandler) PaymentFailed(c *gin.Context) {
	var req PaymentFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	if err := h.payments.RecordFailure(c.Request.Context(), strings.TrimSpace(req.OrderID), req.description(), requestMeta(c)); err != nil {
		respondError(c, h.logger, "payment_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment failure recorded"})
}

// GetStatus handles GET /api/payments/status/:orderId
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	status, err := h.payments.GetStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, h.logger, "payment_status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": status})
}

// GetReceipt handles GET /api/payments/receipt/:orderId?reference=<booking reference>.
// The reference is not needed when the booking owner is signed in.
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	requester := services.ReceiptRequester{
		UserID:    middleware.UserID(c),
		Reference: c.Query("reference"),
	}
	pdf, name, err := h.receipts.GenerateReceipt(c.Request.Context(), c.Param("orderId"), requester)
	if err != nil {
		respondError(c, h.logger, "payment_receipt", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
