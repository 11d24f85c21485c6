package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/ruralretreats/tourism-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed /api request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func fail(c *gin.Context, status int, message, code string) {
	c.JSON(status, ErrorResponse{Success: false, Message: message, Code: code})
}

// statusFor maps a service error onto an HTTP status, a client-safe message and a code
func statusFor(err error) (int, string, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Msg, "VALIDATION_ERROR"
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request", "VALIDATION_ERROR"
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusBadRequest, "Payment verification failed", "INVALID_SIGNATURE"
	case errors.Is(err, services.ErrPaymentNotFound):
		return http.StatusNotFound, "Payment not found", "PAYMENT_NOT_FOUND"
	case errors.Is(err, services.ErrBookingNotFound):
		return http.StatusNotFound, "No booking exists for this order", "BOOKING_NOT_FOUND"
	case errors.Is(err, services.ErrReceiptForbidden):
		return http.StatusForbidden, "Sign in or provide the booking reference to download this receipt", "RECEIPT_FORBIDDEN"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "User not found", "USER_NOT_FOUND"
	case errors.Is(err, services.ErrDuplicateOrder):
		return http.StatusConflict, "Order already exists", "DUPLICATE_ORDER"
	case errors.Is(err, services.ErrPaymentNotCapturable):
		return http.StatusConflict, "Payment can no longer be confirmed", "PAYMENT_NOT_CAPTURABLE"
	case errors.Is(err, services.ErrUserExists):
		return http.StatusConflict, "Username or email already registered", "USER_EXISTS"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password", "INVALID_CREDENTIALS"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token", "INVALID_TOKEN"
	case errors.Is(err, services.ErrGateway):
		return http.StatusBadGateway, "Payment gateway unavailable. Please try again.", "GATEWAY_ERROR"
	default:
		return http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR"
	}
}

// respondError writes the mapped error and logs anything that is not the caller's fault
func respondError(c *gin.Context, logger *logrus.Logger, operation string, err error) {
	status, message, code := statusFor(err)
	entry := logger.WithFields(logrus.Fields{
		"operation": operation,
		"status":    status,
		"path":      c.Request.URL.Path,
	}).WithError(err)

	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	fail(c, status, message, code)
}

// requestMeta captures who sent the request for audit rows
func requestMeta(c *gin.Context) models.RequestMeta {
	userAgent := utils.GetUserAgent(c)
	return models.RequestMeta{
		IP:         utils.GetRealIP(c),
		UserAgent:  userAgent,
		DeviceInfo: models.JSONB(utils.ParseUserAgent(userAgent).Map()),
	}
}
