package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/middleware"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentRouter(payments *fakePayments, receipts *fakeReceipts, user *uuid.UUID) *gin.Engine {
	router := setupTestRouter()
	if user != nil {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.UserContextKey, middleware.UserContext{UserID: *user, Username: "asha_rao"})
			c.Next()
		})
	}
	h := NewPaymentHandler(payments, receipts, testLogger())
	api := router.Group("/api/payments")
	api.POST("/create-order", h.CreateOrder)
	api.POST("/verify-payment", h.VerifyPayment)
	api.POST("/payment-failed", h.PaymentFailed)
	api.GET("/status/:orderId", h.GetStatus)
	api.GET("/receipt/:orderId", h.GetReceipt)
	return router
}

func TestCreateOrder_Success(t *testing.T) {
	payments := &fakePayments{order: &services.OrderResult{
		Order:           services.OrderView{ID: "order_abc", Amount: 967600, Currency: "INR", KeyID: "rzp_test_key"},
		CustomerDetails: models.CustomerDetails{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"},
	}}
	userID := uuid.New()
	router := paymentRouter(payments, nil, &userID)

	w := doJSON(router, http.MethodPost, "/api/payments/create-order", map[string]interface{}{
		"amount":          9676,
		"currency":        "INR",
		"bookingType":     "homestay",
		"bookingDetails":  map[string]interface{}{"homestayId": "coorg-cottage"},
		"customerDetails": map[string]string{"name": "Asha Rao", "email": "asha@example.com", "phone": "9876543210"},
	}, map[string]string{"User-Agent": "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "order_abc", order["id"])
	assert.Equal(t, float64(967600), order["amount"])
	assert.Equal(t, "rzp_test_key", order["key_id"])

	assert.Equal(t, 9676.0, payments.createReq.Amount)
	assert.Equal(t, models.BookingTypeHomestay, payments.createReq.BookingType)
	require.NotNil(t, payments.createReq.UserID)
	assert.Equal(t, userID, *payments.createReq.UserID)
	assert.Equal(t, "mobile", payments.createReq.Meta.DeviceInfo["device_type"])
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &services.ValidationError{Field: "amount", Msg: "Amount must be greater than zero"}, http.StatusBadRequest, "Amount must be greater than zero"},
		{"gateway", fmt.Errorf("%w: timeout", services.ErrGateway), http.StatusBadGateway, "Payment gateway unavailable. Please try again."},
		{"duplicate", services.ErrDuplicateOrder, http.StatusConflict, "Order already exists"},
		{"persistence", fmt.Errorf("%w: connection refused", services.ErrPersistence), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := paymentRouter(&fakePayments{err: tt.err}, nil, nil)
			w := doJSON(router, http.MethodPost, "/api/payments/create-order", map[string]interface{}{"amount": 1}, nil)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	payments := &fakePayments{}
	router := paymentRouter(payments, nil, nil)

	w := doJSON(router, http.MethodPost, "/api/payments/create-order", `{"amount":`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
	assert.Zero(t, payments.createReq.Amount)
}

func TestVerifyPayment_Success(t *testing.T) {
	bookingID := uuid.New()
	payments := &fakePayments{verify: &services.VerifyResult{BookingReference: "HS-20261015-AB12CD", BookingID: bookingID}}
	router := paymentRouter(payments, nil, nil)

	w := doJSON(router, http.MethodPost, "/api/payments/verify-payment", map[string]interface{}{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "deadbeef",
		"bookingDetails":      map[string]interface{}{"totalAmount": 9676},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "HS-20261015-AB12CD", body["bookingReference"])
	assert.Equal(t, bookingID.String(), body["bookingId"])
	assert.Equal(t, "order_abc", payments.verifyReq.OrderID)
	assert.Equal(t, "pay_xyz", payments.verifyReq.PaymentID)
	assert.Equal(t, "deadbeef", payments.verifyReq.Signature)
	assert.Nil(t, payments.verifyReq.UserID)
}

func TestVerifyPayment_AlreadyCaptured(t *testing.T) {
	payments := &fakePayments{verify: &services.VerifyResult{BookingReference: "BUS-1", BookingID: uuid.New(), AlreadyCaptured: true}}
	router := paymentRouter(payments, nil, nil)

	w := doJSON(router, http.MethodPost, "/api/payments/verify-payment", map[string]string{"razorpay_order_id": "order_abc"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment already verified", decode(t, w)["message"])
}

func TestVerifyPayment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"bad signature", services.ErrInvalidSignature, http.StatusBadRequest, "Payment verification failed"},
		{"unknown order", services.ErrPaymentNotFound, http.StatusNotFound, "Payment not found"},
		{"refunded", services.ErrPaymentNotCapturable, http.StatusConflict, "Payment can no longer be confirmed"},
		{"persistence", services.ErrPersistence, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := paymentRouter(&fakePayments{err: tt.err}, nil, nil)
			w := doJSON(router, http.MethodPost, "/api/payments/verify-payment", map[string]string{"razorpay_order_id": "order_abc"}, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["message"])
		})
	}
}

func TestPaymentFailed_ErrorShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"razorpay_order_id":"order_abc","error":{"code":"BAD_REQUEST_ERROR","description":"Card declined"}}`, "Card declined"},
		{"reason only", `{"razorpay_order_id":"order_abc","error":{"reason":"payment_cancelled"}}`, "payment_cancelled"},
		{"string", `{"razorpay_order_id":"order_abc","error":"User closed the window"}`, "User closed the window"},
		{"missing", `{"razorpay_order_id":"order_abc"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &fakePayments{}
			router := paymentRouter(payments, nil, nil)

			w := doJSON(router, http.MethodPost, "/api/payments/payment-failed", tt.body, nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, true, decode(t, w)["success"])
			assert.Equal(t, "order_abc", payments.failedID)
			assert.Equal(t, tt.want, payments.failedDesc)
		})
	}
}

func TestPaymentFailed_StoreDown(t *testing.T) {
	router := paymentRouter(&fakePayments{err: services.ErrPersistence}, nil, nil)
	w := doJSON(router, http.MethodPost, "/api/payments/payment-failed", `{"razorpay_order_id":"order_abc"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetStatus(t *testing.T) {
	created := time.Date(2026, 10, 15, 4, 30, 0, 0, time.UTC)
	payments := &fakePayments{status: &models.PaymentStatusView{
		Status:      models.PaymentStatusCaptured,
		Amount:      2258,
		Currency:    "INR",
		BookingType: models.BookingTypeBus,
		CreatedAt:   created,
	}}
	router := paymentRouter(payments, nil, nil)

	w := doJSON(router, http.MethodGet, "/api/payments/status/order_abc", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	payment := decode(t, w)["payment"].(map[string]interface{})
	assert.Equal(t, "captured", payment["status"])
	assert.Equal(t, 2258.0, payment["amount"])
	assert.Equal(t, "bus", payment["bookingType"])

	notFound := paymentRouter(&fakePayments{err: services.ErrPaymentNotFound}, nil, nil)
	assert.Equal(t, http.StatusNotFound, doJSON(notFound, http.MethodGet, "/api/payments/status/order_missing", nil, nil).Code)
}

func TestGetReceipt(t *testing.T) {
	receipts := &fakeReceipts{pdf: []byte("%PDF-1.3 test"), name: "receipt-HS-1.pdf"}
	router := paymentRouter(&fakePayments{}, receipts, nil)

	w := doJSON(router, http.MethodGet, "/api/payments/receipt/order_abc", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="receipt-HS-1.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 test", w.Body.String())
}

func TestGetReceipt_NoBooking(t *testing.T) {
	router := paymentRouter(&fakePayments{}, &fakeReceipts{err: services.ErrBookingNotFound}, nil)

	w := doJSON(router, http.MethodGet, "/api/payments/receipt/order_abc", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No booking exists for this order", decode(t, w)["message"])
}

func TestGetReceipt_PassesRequester(t *testing.T) {
	userID := uuid.New()
	receipts := &fakeReceipts{pdf: []byte("%PDF-1.3 test"), name: "receipt-HS-1.pdf"}
	router := paymentRouter(&fakePayments{}, receipts, &userID)

	w := doJSON(router, http.MethodGet, "/api/payments/receipt/order_abc?reference=RR-20261015-4B42DC", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, receipts.requester.UserID)
	assert.Equal(t, userID, *receipts.requester.UserID)
	assert.Equal(t, "RR-20261015-4B42DC", receipts.requester.Reference)
}

func TestGetReceipt_Forbidden(t *testing.T) {
	receipts := &fakeReceipts{err: services.ErrReceiptForbidden}
	router := paymentRouter(&fakePayments{}, receipts, nil)

	w := doJSON(router, http.MethodGet, "/api/payments/receipt/order_abc", nil, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, "RECEIPT_FORBIDDEN", body["code"])
	assert.Nil(t, receipts.requester.UserID)
	assert.Empty(t, receipts.requester.Reference)
	assert.NotContains(t, w.Body.String(), "asha@example.com")
}

func TestStatusFor_WrappedErrors(t *testing.T) {
	status, _, code := statusFor(fmt.Errorf("verify: %w", services.ErrInvalidSignature))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_SIGNATURE", code)

	status, message, _ := statusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", message)

	status, _, _ = statusFor(services.ErrUserExists)
	assert.Equal(t, http.StatusConflict, status)
}
