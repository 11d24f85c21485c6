package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type fakePayments struct {
	createReq  services.CreateOrderRequest
	verifyReq  services.VerifyRequest
	failedID   string
	failedDesc string
	failedMeta models.RequestMeta

	order  *services.OrderResult
	verify *services.VerifyResult
	status *models.PaymentStatusView
	err    error
}

func (f *fakePayments) CreateOrder(_ context.Context, req services.CreateOrderRequest) (*services.OrderResult, error) {
	f.createReq = req
	return f.order, f.err
}

func (f *fakePayments) VerifyPayment(_ context.Context, req services.VerifyRequest) (*services.VerifyResult, error) {
	f.verifyReq = req
	return f.verify, f.err
}

func (f *fakePayments) RecordFailure(_ context.Context, orderID, description string, meta models.RequestMeta) error {
	f.failedID, f.failedDesc, f.failedMeta = orderID, description, meta
	return f.err
}

func (f *fakePayments) GetStatus(_ context.Context, _ string) (*models.PaymentStatusView, error) {
	return f.status, f.err
}

type fakeReceipts struct {
	requester services.ReceiptRequester

	pdf  []byte
	name string
	err  error
}

func (f *fakeReceipts) GenerateReceipt(_ context.Context, _ string, requester services.ReceiptRequester) ([]byte, string, error) {
	f.requester = requester
	return f.pdf, f.name, f.err
}

type fakeWebhooks struct {
	got services.WebhookRequest
	err error
}

func (f *fakeWebhooks) HandleWebhook(_ context.Context, req services.WebhookRequest) error {
	f.got = req
	return f.err
}

type fakeAuth struct {
	registered services.RegisterRequest
	login      string
	logoutUser uuid.UUID
	logoutAll  bool
	result     *services.AuthResult
	profile    *models.Profile
	err        error
}

func (f *fakeAuth) Register(_ context.Context, req services.RegisterRequest, _ models.RequestMeta) (*services.AuthResult, error) {
	f.registered = req
	return f.result, f.err
}

func (f *fakeAuth) Login(_ context.Context, login, _ string, _ models.RequestMeta) (*services.AuthResult, error) {
	f.login = login
	return f.result, f.err
}

func (f *fakeAuth) Refresh(_ context.Context, _ string, _ models.RequestMeta) (*services.AuthResult, error) {
	return f.result, f.err
}

func (f *fakeAuth) Logout(_ context.Context, userID uuid.UUID, _ string, all bool, _ models.RequestMeta) error {
	f.logoutUser, f.logoutAll = userID, all
	return f.err
}

func (f *fakeAuth) Me(_ context.Context, _ uuid.UUID) (*models.Profile, error) {
	return f.profile, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }
