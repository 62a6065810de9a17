package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"paydesk/internal/infrastructure/payment"
	"paydesk/internal/repo"
	"paydesk/internal/service"
	"paydesk/internal/signature"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
)

const (
	keySecret = "test_secret"
	whSecret  = "wh_secret"
)

type staticHealth map[string]string

func (h staticHealth) Health(context.Context) map[string]string { return h }

// brokenRefundStatus fails every webhook status write.
type brokenRefundStatus struct {
	repo.PaymentRepo
}

func (brokenRefundStatus) MarkRefundProcessed(context.Context, string, time.Time) error {
	return errors.New("database is closed")
}

type ServerSuite struct {
	suite.Suite
	store   *repo.Memory
	gateway *payment.MockGateway
	handler http.Handler
}

func (s *ServerSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *ServerSuite) SetupTest() {
	log, _ := logtest.NewNullLogger()
	s.store = repo.NewMemory()
	s.gateway = payment.NewMockGateway()

	srv := NewServer(Options{
		Port:           3000,
		AllowedOrigins: []string{"http://localhost:5173"},
		Auth:           service.NewAuthService(s.store.Credentials(), log),
		Payments: service.NewPaymentService(s.store.Payments(), s.gateway, service.PaymentConfig{
			KeyID:         "rzp_test_key",
			KeySecret:     keySecret,
			WebhookSecret: whSecret,
		}, log),
		Health: staticHealth{"status": "up"},
		Log:    log,
	})
	s.handler = srv.Handler
}

func (s *ServerSuite) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *ServerSuite) TestSignupLogin() {
	creds := map[string]string{"username": "asha", "password": "pw"}

	rec, body := s.do(http.MethodPost, "/signup", creds)
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("Signup successful", body["message"])

	rec, body = s.do(http.MethodPost, "/signup", creds)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("User already exists", body["message"])

	rec, body = s.do(http.MethodPost, "/signup", map[string]string{"username": "x"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, body = s.do(http.MethodPost, "/login", creds)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Login successful", body["message"])
	s.Equal(map[string]any{"username": "asha"}, body["user"])

	rec, body = s.do(http.MethodPost, "/login", map[string]string{"username": "asha", "password": "nope"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Invalid username or password", body["message"])
}

func (s *ServerSuite) TestMalformedBody() {
	rec, body := s.do(http.MethodPost, "/create-order", []byte(`{"amount":`))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(false, body["success"])
}

func (s *ServerSuite) TestPaymentFlow() {
	rec, order := s.do(http.MethodPost, "/create-order", map[string]any{"amount": 500})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("INR", order["currency"])
	s.Equal(float64(50000), order["amount"])
	s.Equal("rzp_test_key", order["key"])
	orderID := order["id"].(string)

	rec, body := s.do(http.MethodPost, "/verify-payment", map[string]string{
		"order_id": orderID, "payment_id": "pay_123", "signature": "bogus",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid signature", body["message"])

	rec, body = s.do(http.MethodPost, "/verify-payment", map[string]string{
		"order_id": orderID, "payment_id": "pay_123", "signature": signature.SignPayment(keySecret, orderID, "pay_123"),
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(true, body["success"])

	rec, body = s.do(http.MethodPost, "/refund", map[string]any{"payment_id": "pay_123", "amount": "125.50", "reason": "partial"})
	s.Require().Equal(http.StatusOK, rec.Code)
	refund := body["refund"].(map[string]any)
	s.Equal(125.5, refund["amount"])
	s.Equal("processed", refund["status"])
	s.Equal("pay_123", refund["payment_id"])

	rec, body = s.do(http.MethodPost, "/refund", map[string]any{"payment_id": "pay_123"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, body = s.do(http.MethodGet, "/refund/"+refund["id"].(string), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	fetched := body["refund"].(map[string]any)
	s.Equal(125.5, fetched["amount"])
	s.NotEmpty(fetched["created_at"])

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments", nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list, 1)
	s.Equal(374.5, list[0]["net_amount"])
	s.Equal(true, list[0]["is_refunded"])
	s.Equal("25.10%", list[0]["refund_percentage"])
}

func (s *ServerSuite) TestRefundStatuses() {
	rec, _ := s.do(http.MethodPost, "/refund", map[string]any{})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, body := s.do(http.MethodPost, "/refund", map[string]any{"payment_id": "pay_nope"})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Payment not found", body["message"])
}

func (s *ServerSuite) TestGatewayErrorsAreSanitized() {
	s.gateway.FailNext(errors.New("BAD_REQUEST_ERROR: key_secret rzp_live_xxx invalid"))
	rec, body := s.do(http.MethodPost, "/create-order", map[string]any{"amount": 10})
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("payment gateway error", body["message"])
	s.NotContains(rec.Body.String(), "rzp_live_xxx")
}

func (s *ServerSuite) TestWebhook() {
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	rec, out := s.do(http.MethodPost, "/webhook", body, signatureHeader, signature.Sign(whSecret, body))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Webhook processed", out["message"])

	rec, _ = s.do(http.MethodPost, "/webhook", body, signatureHeader, "wrong")
	s.Equal(http.StatusBadRequest, rec.Code)

	// header name lookup is case-insensitive
	rec, _ = s.do(http.MethodPost, "/webhook", body, "x-razorpay-signature", signature.Sign(whSecret, body))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestWebhook_StorageFailureIsServerError() {
	log, hook := logtest.NewNullLogger()
	srv := NewServer(Options{
		Port:     3000,
		Auth:     service.NewAuthService(s.store.Credentials(), log),
		Payments: service.NewPaymentService(brokenRefundStatus{s.store.Payments()}, s.gateway, service.PaymentConfig{WebhookSecret: whSecret}, log),
		Health:   staticHealth{"status": "up"},
		Log:      log,
	})
	s.handler = srv.Handler

	body := []byte(`{"event":"refund.processed","created_at":1700000000,"payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1"}}}}`)
	rec, out := s.do(http.MethodPost, "/webhook", body, signatureHeader, signature.Sign(whSecret, body))
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Webhook processing failed", out["message"])
	s.NotContains(rec.Body.String(), "database is closed")

	entry := hook.LastEntry()
	s.Require().NotNil(entry)
	s.Equal("webhook processing failed", entry.Message)
}

func (s *ServerSuite) TestHealth() {
	rec, body := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("up", body["status"])
}

func (s *ServerSuite) TestCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/create-order", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Equal("http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/create-order", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Empty(rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}
