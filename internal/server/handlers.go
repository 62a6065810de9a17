package server

import (
	"net/http"
	"paydesk/internal/domain"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const signatureHeader = "X-Razorpay-Signature"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createOrderRequest struct {
	Amount decimal.NullDecimal `json:"amount"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type refundRequest struct {
	PaymentID string              `json:"payment_id"`
	Amount    decimal.NullDecimal `json:"amount"`
	Reason    string              `json:"reason"`
}

var errBadBody = domain.ValidationError("Invalid request body")

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, errBadBody)
		return false
	}
	return true
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.health.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

func (s *Server) signupHandler(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.auth.Signup(c.Request.Context(), req.Username, req.Password); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Signup successful"})
}

func (s *Server) loginHandler(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}
	username, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"username": username},
	})
}

func (s *Server) createOrderHandler(c *gin.Context) {
	var req createOrderRequest
	if !s.bind(c, &req) {
		return
	}
	order, err := s.payments.CreateOrder(c.Request.Context(), req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       order.ID,
		"currency": order.Currency,
		"amount":   order.Amount,
		"key":      order.KeyID,
	})
}

func (s *Server) verifyPaymentHandler(c *gin.Context) {
	var req verifyPaymentRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.payments.VerifyPayment(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully"})
}

func (s *Server) listPaymentsHandler(c *gin.Context) {
	views, err := s.payments.ListPayments(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) refundHandler(c *gin.Context) {
	var req refundRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.payments.Refund(c.Request.Context(), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Refund initiated successfully",
		"refund": gin.H{
			"id":         res.ID,
			"amount":     res.Amount.InexactFloat64(),
			"status":     res.Status,
			"payment_id": res.PaymentID,
		},
	})
}

func (s *Server) fetchRefundHandler(c *gin.Context) {
	r, err := s.payments.FetchRefund(c.Request.Context(), c.Param("refund_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	refund := gin.H{
		"id":         r.ID,
		"payment_id": r.PaymentID,
		"amount":     r.Amount.InexactFloat64(),
		"status":     r.Status,
		"created_at": nil,
	}
	if !r.CreatedAt.IsZero() {
		refund["created_at"] = r.CreatedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "refund": refund})
}

func (s *Server) webhookHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, errBadBody)
		return
	}

	err = s.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
	case domain.KindOf(err) == domain.KindSignature, domain.KindOf(err) == domain.KindValidation:
		s.fail(c, err)
	default:
		s.log.WithError(err).Error("webhook processing failed")
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Webhook processing failed"})
	}
}
