package server

import (
	"net/http"
	"paydesk/internal/logger"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	if s.opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(s.log))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.healthHandler)

	r.POST("/signup", s.signupHandler)
	r.POST("/login", s.loginHandler)

	r.POST("/create-order", s.createOrderHandler)
	r.POST("/verify-payment", s.verifyPaymentHandler)
	r.GET("/payments", s.listPaymentsHandler)
	r.POST("/refund", s.refundHandler)
	r.GET("/refund/:refund_id", s.fetchRefundHandler)
	r.POST("/webhook", s.webhookHandler)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", signatureHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}
