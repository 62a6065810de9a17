package server

import (
	"context"
	"fmt"
	"net/http"
	"paydesk/internal/service"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthChecker reports store health; database.Service satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Options struct {
	Port           int
	Production     bool
	AllowedOrigins []string
	Auth           service.AuthService
	Payments       service.PaymentService
	Health         HealthChecker
	Log            logrus.FieldLogger
}

type Server struct {
	port     int
	opts     Options
	auth     service.AuthService
	payments service.PaymentService
	health   HealthChecker
	log      logrus.FieldLogger
}

func NewServer(opts Options) *http.Server {
	s := &Server{
		port:     opts.Port,
		opts:     opts,
		auth:     opts.Auth,
		payments: opts.Payments,
		health:   opts.Health,
		log:      opts.Log,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
