package cli

import (
	"context"
	"fmt"
	"paydesk/internal/config"
	"paydesk/internal/database"
	"paydesk/internal/infrastructure/payment"
	"paydesk/internal/logger"
	"paydesk/internal/repo"
	"paydesk/internal/server"
	"paydesk/internal/service"
	"paydesk/internal/worker"

	"github.com/sirupsen/logrus"
)

// app holds the wired collaborators shared by the commands.
type app struct {
	cfg         *config.Config
	log         *logrus.Logger
	db          database.Service
	credentials repo.CredentialRepo
	payments    repo.PaymentRepo
	gateway     payment.PaymentGateway
	health      server.HealthChecker
}

type memoryHealth struct{}

func (memoryHealth) Health(context.Context) map[string]string {
	return map[string]string{"status": "up", "store": config.StoreMemory}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a := &app{cfg: cfg, log: logger.New(cfg.LogLevel, cfg.IsProduction())}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.health = db
		a.credentials = repo.NewCredentialRepo(db.DB())
		a.payments = repo.NewPaymentRepo(db.DB())
	default:
		mem := repo.NewMemory()
		a.health = memoryHealth{}
		a.credentials = mem.Credentials()
		a.payments = mem.Payments()
	}

	switch cfg.GatewayMode {
	case config.GatewayMock:
		a.gateway = payment.NewMockGateway()
	default:
		a.gateway = payment.NewRazorpayGateway(cfg.KeyID, cfg.KeySecret, cfg.GatewayTimeout, cfg.GatewayRetries)
	}

	a.log.WithFields(logrus.Fields{
		"store":   cfg.StoreDriver,
		"gateway": cfg.GatewayMode,
		"env":     cfg.Env,
	}).Info("configuration loaded")
	return a, nil
}

func (a *app) authService() service.AuthService {
	return service.NewAuthService(a.credentials, a.log)
}

func (a *app) paymentService() service.PaymentService {
	return service.NewPaymentService(a.payments, a.gateway, service.PaymentConfig{
		KeyID:         a.cfg.KeyID,
		KeySecret:     a.cfg.KeySecret,
		WebhookSecret: a.cfg.WebhookSecret,
		RefundTimeout: 2 * a.cfg.GatewayTimeout,
	}, a.log)
}

func (a *app) reconciler() *worker.ReconciliationWorker {
	return worker.NewReconciliationWorker(a.payments, a.gateway, a.cfg.ReconcileInterval, a.cfg.ReconcileAfter, a.log)
}

func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("closing database")
	}
}
