package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"paydesk/internal/server"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the refund reconciliation worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db != nil {
		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
	}

	srv := server.NewServer(server.Options{
		Port:           a.cfg.Port,
		Production:     a.cfg.IsProduction(),
		AllowedOrigins: a.cfg.AllowedOrigins,
		Auth:           a.authService(),
		Payments:       a.paymentService(),
		Health:         a.health,
		Log:            a.log,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if a.cfg.ReconcileInterval > 0 {
		g.Go(func() error {
			return a.reconciler().Run(ctx)
		})
	}
	return g.Wait()
}
