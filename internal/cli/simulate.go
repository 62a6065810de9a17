package cli

import (
	"fmt"
	"io"
	"paydesk/internal/infrastructure/payment"
	"paydesk/internal/logger"
	"paydesk/internal/repo"
	"paydesk/internal/service"
	"paydesk/internal/signature"
	"paydesk/internal/worker"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const simulateSecret = "simulate_secret"

var (
	simulateOrders int
	simulateAmount string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run order, verify, refund and reconcile against the in-memory gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, err := decimal.NewFromString(simulateAmount)
		if err != nil {
			return fmt.Errorf("--amount: %w", err)
		}
		return runSimulation(cmd, simulateOrders, amount)
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateOrders, "orders", "n", 5, "number of orders to run")
	simulateCmd.Flags().StringVar(&simulateAmount, "amount", "500", "order amount in rupees")
}

func runSimulation(cmd *cobra.Command, orders int, amount decimal.Decimal) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	log := logger.New("warn", false)
	store := repo.NewMemory()
	gateway := payment.NewMockGateway()
	gateway.SetRefundStatus("pending")
	svc := service.NewPaymentService(store.Payments(), gateway, service.PaymentConfig{
		KeyID:     "rzp_test_simulate",
		KeySecret: simulateSecret,
	}, log)

	fmt.Fprintf(out, "--- STARTING SIMULATION (%d ORDERS) ---\n", orders)
	var refunds []string
	for i := 0; i < orders; i++ {
		order, err := svc.CreateOrder(ctx, decimal.NewNullDecimal(amount))
		if err != nil {
			fmt.Fprintf(out, "[%d] create failed: %v\n", i+1, err)
			continue
		}

		paymentID := fmt.Sprintf("pay_sim%04d", i+1)
		sig := signature.SignPayment(simulateSecret, order.ID, paymentID)
		if i%4 == 3 {
			sig = signature.SignPayment("tampered", order.ID, paymentID)
		}
		if err := svc.VerifyPayment(ctx, order.ID, paymentID, sig); err != nil {
			fmt.Fprintf(out, "[%d] %s verify FAILED: %v\n", i+1, order.ID, err)
			continue
		}
		fmt.Fprintf(out, "[%d] %s verified as %s\n", i+1, order.ID, paymentID)

		if i%2 == 0 {
			res, err := svc.Refund(ctx, paymentID, decimal.NullDecimal{}, "simulation")
			if err != nil {
				fmt.Fprintf(out, "    -> refund failed: %v\n", err)
				continue
			}
			refunds = append(refunds, res.ID)
			fmt.Fprintf(out, "    -> refund %s %s\n", res.ID, res.Status)
		}
	}

	// The gateway settles refunds out of band; the worker catches up.
	for _, id := range refunds {
		gateway.SettleRefund(id, "processed")
	}
	res, err := worker.NewReconciliationWorker(store.Payments(), gateway, time.Second, 0, log).RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "--- RECONCILED checked=%d processed=%d ---\n", res.Checked, res.Processed)

	return printPayments(out, svc, cmd)
}

func printPayments(out io.Writer, svc service.PaymentService, cmd *cobra.Command) error {
	views, err := svc.ListPayments(cmd.Context())
	if err != nil {
		return err
	}
	for _, v := range views {
		status := "-"
		if v.RefundStatus != nil {
			status = *v.RefundStatus
		}
		fmt.Fprintf(out, "%s  amount=%.2f net=%.2f refund=%s (%s)\n",
			v.PaymentID, v.Amount, v.NetAmount, status, v.RefundPercentage)
	}
	return nil
}
