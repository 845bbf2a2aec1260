package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aitarf0921/AI-Secretary/pkg/payment"
)

func newPaymentsCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect verified NOWPayments callbacks",
	}

	showCmd := &cobra.Command{
		Use:   "show <payment-id>",
		Short: "Show every recorded callback for a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			log, err := payment.NewEventLog(cfg.Payment.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			events, err := log.ByPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No callbacks recorded for payment.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RECEIVED\tSTATUS\tORDER ID")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ev.ReceivedAt.Format("2006-01-02T15:04:05"), ev.PaymentStatus, ev.OrderID)
			}
			return w.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "secretary.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.AddCommand(showCmd)
	return cmd
}
