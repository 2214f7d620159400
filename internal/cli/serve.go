// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the panel's reconciliation loop until interrupted",
	Long: `serve keeps the actual container states converged onto the recorded
desired server states: it periodically restarts crashed servers, recreates
vanished containers, and stops servers that should not be running. It
returns only upon SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(),
			syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		panel, closer, err := openPanel(ctx)
		if err != nil {
			return err
		}
		defer closer()
		panel.Watch(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
