// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siemens/valpanel"
)

var logsCmd = &cobra.Command{
	Use:   "logs SERVER",
	Short: "show the most recent game server log lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")
		panel, closer, err := openPanel(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()
		srv, err := resolve(cmd.Context(), panel, args[0])
		if err != nil {
			return err
		}
		lines, err := panel.Logs(cmd.Context(), srv.ID, tail)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntP("tail", "n", valpanel.DefaultLogTail,
		fmt.Sprintf("number of trailing log lines, capped at %d", valpanel.MaxLogTail))
	rootCmd.AddCommand(logsCmd)
}
