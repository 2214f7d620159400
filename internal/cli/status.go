// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siemens/valpanel/driver"
)

var statusCmd = &cobra.Command{
	Use:   "status SERVER",
	Short: "show a game server's desired and observed state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		panel, closer, err := openPanel(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()
		srv, err := resolve(cmd.Context(), panel, args[0])
		if err != nil {
			return err
		}
		status, err := panel.Status(cmd.Context(), srv.ID)
		if err != nil {
			return err
		}
		observed := status.Observed.State.String()
		if status.Observed.State == driver.StateExited {
			observed = fmt.Sprintf("%s (exit code %d)",
				observed, status.Observed.ExitCode)
		}
		fmt.Printf("server:    %s (ID %s)\n", status.Server.Name, status.Server.ID)
		fmt.Printf("slug:      %s\n", status.Server.Slug)
		fmt.Printf("world:     %s\n", status.Server.WorldName)
		fmt.Printf("base port: %d/udp\n", status.Server.BasePort)
		fmt.Printf("desired:   %s\n", status.Server.DesiredState)
		fmt.Printf("observed:  %s\n", observed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
