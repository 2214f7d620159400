// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "provision a new game server",
	Long: `create provisions a new game server: it reserves a dedicated UDP port
block, creates the world directories, and creates (but does not start) the
server's container. The server's slug, derived from its name, must not be
in use by any other server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		worldname, _ := cmd.Flags().GetString("world")
		password, _ := cmd.Flags().GetString("password")
		panel, closer, err := openPanel(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()
		srv, err := panel.Create(cmd.Context(), args[0], worldname, password)
		if err != nil {
			return err
		}
		fmt.Printf("created server %q (ID %s, slug %s) with UDP port block at %d\n",
			srv.Name, srv.ID, srv.Slug, srv.BasePort)
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("world", "w", "", "world name (defaults to the server's slug)")
	createCmd.Flags().StringP("password", "p", "", "server password")
	rootCmd.AddCommand(createCmd)
}
