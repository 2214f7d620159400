// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list all game servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		panel, closer, err := openPanel(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()
		servers, err := panel.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSLUG\tNAME\tWORLD\tBASE PORT\tDESIRED")
		for _, srv := range servers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				srv.ID, srv.Slug, srv.Name, srv.WorldName,
				srv.BasePort, srv.DesiredState)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
