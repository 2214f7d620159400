// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siemens/valpanel"
)

// lifecycleCmd returns a command running the specified panel operation on
// the server identified by its ID or slug.
func lifecycleCmd(use, short string, op func(context.Context, *valpanel.Panel, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SERVER",
		Short: short,
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
			if err := op(cmd.Context(), panel, srv.ID); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", srv.Slug, use)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		lifecycleCmd("start", "start a game server",
			func(ctx context.Context, p *valpanel.Panel, id string) error {
				return p.Start(ctx, id)
			}),
		lifecycleCmd("stop", "stop a game server, keeping its world data",
			func(ctx context.Context, p *valpanel.Panel, id string) error {
				return p.Stop(ctx, id)
			}),
		lifecycleCmd("restart", "restart a game server",
			func(ctx context.Context, p *valpanel.Panel, id string) error {
				return p.Restart(ctx, id)
			}),
		lifecycleCmd("delete", "delete a game server, including its world data",
			func(ctx context.Context, p *valpanel.Panel, id string) error {
				return p.Delete(ctx, id)
			}),
	)
}
