// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// Package cli implements the valpanelctl commands for managing dedicated
// game servers on the local container daemon.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/siemens/valpanel"
	"github.com/siemens/valpanel/config"
	"github.com/siemens/valpanel/driver"
	_ "github.com/siemens/valpanel/driver/all"
	"github.com/siemens/valpanel/internal/logging"
	"github.com/siemens/valpanel/store"
	"github.com/siemens/valpanel/worldfs"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "valpanelctl",
	Short: "manages dedicated Valheim game servers on the local container daemon",
	Long: `valpanelctl manages dedicated Valheim game servers, each running in
its own container with its own world directories and its own dedicated
block of UDP ports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the valpanelctl command addressed by the process arguments,
// returning only after the command has completely finished.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"panel configuration file (TOML)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// openPanel assembles a live panel from the configuration: record store,
// container driver, and world directory manager. The returned closer
// releases the record store.
func openPanel(ctx context.Context) (*valpanel.Panel, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(logging.ProfileRuntime, os.Stderr)
	records, err := store.OpenSQLite(cfg.Storage.Database)
	if err != nil {
		return nil, nil, err
	}
	drv, err := driver.New(cfg.Docker.Driver, cfg.Docker.Host)
	if err != nil {
		records.Close()
		return nil, nil, err
	}
	worlds, err := worldfs.NewManager(cfg.Storage.DataRoot)
	if err != nil {
		records.Close()
		return nil, nil, err
	}
	panel, err := valpanel.New(ctx, records, drv, worlds,
		cfg.PortRange(), cfg.Docker.Image,
		valpanel.WithLogger(log),
		valpanel.WithDriverTimeout(time.Duration(cfg.Docker.Timeout)),
		valpanel.WithWorkers(cfg.Sweep.Workers),
		valpanel.WithSweepInterval(time.Duration(cfg.Sweep.Interval)),
		valpanel.WithPortQuarantine(time.Duration(cfg.Ports.Quarantine)))
	if err != nil {
		records.Close()
		return nil, nil, err
	}
	return panel, func() { records.Close() }, nil
}

// resolve maps a server ID or slug as given on the command line onto the
// server's record.
func resolve(ctx context.Context, panel *valpanel.Panel, idorslug string) (store.Server, error) {
	servers, err := panel.List(ctx)
	if err != nil {
		return store.Server{}, err
	}
	for _, srv := range servers {
		if srv.ID == idorslug || srv.Slug == idorslug {
			return srv, nil
		}
	}
	return store.Server{}, fmt.Errorf("no server with ID or slug %q", idorslug)
}
