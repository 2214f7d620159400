// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// Package config loads the panel configuration from an optional TOML file,
// applies VALPANEL_* environment overrides, and fills in the defaults of
// the original panel.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/siemens/valpanel/portpool"
)

// Environment variables overriding the file configuration.
const (
	EnvImage          = "VALPANEL_IMAGE"
	EnvPortRangeStart = "VALPANEL_PORT_RANGE_START"
	EnvPortRangeEnd   = "VALPANEL_PORT_RANGE_END"
	EnvPortBlockSize  = "VALPANEL_PORT_BLOCK_SIZE"
	EnvDatabase       = "VALPANEL_DATABASE"
	EnvDataRoot       = "VALPANEL_DATA_ROOT"
	EnvDockerHost     = "VALPANEL_DOCKER_HOST"
	EnvSweepInterval  = "VALPANEL_SWEEP_INTERVAL"
)

// Duration is a time.Duration that unmarshals from TOML strings such as
// "30s" or "2m".
type Duration time.Duration

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the complete panel configuration, immutable for the process
// lifetime once loaded.
type Config struct {
	Ports   Ports   `toml:"ports"`
	Docker  Docker  `toml:"docker"`
	Storage Storage `toml:"storage"`
	Sweep   Sweep   `toml:"sweep"`
}

// Ports configures the UDP port budget servers draw their blocks from.
type Ports struct {
	Start      int      `toml:"start"`
	End        int      `toml:"end"`
	BlockSize  int      `toml:"block_size"`
	Quarantine Duration `toml:"quarantine"` // delay before released blocks get reused.
}

// Docker configures the container daemon connection and workload image.
type Docker struct {
	Driver  string   `toml:"driver"`  // container driver plugin name.
	Host    string   `toml:"host"`    // daemon API endpoint; empty for the default.
	Image   string   `toml:"image"`   // game server image.
	Timeout Duration `toml:"timeout"` // bound on each daemon call.
}

// Storage configures where server records and world data live.
type Storage struct {
	Database string `toml:"database"`  // SQLite database file.
	DataRoot string `toml:"data_root"` // world directories root.
}

// Sweep configures the periodic reconciliation sweep.
type Sweep struct {
	Interval Duration `toml:"interval"`
	Workers  int      `toml:"workers"` // 0 means GOMAXPROCS.
}

// Default returns the panel's built-in configuration: the classic three
// UDP ports per Valheim server from a hundred-port pool.
func Default() Config {
	return Config{
		Ports: Ports{
			Start:     24560,
			End:       24660,
			BlockSize: 3,
		},
		Docker: Docker{
			Driver:  "docker",
			Image:   "lloesche/valheim-server",
			Timeout: Duration(30 * time.Second),
		},
		Storage: Storage{
			Database: "/var/lib/valpanel/valpanel.db",
			DataRoot: "/var/lib/valpanel/worlds",
		},
		Sweep: Sweep{
			Interval: Duration(30 * time.Second),
		},
	}
}

// Load returns the configuration from the TOML file at the specified path
// (an empty path skips the file), on top of the defaults and below any
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("cannot load configuration %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown configuration key %q in %s",
				undecoded[0].String(), path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.PortRange().Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PortRange returns the configured port range in the pool's terms.
func (c Config) PortRange() portpool.Range {
	return portpool.Range{
		Start:     c.Ports.Start,
		End:       c.Ports.End,
		BlockSize: c.Ports.BlockSize,
	}
}

func (c *Config) applyEnv() error {
	for _, override := range []struct {
		env string
		set func(string) error
	}{
		{EnvImage, setString(&c.Docker.Image)},
		{EnvDockerHost, setString(&c.Docker.Host)},
		{EnvDatabase, setString(&c.Storage.Database)},
		{EnvDataRoot, setString(&c.Storage.DataRoot)},
		{EnvPortRangeStart, setInt(&c.Ports.Start)},
		{EnvPortRangeEnd, setInt(&c.Ports.End)},
		{EnvPortBlockSize, setInt(&c.Ports.BlockSize)},
		{EnvSweepInterval, setDuration(&c.Sweep.Interval)},
	} {
		value, ok := os.LookupEnv(override.env)
		if !ok {
			continue
		}
		if err := override.set(value); err != nil {
			return fmt.Errorf("invalid %s: %w", override.env, err)
		}
	}
	return nil
}

func setString(target *string) func(string) error {
	return func(value string) error {
		*target = value
		return nil
	}
}

func setInt(target *int) func(string) error {
	return func(value string) error {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*target = parsed
		return nil
	}
}

func setDuration(target *Duration) func(string) error {
	return func(value string) error {
		return target.UnmarshalText([]byte(value))
	}
}
