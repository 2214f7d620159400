// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// Package logging configures the process-wide zerolog logger from a profile
// plus optional environment overrides.
package logging

import (
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables overriding the profile defaults.
const (
	EnvLogLevel   = "VALPANEL_LOG_LEVEL"   // trace|debug|info|warn|error
	EnvLogNoColor = "VALPANEL_LOG_NOCOLOR" // any truthy value
)

// Profile selects a set of logging defaults.
type Profile int

// The available logging profiles.
const (
	ProfileRuntime Profile = iota // info level, human console output.
	ProfileTest                   // debug level, no timestamps.
)

var configureOnce sync.Once

// New returns a logger configured per the specified profile and any
// environment overrides, writing to the specified writer.
func New(profile Profile, w io.Writer) zerolog.Logger {
	configureOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	level := zerolog.InfoLevel
	switch profile {
	case ProfileTest:
		level = zerolog.DebugLevel
		console.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	if lvl, err := zerolog.ParseLevel(os.Getenv(EnvLogLevel)); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	if nocolor, _ := strconv.ParseBool(os.Getenv(EnvLogNoColor)); nocolor {
		console.NoColor = true
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}
