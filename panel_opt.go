// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import (
	"time"

	"github.com/rs/zerolog"
)

// NewOption represents options to New when creating a new panel.
type NewOption func(*Panel)

// WithLogger sets the structured logger the panel reports its doings
// through. Without this option the panel stays silent.
func WithLogger(log zerolog.Logger) NewOption {
	return func(p *Panel) {
		p.log = log
	}
}

// WithDriverTimeout bounds every single container daemon call. A timed-out
// call counts as the daemon being unavailable, never as success or definite
// failure. Defaults to 30s.
func WithDriverTimeout(d time.Duration) NewOption {
	return func(p *Panel) {
		if d > 0 {
			p.drivertimeout = d
		}
	}
}

// WithWorkers sets the maximum number of servers reconciled in parallel
// during sweeps. A maximum of zero or less is taken as GOMAXPROCS instead.
// The maximum applies across all concurrent [Panel.ReconcileAll] calls, not
// to individual calls separately.
func WithWorkers(num int) NewOption {
	return func(p *Panel) {
		p.numworkers = num
	}
}

// WithSweepInterval sets the period of the background reconciliation sweep
// run by [Panel.Watch]. Defaults to 30s.
func WithSweepInterval(d time.Duration) NewOption {
	return func(p *Panel) {
		if d > 0 {
			p.sweepevery = d
		}
	}
}

// WithPortQuarantine delays handing a released port block to a different
// server by the specified duration, for installations where the daemon or
// an additional NAT layer tears down port bindings only lazily. Defaults to
// no quarantine.
func WithPortQuarantine(d time.Duration) NewOption {
	return func(p *Panel) {
		if d > 0 {
			p.quarantine = d
		}
	}
}
