// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package driver

import (
	"context"
	"errors"

	"github.com/siemens/valpanel/portpool"
	"github.com/siemens/valpanel/worldfs"
)

// Error categories all driver operations report their failures as. Callers
// pick them apart with [errors.Is].
var (
	// ErrUnavailable: the daemon was unreachable or didn't answer in time.
	// Transient; the daemon-side effect of the operation is unknown and a
	// later Inspect must be used to find out.
	ErrUnavailable = errors.New("container daemon unavailable")
	// ErrRejected: the daemon refused the request as invalid, such as a
	// port already bound outside the panel's tracking. Permanent until the
	// configuration changes; retrying verbatim is pointless.
	ErrRejected = errors.New("container daemon rejected request")
)

// State is the daemon's report of a container's actual condition at one
// point in time.
type State int

// The observable container states.
const (
	StateUnknown  State = iota // daemon reported something we cannot map.
	StateNotFound              // no such container (anymore).
	StateCreated               // created, never started or freshly recreated.
	StateRunning               //
	StateExited                // terminated; see ExitCode.
)

var stateNames = map[State]string{
	StateUnknown:  "unknown",
	StateNotFound: "not-found",
	StateCreated:  "created",
	StateRunning:  "running",
	StateExited:   "exited",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}

// Observation is a container's observed condition, read fresh from the
// daemon. It is ephemeral and must never be cached beyond the single
// reconciliation step it was fetched for.
type Observation struct {
	State    State
	ExitCode int // only meaningful for StateExited.
}

// Spec tells a driver everything needed to create a game server container.
type Spec struct {
	Name      string         // display name, passed to the game server.
	Slug      string         // unique; determines the container name.
	WorldName string         // game world to load.
	Password  string         // join password.
	Image     string         // container image reference.
	Ports     portpool.Block // UDP port block bound 1:1 onto the host.
	World     worldfs.Paths  // host directories mounted into the container.
}

// Driver is the container daemon operation set the panel depends on. Every
// call is bounded by its context; implementations map their daemon's errors
// onto [ErrUnavailable] and [ErrRejected].
type Driver interface {
	// Create creates (but doesn't start) a container per the spec and
	// returns its daemon-side reference. An existing same-name container is
	// adopted when running, or removed and recreated when stale.
	Create(ctx context.Context, spec Spec) (ref string, err error)
	// Start starts the referenced container.
	Start(ctx context.Context, ref string) error
	// Stop stops the referenced container; stopping a not-running container
	// is not an error.
	Stop(ctx context.Context, ref string) error
	// Remove forcefully removes the referenced container; removing an
	// already-absent container is not an error.
	Remove(ctx context.Context, ref string) error
	// Inspect reports the referenced container's current condition. A
	// vanished container is reported as StateNotFound, not as an error.
	Inspect(ctx context.Context, ref string) (Observation, error)
	// Logs returns up to tail trailing log lines of the referenced
	// container.
	Logs(ctx context.Context, ref string, tail int) ([]string, error)
}
