// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// Package fake provides a scripted in-memory container driver for testing
// the panel's reconciliation behavior, including out-of-band divergence
// such as manually removed containers and crashed game servers.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/siemens/valpanel/driver"
)

// Container is a fake daemon-side container.
type Container struct {
	Ref      string
	Spec     driver.Spec
	State    driver.State
	ExitCode int
	Logs     []string
}

// Driver implements [driver.Driver] on an in-memory “daemon”. Error
// injection points allow simulating an unavailable or rejecting daemon;
// Lose and Crash simulate out-of-band divergence.
type Driver struct {
	FailCreate error // returned by Create when set; likewise below.
	FailStart  error
	FailStop   error
	FailRemove error

	mu         sync.Mutex
	containers map[string]*Container // by ref.
	seq        int
	creates    int // total successful container creations.
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver returns a fake driver without any containers.
func NewDriver() *Driver {
	return &Driver{containers: map[string]*Container{}}
}

// Create mimics the real drivers' behavior for leftover same-name
// containers: a running one is adopted, a stale one silently replaced.
func (d *Driver) Create(_ context.Context, spec driver.Spec) (string, error) {
	if d.FailCreate != nil {
		return "", d.FailCreate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for ref, cntr := range d.containers {
		if cntr.Spec.Slug != spec.Slug {
			continue
		}
		if cntr.State == driver.StateRunning {
			return ref, nil
		}
		delete(d.containers, ref)
		break
	}
	d.seq++
	d.creates++
	ref := fmt.Sprintf("fakectr-%d", d.seq)
	d.containers[ref] = &Container{Ref: ref, Spec: spec, State: driver.StateCreated}
	return ref, nil
}

func (d *Driver) Start(_ context.Context, ref string) error {
	if d.FailStart != nil {
		return d.FailStart
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cntr, ok := d.containers[ref]
	if !ok {
		return fmt.Errorf("%w: no such container %q", driver.ErrRejected, ref)
	}
	cntr.State = driver.StateRunning
	return nil
}

func (d *Driver) Stop(_ context.Context, ref string) error {
	if d.FailStop != nil {
		return d.FailStop
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cntr, ok := d.containers[ref]
	if !ok {
		return fmt.Errorf("%w: no such container %q", driver.ErrRejected, ref)
	}
	if cntr.State == driver.StateRunning {
		cntr.State = driver.StateExited
		cntr.ExitCode = 0
	}
	return nil
}

func (d *Driver) Remove(_ context.Context, ref string) error {
	if d.FailRemove != nil {
		return d.FailRemove
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.containers, ref) // removing an absent container is fine.
	return nil
}

func (d *Driver) Inspect(_ context.Context, ref string) (driver.Observation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cntr, ok := d.containers[ref]
	if !ok {
		return driver.Observation{State: driver.StateNotFound}, nil
	}
	return driver.Observation{State: cntr.State, ExitCode: cntr.ExitCode}, nil
}

func (d *Driver) Logs(_ context.Context, ref string, tail int) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cntr, ok := d.containers[ref]
	if !ok {
		return nil, fmt.Errorf("%w: no such container %q", driver.ErrRejected, ref)
	}
	if tail < len(cntr.Logs) {
		return append([]string(nil), cntr.Logs[len(cntr.Logs)-tail:]...), nil
	}
	return append([]string(nil), cntr.Logs...), nil
}

// Lose removes a container behind the panel's back, like an admin running
// “docker rm -f” would.
func (d *Driver) Lose(ref string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.containers, ref)
}

// Crash marks a running container as exited with the specified exit code,
// like a crashed game server process would.
func (d *Driver) Crash(ref string, exitcode int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cntr, ok := d.containers[ref]; ok {
		cntr.State = driver.StateExited
		cntr.ExitCode = exitcode
	}
}

// SetLogs scripts a container's log lines.
func (d *Driver) SetLogs(ref string, lines ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cntr, ok := d.containers[ref]; ok {
		cntr.Logs = lines
	}
}

// Get returns a snapshot of the container with the specified ref, if any.
func (d *Driver) Get(ref string) (Container, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cntr, ok := d.containers[ref]
	if !ok {
		return Container{}, false
	}
	return *cntr, true
}

// BySlug returns a snapshot of the container created for the specified
// slug, if any.
func (d *Driver) BySlug(slug string) (Container, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cntr := range d.containers {
		if cntr.Spec.Slug == slug {
			return *cntr, true
		}
	}
	return Container{}, false
}

// Count returns the number of containers currently existing daemon-side.
func (d *Driver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.containers)
}

// Creates returns the total number of containers ever created.
func (d *Driver) Creates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.creates
}
