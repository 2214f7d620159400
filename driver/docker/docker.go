// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/thediveo/go-plugger/v3"

	"github.com/siemens/valpanel/driver"
)

// Register this driver for the generic driver selection mechanism.
func init() {
	plugger.Group[driver.Plugin]().Register(
		&plugin{}, plugger.WithPlugin("docker"))
}

type plugin struct{}

func (p *plugin) Name() string { return "docker" }

func (p *plugin) New(endpoint string) (driver.Driver, error) {
	return New(endpoint)
}

// containerPrefix namespaces the containers managed by this panel within the
// daemon's flat container name space.
const containerPrefix = "valpanel_"

// ContainerName returns the daemon-side container name for a server slug.
func ContainerName(slug string) string { return containerPrefix + slug }

// Driver drives game server containers through a Docker daemon.
type Driver struct {
	moby *client.Client
}

var _ driver.Driver = (*Driver)(nil)

// New connects to the Docker daemon at the specified API endpoint (such as
// “unix:///run/docker.sock”); an empty endpoint falls back to the usual
// DOCKER_HOST-or-default rules.
func New(endpoint string) (*Driver, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if endpoint == "" {
		opts = append(opts, client.FromEnv)
	} else {
		opts = append(opts, client.WithHost(endpoint))
	}
	moby, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot set up Docker API client: %w", err)
	}
	return &Driver{moby: moby}, nil
}

// Close releases the underlying API client's resources.
func (d *Driver) Close() error { return d.moby.Close() }

// Create creates a game server container per the spec, without starting it.
// A leftover same-name container that is still running is adopted as-is; a
// stale one (created/exited/dead) is removed first and then recreated.
func (d *Driver) Create(ctx context.Context, spec driver.Spec) (string, error) {
	name := ContainerName(spec.Slug)
	existing, err := d.moby.ContainerInspect(ctx, name)
	switch {
	case err == nil && stale(existing.State.Status):
		if err := d.Remove(ctx, existing.ID); err != nil {
			return "", err
		}
	case err == nil:
		// Running (or at least not provably stale): adopt it instead of
		// racing the daemon over the name.
		return existing.ID, nil
	case !cerrdefs.IsNotFound(err):
		return "", classify(err)
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, port := range spec.Ports.Ports() {
		p := nat.Port(strconv.Itoa(port) + "/udp")
		exposed[p] = struct{}{}
		bindings[p] = []nat.PortBinding{{HostPort: strconv.Itoa(port)}}
	}
	tz := os.Getenv("TZ")
	if tz == "" {
		tz = "Europe/Stockholm"
	}
	created, err := d.moby.ContainerCreate(ctx,
		&container.Config{
			Image: spec.Image,
			Env: []string{
				"SERVER_NAME=" + spec.Name,
				"WORLD_NAME=" + spec.WorldName,
				"SERVER_PASS=" + spec.Password,
				"SERVER_PORT=" + strconv.Itoa(spec.Ports.Base),
				"TZ=" + tz,
				"PUBLIC=1",
				"CROSSPLAY=true",
				"SERVER_ARGS=-crossplay",
			},
			ExposedPorts: exposed,
		},
		&container.HostConfig{
			PortBindings: bindings,
			Binds: []string{
				spec.World.Config + ":/config",
				spec.World.Save + ":/opt/valheim",
				spec.World.Backup + ":/backups",
			},
		},
		nil, nil, name)
	if err != nil {
		return "", classify(err)
	}
	return created.ID, nil
}

// stale reports whether a leftover container in this state must be removed
// and recreated rather than adopted.
func stale(status string) bool {
	switch status {
	case "created", "exited", "dead":
		return true
	}
	return false
}

// Start starts the referenced container.
func (d *Driver) Start(ctx context.Context, ref string) error {
	return classify(d.moby.ContainerStart(ctx, ref, container.StartOptions{}))
}

// Stop stops the referenced container, observing the daemon's default grace
// period. Stopping an already stopped container succeeds.
func (d *Driver) Stop(ctx context.Context, ref string) error {
	return classify(d.moby.ContainerStop(ctx, ref, container.StopOptions{}))
}

// Remove forcefully removes the referenced container; an already-absent
// container is fine, as removal must be retryable.
func (d *Driver) Remove(ctx context.Context, ref string) error {
	err := d.moby.ContainerRemove(ctx, ref, container.RemoveOptions{Force: true})
	if cerrdefs.IsNotFound(err) {
		return nil
	}
	return classify(err)
}

// Inspect reports the referenced container's current condition; a vanished
// container is the StateNotFound observation, not an error.
func (d *Driver) Inspect(ctx context.Context, ref string) (driver.Observation, error) {
	details, err := d.moby.ContainerInspect(ctx, ref)
	if cerrdefs.IsNotFound(err) {
		return driver.Observation{State: driver.StateNotFound}, nil
	}
	if err != nil {
		return driver.Observation{}, classify(err)
	}
	switch details.State.Status {
	case "running", "restarting":
		return driver.Observation{State: driver.StateRunning}, nil
	case "created":
		return driver.Observation{State: driver.StateCreated}, nil
	case "exited", "dead":
		return driver.Observation{
			State:    driver.StateExited,
			ExitCode: details.State.ExitCode,
		}, nil
	}
	return driver.Observation{State: driver.StateUnknown}, nil
}

// Logs returns up to tail trailing log lines of the referenced container,
// stdout and stderr interleaved.
func (d *Driver) Logs(ctx context.Context, ref string, tail int) ([]string, error) {
	details, err := d.moby.ContainerInspect(ctx, ref)
	if err != nil {
		return nil, classify(err)
	}
	rc, err := d.moby.ContainerLogs(ctx, ref, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return nil, classify(err)
	}
	defer rc.Close()
	var buff bytes.Buffer
	if details.Config != nil && details.Config.Tty {
		_, err = io.Copy(&buff, rc)
	} else {
		// Non-tty log streams are multiplexed; demux them.
		_, err = stdcopy.StdCopy(&buff, &buff, rc)
	}
	if err != nil {
		return nil, classify(err)
	}
	lines := strings.Split(strings.TrimRight(buff.String(), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

// classify maps daemon and transport errors onto the driver error taxonomy:
// daemon verdicts about the request itself are permanent rejections,
// everything else (timeouts included) counts as the daemon being
// unavailable, with the daemon-side outcome unknown.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", driver.ErrUnavailable, err)
	case cerrdefs.IsNotFound(err),
		cerrdefs.IsInvalidArgument(err),
		cerrdefs.IsConflict(err),
		cerrdefs.IsAlreadyExists(err),
		cerrdefs.IsPermissionDenied(err):
		return fmt.Errorf("%w: %w", driver.ErrRejected, err)
	}
	return fmt.Errorf("%w: %w", driver.ErrUnavailable, err)
}
