// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/siemens/valpanel/driver"
	"github.com/siemens/valpanel/portpool"
	"github.com/siemens/valpanel/store"
	"github.com/siemens/valpanel/worldfs"
)

// Log tail line limits, matching what the panel's API has always promised.
const (
	DefaultLogTail = 500
	MaxLogTail     = 5000
)

// Panel is the lifecycle reconciler: it drives game server containers
// through create, start, stop, restart, and delete, always converging the
// observed daemon state onto the desired state recorded in the record
// store. It can be safely used from multiple goroutines; operations on the
// same server are serialized, operations on different servers run in
// parallel.
type Panel struct {
	records store.Store
	drv     driver.Driver
	worlds  *worldfs.Manager
	pool    *portpool.Pool
	image   string

	log           zerolog.Logger
	drivertimeout time.Duration       // bound on every single daemon call.
	numworkers    int                 // max parallel per-server reconciliations.
	workersem     *semaphore.Weighted // bounded pool, across all sweeps.
	sweepevery    time.Duration       // period of the background sweep.
	quarantine    time.Duration       // port block release quarantine.

	serial *serializer // per-server-id operation serialization.
}

// New returns a Panel reconciling the specified record store against the
// container daemon behind the specified driver, with world directories
// managed below the specified manager's data root.
//
// New restores the port pool from the block assignments already recorded:
// the in-memory pool is not durable, so every process start rescans the
// records before the first allocation. Recorded blocks no longer fitting
// the configured range are grandfathered (kept, but their ports are never
// handed out); see [portpool.New].
func New(
	ctx context.Context,
	records store.Store, drv driver.Driver, worlds *worldfs.Manager,
	ports portpool.Range, image string, opts ...NewOption,
) (*Panel, error) {
	if image == "" {
		return nil, errors.New("game server image must be configured")
	}
	p := &Panel{
		records:       records,
		drv:           drv,
		worlds:        worlds,
		image:         image,
		log:           zerolog.Nop(),
		drivertimeout: 30 * time.Second,
		sweepevery:    30 * time.Second,
		serial:        newSerializer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.numworkers <= 0 {
		p.numworkers = runtime.GOMAXPROCS(0)
	}
	p.workersem = semaphore.NewWeighted(int64(p.numworkers))

	servers, err := records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot restore port pool from record store: %w", err)
	}
	used := make([]int, 0, len(servers))
	for _, srv := range servers {
		if srv.DesiredState == store.DesiredAbsent {
			continue
		}
		used = append(used, srv.BasePort)
		if srv.BasePort < ports.Start ||
			srv.BasePort+ports.BlockSize-1 > ports.End ||
			(srv.BasePort-ports.Start)%ports.BlockSize != 0 {
			p.log.Warn().Str("server", srv.ID).Str("slug", srv.Slug).
				Int("baseport", srv.BasePort).
				Msg("recorded port block outside the configured range; grandfathering it")
		}
	}
	pool, err := portpool.New(ports, used, portpool.WithQuarantine(p.quarantine))
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// PortsFree returns the number of port blocks still allocatable, which is
// the number of servers that can still be created.
func (p *Panel) PortsFree() int { return p.pool.Free() }

// Status combines a server's durable definition with its freshly observed
// daemon-side condition.
type Status struct {
	Server   store.Server
	Observed driver.Observation
}

// Create provisions a new game server: it draws the lowest free port block,
// creates the world directories, has the daemon create the container, and
// finally records the server with desired state “stopped”. An empty world
// name defaults to the server's slug. When any step fails, everything
// already done is rolled back, so a failed create leaves neither orphaned
// ports, nor directories, nor containers behind.
func (p *Panel) Create(ctx context.Context, name, worldName, password string) (store.Server, error) {
	slug := store.Slugify(name)
	if worldName == "" {
		worldName = slug
	}
	// Serialized per slug, not per id: two concurrent creates racing over
	// the same name must not both pass the duplicate check, as the loser's
	// rollback would tear down the winner's container and world
	// directories. Slug keys are prefixed so they can never collide with
	// the id keys used by the per-server lifecycle serialization.
	defer p.serial.lock("slug:" + slug)()
	switch _, err := p.records.GetBySlug(ctx, slug); {
	case err == nil:
		return store.Server{}, fmt.Errorf("%w: slug %q", ErrSlugInUse, slug)
	case !errors.Is(err, store.ErrNotFound):
		return store.Server{}, err
	}

	// Ports always get allocated before any daemon mutation: running out of
	// capacity must never leave a half-created container.
	block, err := p.pool.Allocate()
	if err != nil {
		return store.Server{}, fmt.Errorf("%w: %w", ErrCapacityExhausted, err)
	}
	paths, err := p.worlds.Ensure(slug)
	if err != nil {
		p.pool.Release(block)
		return store.Server{}, err
	}
	srv := store.Server{
		ID:           uuid.NewString(),
		Name:         name,
		Slug:         slug,
		WorldName:    worldName,
		Password:     password,
		BasePort:     block.Base,
		DesiredState: store.DesiredStopped,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	ref, err := p.createContainer(ctx, srv, paths)
	if err != nil {
		p.compensate(srv.Slug, block, "")
		return store.Server{}, err
	}
	srv.ContainerRef = ref
	if err := p.records.Create(ctx, srv); err != nil {
		p.compensate(srv.Slug, block, ref)
		if errors.Is(err, store.ErrDuplicate) {
			return store.Server{}, fmt.Errorf("%w: slug %q", ErrSlugInUse, slug)
		}
		return store.Server{}, err
	}
	p.log.Info().Str("server", srv.ID).Str("slug", slug).
		Int("baseport", block.Base).Msg("created server")
	return srv, nil
}

// compensate best-effort rolls a failed create back: container, world
// directories, port block. Compensation failures are logged, never hidden;
// that is the one place where operator attention may be needed.
func (p *Panel) compensate(slug string, block portpool.Block, ref string) {
	if ref != "" {
		ctx, cancel := context.WithTimeout(context.Background(), p.drivertimeout)
		defer cancel()
		if err := p.drv.Remove(ctx, ref); err != nil {
			p.log.Error().Err(err).Str("slug", slug).
				Msg("rollback failed to remove container; manual cleanup needed")
		}
	}
	if err := p.worlds.Purge(slug); err != nil {
		p.log.Error().Err(err).Str("slug", slug).
			Msg("rollback failed to purge world directories; manual cleanup needed")
	}
	p.pool.Release(block)
}

// Start transitions a server to running. A container that vanished
// out-of-band is not an error, just a recoverable divergence: it is
// recreated from the stored definition first.
func (p *Panel) Start(ctx context.Context, id string) error {
	defer p.serial.lock(id)()
	srv, err := p.get(ctx, id)
	if err != nil {
		return err
	}
	obs, err := p.ensureContainer(ctx, &srv)
	if err != nil {
		return err
	}
	if obs.State != driver.StateRunning {
		if err := p.driverDo(ctx, p.drv.Start, srv.ContainerRef); err != nil {
			return err
		}
	}
	return p.setDesired(ctx, srv, store.DesiredRunning)
}

// Stop transitions a server to stopped. A vanished container is recreated
// (in the created, not running, state) so that the server remains intact.
func (p *Panel) Stop(ctx context.Context, id string) error {
	defer p.serial.lock(id)()
	srv, err := p.get(ctx, id)
	if err != nil {
		return err
	}
	obs, err := p.ensureContainer(ctx, &srv)
	if err != nil {
		return err
	}
	if obs.State == driver.StateRunning {
		if err := p.driverDo(ctx, p.drv.Stop, srv.ContainerRef); err != nil {
			return err
		}
	}
	return p.setDesired(ctx, srv, store.DesiredStopped)
}

// Restart stops and then starts a running server; a server not observed
// running (including one whose container vanished) simply gets started.
func (p *Panel) Restart(ctx context.Context, id string) error {
	defer p.serial.lock(id)()
	srv, err := p.get(ctx, id)
	if err != nil {
		return err
	}
	obs, err := p.ensureContainer(ctx, &srv)
	if err != nil {
		return err
	}
	if obs.State == driver.StateRunning {
		if err := p.driverDo(ctx, p.drv.Stop, srv.ContainerRef); err != nil {
			return err
		}
	}
	if err := p.driverDo(ctx, p.drv.Start, srv.ContainerRef); err != nil {
		return err
	}
	return p.setDesired(ctx, srv, store.DesiredRunning)
}

// Delete tears a server down for good: stop and remove its container, purge
// its world directories, release its port block, and only then delete the
// record. The record goes last so that a crash mid-delete leaves a
// retryable record rather than an orphaned container or port with no record
// pointing at it.
func (p *Panel) Delete(ctx context.Context, id string) error {
	defer p.serial.lock(id)()
	srv, err := p.get(ctx, id)
	if err != nil {
		return err
	}
	if srv.ContainerRef != "" {
		obs, err := p.inspect(ctx, srv.ContainerRef)
		if err != nil {
			return err
		}
		if obs.State == driver.StateRunning {
			if err := p.driverDo(ctx, p.drv.Stop, srv.ContainerRef); err != nil {
				return err
			}
		}
		// A container already observed gone needs no removal; a delete
		// retry after an out-of-band removal must not stumble over it.
		if obs.State != driver.StateNotFound {
			if err := p.driverDo(ctx, p.drv.Remove, srv.ContainerRef); err != nil {
				return err
			}
		}
	}
	if err := p.worlds.Purge(srv.Slug); err != nil {
		return err
	}
	p.pool.Release(portpool.Block{Base: srv.BasePort, Size: p.pool.Range().BlockSize})
	if err := p.records.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		p.log.Error().Err(err).Str("server", id).
			Msg("container and port block already reclaimed, but record deletion failed; retry the delete")
		return err
	}
	p.log.Info().Str("server", id).Str("slug", srv.Slug).Msg("deleted server")
	return nil
}

// Status returns a server's definition together with its freshly observed
// condition.
func (p *Panel) Status(ctx context.Context, id string) (Status, error) {
	defer p.serial.lock(id)()
	srv, err := p.get(ctx, id)
	if err != nil {
		return Status{}, err
	}
	obs := driver.Observation{State: driver.StateNotFound}
	if srv.ContainerRef != "" {
		if obs, err = p.inspect(ctx, srv.ContainerRef); err != nil {
			return Status{}, err
		}
	}
	return Status{Server: srv, Observed: obs}, nil
}

// List returns the definitions of all servers, oldest first.
func (p *Panel) List(ctx context.Context) ([]store.Server, error) {
	return p.records.List(ctx)
}

// Logs returns up to tail trailing log lines of a server's container. A
// tail of zero or less defaults to [DefaultLogTail] lines; at most
// [MaxLogTail] lines are returned. A server without any container yields no
// lines.
func (p *Panel) Logs(ctx context.Context, id string, tail int) ([]string, error) {
	if tail <= 0 {
		tail = DefaultLogTail
	}
	if tail > MaxLogTail {
		tail = MaxLogTail
	}
	srv, err := p.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if srv.ContainerRef == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.drivertimeout)
	defer cancel()
	return p.drv.Logs(ctx, srv.ContainerRef, tail)
}

// get fetches a server record, translating the store's not-found into the
// panel's taxonomy.
func (p *Panel) get(ctx context.Context, id string) (store.Server, error) {
	srv, err := p.records.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Server{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return srv, err
}

// ensureContainer makes sure the server has a daemon-side container,
// recreating it from the stored definition when it vanished out-of-band,
// and returns the container's (fresh) observation. The server's container
// reference is updated in place and persisted when recreation happened, so
// the record never keeps pointing at a gone container over a later crash.
func (p *Panel) ensureContainer(ctx context.Context, srv *store.Server) (driver.Observation, error) {
	if srv.ContainerRef != "" {
		obs, err := p.inspect(ctx, srv.ContainerRef)
		if err != nil {
			return driver.Observation{}, err
		}
		if obs.State != driver.StateNotFound {
			return obs, nil
		}
		p.log.Warn().Str("server", srv.ID).Str("slug", srv.Slug).
			Msg("container vanished out-of-band; recreating it")
	}
	paths, err := p.worlds.Ensure(srv.Slug)
	if err != nil {
		return driver.Observation{}, err
	}
	ref, err := p.createContainer(ctx, *srv, paths)
	if err != nil {
		return driver.Observation{}, err
	}
	srv.ContainerRef = ref
	srv.UpdatedAt = time.Now().UTC()
	if err := p.records.Update(ctx, *srv); err != nil {
		return driver.Observation{}, err
	}
	return driver.Observation{State: driver.StateCreated}, nil
}

// createContainer has the daemon create a container for the server
// definition, reusing the server's recorded port block.
func (p *Panel) createContainer(ctx context.Context, srv store.Server, paths worldfs.Paths) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.drivertimeout)
	defer cancel()
	return p.drv.Create(ctx, driver.Spec{
		Name:      srv.Name,
		Slug:      srv.Slug,
		WorldName: srv.WorldName,
		Password:  srv.Password,
		Image:     p.image,
		Ports:     portpool.Block{Base: srv.BasePort, Size: p.pool.Range().BlockSize},
		World:     paths,
	})
}

// inspect observes a container's current condition, time-boxed.
func (p *Panel) inspect(ctx context.Context, ref string) (driver.Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.drivertimeout)
	defer cancel()
	return p.drv.Inspect(ctx, ref)
}

// driverDo runs a single daemon call, time-boxed. A timed-out call is
// reported as the daemon being unavailable; whether the daemon-side effect
// happened is unknown and left for the next inspection to find out.
func (p *Panel) driverDo(ctx context.Context, op func(context.Context, string) error, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, p.drivertimeout)
	defer cancel()
	return op(ctx, ref)
}

// setDesired records the outcome of a confirmed transition.
func (p *Panel) setDesired(ctx context.Context, srv store.Server, state store.DesiredState) error {
	srv.DesiredState = state
	srv.UpdatedAt = time.Now().UTC()
	return p.records.Update(ctx, srv)
}
