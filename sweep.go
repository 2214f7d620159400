// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import (
	"context"
	"errors"
	"time"

	"github.com/siemens/valpanel/driver"
	"github.com/siemens/valpanel/store"
)

// ReconcileAll sweeps over all server records and converges each server
// whose observed state drifted away from its desired state: servers that
// should be running but aren't get (re)created and started, servers that
// should be stopped but run get stopped. Divergence is the normal case to
// handle here, not an exception, so the sweep is best-effort: individual
// failures are logged and the remaining servers are still visited.
//
// Servers are reconciled in parallel, bounded by the panel's worker limit
// across all concurrent sweeps.
func (p *Panel) ReconcileAll(ctx context.Context) {
	servers, err := p.records.List(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("sweep cannot list server records")
		return
	}
	for _, srv := range servers {
		if err := p.workersem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(id string) {
			defer p.workersem.Release(1)
			if err := p.reconcile(ctx, id); err != nil {
				p.log.Warn().Err(err).Str("server", id).
					Msg("sweep could not converge server; leaving it for the next sweep")
			}
		}(srv.ID)
	}
	// Wait for this sweep's stragglers without starving other semaphore
	// users forever on a cancelled context.
	if err := p.workersem.Acquire(ctx, int64(p.numworkers)); err != nil {
		return
	}
	p.workersem.Release(int64(p.numworkers))
}

// reconcile converges a single server, under its per-server lock and
// against a freshly read record and a freshly observed container state.
func (p *Panel) reconcile(ctx context.Context, id string) error {
	defer p.serial.lock(id)()
	srv, err := p.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // deleted while the sweep was underway.
		}
		return err
	}
	obs := driver.Observation{State: driver.StateNotFound}
	if srv.ContainerRef != "" {
		if obs, err = p.inspect(ctx, srv.ContainerRef); err != nil {
			return err
		}
	}
	switch srv.DesiredState {
	case store.DesiredRunning:
		if obs.State == driver.StateRunning {
			return nil
		}
		p.log.Info().Str("server", srv.ID).Str("slug", srv.Slug).
			Stringer("observed", obs.State).
			Msg("server should be running; converging")
		if obs.State == driver.StateNotFound {
			if _, err := p.ensureContainer(ctx, &srv); err != nil {
				return err
			}
		}
		return p.driverDo(ctx, p.drv.Start, srv.ContainerRef)
	case store.DesiredStopped:
		if obs.State != driver.StateRunning {
			return nil
		}
		p.log.Info().Str("server", srv.ID).Str("slug", srv.Slug).
			Msg("server should be stopped; converging")
		return p.driverDo(ctx, p.drv.Stop, srv.ContainerRef)
	}
	return nil
}

// Watch periodically sweeps all servers (see [Panel.ReconcileAll]) until
// the context is done. An immediate first sweep picks up drift accumulated
// while the panel wasn't running.
func (p *Panel) Watch(ctx context.Context) {
	p.log.Info().Dur("every", p.sweepevery).Msg("starting reconciliation sweeps")
	p.ReconcileAll(ctx)
	ticker := time.NewTicker(p.sweepevery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("reconciliation sweeps stopped")
			return
		case <-ticker.C:
			p.ReconcileAll(ctx)
		}
	}
}
