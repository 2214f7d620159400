/*
Package valpanel provides the orchestration engine of the ValPanel game
server panel: it provisions, supervises, and reclaims isolated game server
processes running as containers on a single host, under a strict
non-overlapping UDP port budget.

# Quick Start

	records, _ := store.OpenSQLite("/var/lib/valpanel/valpanel.db")
	drv, _ := driver.New("docker", "")
	worlds, _ := worldfs.NewManager("/var/lib/valpanel/worlds")
	panel, _ := valpanel.New(ctx, records, drv, worlds,
	    portpool.Range{Start: 24560, End: 24660, BlockSize: 3},
	    "lloesche/valheim-server")
	srv, _ := panel.Create(ctx, "Midgard Mondays", "midgard", "sekrit")
	_ = panel.Start(ctx, srv.ID)

# Desired versus Observed

The record store declares what *should* exist and run; the container daemon
is an untrusted, eventually-observed external system that can diverge from
the records at any time: daemons restart, containers get removed behind the
panel's back, game servers crash. The panel therefore reads the observed
container state fresh before every transition decision and treats
divergence as the normal case: a vanished container is recreated from its
stored definition (reusing its recorded port block), a crashed
should-be-running server is restarted by the periodic sweep, a stray
running should-be-stopped server is stopped.

# Ports

Every server owns one contiguous block of UDP ports drawn from a finite
configured range, allocated before any daemon mutation and released only on
confirmed deletion. No two servers ever share a port; this invariant is
maintained across concurrent operations and process restarts, as the port
pool is deterministically rebuilt from the record store at every start.

# Concurrency

Operations on distinct servers proceed fully in parallel; operations on the
same server are serialized. Every daemon call is time-boxed, so a hung
daemon call stalls only the server it targets. A timed-out call is treated
as “daemon unavailable”: the panel assumes neither that the daemon-side
effect happened nor that it didn't, and leaves it to the next observation
to find out.
*/
package valpanel
