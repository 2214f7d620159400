/*
Package portpool manages a finite range of host (UDP) ports, handing out
fixed-size contiguous port blocks to game server instances and taking them
back when such an instance gets removed for good.

A [Pool] always hands out the lowest free block first, so allocations stay
dense at the bottom of the configured range and firewall rules can be written
against a predictable, compact span of ports.

The pool itself is not durable: it is reconstructed at process start from the
block assignments recorded in the server record store. Assignments that fall
outside the currently configured range, or that do not align with the
configured block size (after an operator shrank or shifted the range), are
“grandfathered”: the pool will never offer any overlapping block, and
releasing such a foreign block is simply a no-op.

Optionally, released blocks can be quarantined for a configurable duration
before they become allocatable again, covering daemons or NAT layers that
tear down port bindings only lazily.
*/
package portpool
