/*
Package driver defines the narrow boundary between the panel and the
container daemon actually hosting the game server workloads: create, start,
stop, remove, inspect, and fetch logs. The panel treats whatever sits behind
this interface as a fallible remote service whose state can diverge from the
record store at any time; observations are therefore always fetched fresh
and never cached across operations.

Concrete drivers register themselves as plugins, so the panel binary selects
a driver by its configured name. The sub-package “all” pulls in all drivers
supported out-of-the-box; currently that is the Docker driver in the “docker”
sub-package.
*/
package driver
