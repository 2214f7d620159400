/*
Package worldfs manages the per-server on-host directory trees holding game
server configuration, world saves, and backups. Directories are derived
solely from a server's unique slug, so they are stable across renames and
collision-free across servers.

Creation is lazy and idempotent; purging is eager on server deletion and
also idempotent, as a crashed deletion must be retryable. Slugs are joined
to the data root with filepath-securejoin, so even a hostile slug can never
escape the root.
*/
package worldfs
