/*
Package store defines the durable record store of server definitions the
panel reconciles against, together with two implementations: a process-local
in-memory store and a SQLite-backed store.

The record store is the single source of truth for which servers should
exist and whether they should be running (“desired state”). What actually
runs is observed fresh from the container daemon and deliberately never
persisted here.

All implementations provide read-your-writes consistency within a single
process and update records atomically, so a reader can never observe a
half-updated server definition.
*/
package store
