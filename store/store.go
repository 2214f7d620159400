// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// DesiredState declares what a server's running condition should be,
// independent of what the container daemon currently reports.
type DesiredState string

// The desired states a server record can declare.
const (
	DesiredAbsent  DesiredState = "absent"
	DesiredStopped DesiredState = "stopped"
	DesiredRunning DesiredState = "running"
)

// Server is the durable definition of one game server instance.
type Server struct {
	ID           string       // unique, assigned at creation.
	Name         string       // display name, mutable.
	Slug         string       // unique, filesystem-safe, derived from Name at creation.
	WorldName    string       // game world to load.
	Password     string       // join password handed to the game server.
	BasePort     int          // first port of the server's port block.
	DesiredState DesiredState //
	ContainerRef string       // daemon-side container id; empty until first created.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Errors reported by record store implementations.
var (
	// ErrNotFound: no record with the specified id (or slug) exists.
	ErrNotFound = errors.New("no such server record")
	// ErrDuplicate: a record with the same id or slug already exists.
	ErrDuplicate = errors.New("server record already exists")
)

// Store is the narrow repository interface the panel reads and writes server
// definitions through. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the record with the specified id, or ErrNotFound.
	Get(ctx context.Context, id string) (Server, error)
	// GetBySlug returns the record with the specified slug, or ErrNotFound.
	GetBySlug(ctx context.Context, slug string) (Server, error)
	// List returns all records, ordered by creation time.
	List(ctx context.Context) ([]Server, error)
	// Create persists a new record, or reports ErrDuplicate.
	Create(ctx context.Context, srv Server) error
	// Update atomically replaces the record with the same id, or reports
	// ErrNotFound.
	Update(ctx context.Context, srv Server) error
	// Delete removes the record with the specified id, or reports
	// ErrNotFound. Deletion is terminal.
	Delete(ctx context.Context, id string) error
}

var unsafeRunes = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a filesystem-safe slug from a server display name: any run
// of characters other than lowercase letters and digits becomes a single
// dash. Names slugifying to nothing at all fall back to "server".
func Slugify(name string) string {
	slug := strings.Trim(unsafeRunes.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "server"
	}
	return slug
}
