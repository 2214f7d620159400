// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"
)

// Memory is a process-local, non-durable [Store]. It serves small
// installations that can rebuild their server definitions, and the test
// suites.
type Memory struct {
	mu      sync.RWMutex
	servers map[string]Server // by id.
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory record store.
func NewMemory() *Memory {
	return &Memory{servers: map[string]Server{}}
}

// Get returns the record with the specified id, or [ErrNotFound].
func (m *Memory) Get(_ context.Context, id string) (Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	srv, ok := m.servers[id]
	if !ok {
		return Server{}, ErrNotFound
	}
	return srv, nil
}

// GetBySlug returns the record with the specified slug, or [ErrNotFound].
func (m *Memory) GetBySlug(_ context.Context, slug string) (Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, srv := range m.servers {
		if srv.Slug == slug {
			return srv, nil
		}
	}
	return Server{}, ErrNotFound
}

// List returns all records, oldest first.
func (m *Memory) List(_ context.Context) ([]Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	servers := make([]Server, 0, len(m.servers))
	for _, srv := range m.servers {
		servers = append(servers, srv)
	}
	slices.SortFunc(servers, func(a, b Server) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return servers, nil
}

// Create persists a new record, or reports [ErrDuplicate] when the id or
// slug is already taken.
func (m *Memory) Create(_ context.Context, srv Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[srv.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.servers {
		if existing.Slug == srv.Slug {
			return ErrDuplicate
		}
	}
	m.servers[srv.ID] = srv
	return nil
}

// Update atomically replaces the record with the same id, or reports
// [ErrNotFound].
func (m *Memory) Update(_ context.Context, srv Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[srv.ID]; !ok {
		return ErrNotFound
	}
	m.servers[srv.ID] = srv
	return nil
}

// Delete removes the record with the specified id, or reports [ErrNotFound].
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[id]; !ok {
		return ErrNotFound
	}
	delete(m.servers, id)
	return nil
}
