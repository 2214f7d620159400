// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import "sync"

// serializer hands out per-key mutual exclusion: all lifecycle operations
// targeting the same server id take its lock for their whole duration, so
// concurrent operations on one server cannot interleave, while operations on
// different servers proceed fully in parallel. Locks are created on first
// use and dropped again once nobody holds or waits for them.
type serializer struct {
	mu    sync.Mutex
	locks map[string]*serialLock
}

type serialLock struct {
	mu   sync.Mutex
	refs int // holders plus waiters; maintained under serializer.mu.
}

func newSerializer() *serializer {
	return &serializer{locks: map[string]*serialLock{}}
}

// lock blocks until the caller exclusively holds the specified key, then
// returns the corresponding unlock function.
func (s *serializer) lock(key string) (unlock func()) {
	s.mu.Lock()
	l := s.locks[key]
	if l == nil {
		l = &serialLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
