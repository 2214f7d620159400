// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import "errors"

// The error taxonomy reported by panel operations; match with [errors.Is].
// Driver-side conditions surface as [driver.ErrUnavailable] (transient, a
// later sweep corrects drift) and [driver.ErrRejected] (a configuration
// problem) without re-wrapping.
var (
	// ErrCapacityExhausted: no free port block left, so no further server
	// can be created until one is deleted. Nothing has been mutated.
	ErrCapacityExhausted = errors.New("server capacity exhausted")
	// ErrNotFound: the operation referenced a server id that has no record.
	ErrNotFound = errors.New("no such server")
	// ErrSlugInUse: the new server's name maps to a slug already taken.
	ErrSlugInUse = errors.New("server name already taken")
)
