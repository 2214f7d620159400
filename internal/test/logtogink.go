// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// Package test provides shared test support, such as routing panel log
// output into Ginkgo.
package test

import (
	"github.com/rs/zerolog"

	. "github.com/onsi/ginkgo/v2"

	"github.com/siemens/valpanel/internal/logging"
)

// Logger returns a debug-level logger writing to the current GinkgoWriter,
// so a failing spec shows the panel's log output while a succeeding one
// stays quiet.
func Logger() zerolog.Logger {
	return logging.New(logging.ProfileTest, GinkgoWriter)
}
