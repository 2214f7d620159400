// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package driver

import (
	"fmt"
	"strings"

	"github.com/thediveo/go-plugger/v3"
)

// Plugin allows container daemon drivers to hook into the generic driver
// selection mechanism: each driver registers under a short name and knows
// how to connect itself to its daemon's API endpoint.
type Plugin interface {
	// Name returns the driver name used in the panel configuration.
	Name() string
	// New connects to the daemon behind the specified API endpoint and
	// returns a ready-to-use driver. An empty endpoint selects the daemon's
	// conventional default endpoint.
	New(endpoint string) (Driver, error)
}

// New returns a driver of the named kind, connected to the specified daemon
// API endpoint. The kinds available depend on the driver plugins compiled
// in; importing the “all” sub-package gets you all of them.
func New(name, endpoint string) (Driver, error) {
	for _, plugin := range plugger.Group[Plugin]().PluginsSymbols() {
		if plugin.S.Name() != name {
			continue
		}
		return plugin.S.New(endpoint)
	}
	return nil, fmt.Errorf("unknown container driver %q (available: %s)",
		name, strings.Join(plugger.Group[Plugin]().Plugins(), ", "))
}
