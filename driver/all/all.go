// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package all

import (
	_ "github.com/siemens/valpanel/driver/docker" // drive Docker
)
