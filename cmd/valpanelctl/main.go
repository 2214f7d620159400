// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// valpanelctl manages dedicated Valheim game servers on the local
// container daemon.
package main

import (
	"fmt"
	"os"

	"github.com/siemens/valpanel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
