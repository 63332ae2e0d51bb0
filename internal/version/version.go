/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of cronoapp.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/cronoapp/internal/version.Version=X.Y.Z
var Version = "0.1.0"

// Commit is the git revision the binary was built from.
var Commit = "dev"

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("cronoapp %s (%s, %s)", Version, Commit, runtime.Version())
}
