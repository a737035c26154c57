// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package pidfile

import "github.com/gpii-project/gpii-service/osbind"

// IsLive reports whether pid names a process that is still running. It
// does not and cannot confirm the live process is actually the expected
// application — a pid can be reused by an unrelated process once the
// original has exited.
func IsLive(pid int) bool {
	return osbind.IsAlive(pid)
}
