// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import (
	"errors"

	"golang.org/x/sys/windows"
)

// codeOf extracts the raw Win32 error code from err, falling back to 0 if
// err is not a syscall-flavored error (that should not normally happen for
// the calls this package wraps, but a 0 code still renders sensibly in
// CallError rather than panicking).
func codeOf(err error) uint32 {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return 0
}
