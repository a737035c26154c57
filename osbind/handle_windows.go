// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import "golang.org/x/sys/windows"

// WrapHandle returns an owning Handle around a raw platform handle.
func WrapHandle(h windows.Handle) Handle {
	return Handle{closer: func() error { return windows.CloseHandle(h) }}
}

// MarkInheritable sets or clears the inherit flag on a raw handle at the OS
// level, so a child spawned with bInheritHandles can see it.
func MarkInheritable(h windows.Handle, inheritable bool) error {
	var mask uint32 = windows.HANDLE_FLAG_INHERIT
	var flags uint32
	if inheritable {
		flags = windows.HANDLE_FLAG_INHERIT
	}
	if err := windows.SetHandleInformation(h, mask, flags); err != nil {
		return &CallError{Call: "SetHandleInformation", Code: codeOf(err), Err: err}
	}
	return nil
}
