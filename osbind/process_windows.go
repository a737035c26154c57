// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import (
	"time"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/windows"
)

// ProcessInfo is a trimmed view of a process snapshot entry: enough to
// walk parent-of relationships for an ancestor check without exposing the
// go-ps type to callers outside this package.
type ProcessInfo struct {
	Pid  int
	Ppid int
}

// Snapshot enumerates all processes currently visible to this process.
func Snapshot() ([]ProcessInfo, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, &CallError{Call: "ps.Processes", Code: 0, Err: err}
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		out = append(out, ProcessInfo{Pid: p.Pid(), Ppid: p.PPid()})
	}
	return out, nil
}

// IsAlive reports whether pid currently names a live process. This is a
// no-op probe: it signals liveness only, never identity — a reused pid
// looks the same as the original owner.
func IsAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)
	event, err := windows.WaitForSingleObject(h, 0)
	if err != nil {
		return false
	}
	return event == uint32(windows.WAIT_TIMEOUT)
}

// KillBestEffort terminates pid, ignoring errors: used by the supervisor's
// stop handling, which only ever makes a best-effort attempt to bring the
// child down.
func KillBestEffort(pid int) {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return
	}
	defer windows.CloseHandle(h)
	_ = windows.TerminateProcess(h, 1)
}

// WaitTimeoutResult distinguishes the three outcomes of WaitForObject.
type WaitTimeoutResult int

const (
	// WaitSignaled means the handle was signaled (the process exited)
	// before the timeout elapsed.
	WaitSignaled WaitTimeoutResult = iota
	// WaitTimedOut means the timeout elapsed with the handle unsignaled.
	WaitTimedOut
)

// WaitForObject waits on an arbitrary object handle with a timeout. It is
// used by the termination waiter the launcher registers on a ChildHandle's
// process handle.
func WaitForObject(h windows.Handle, timeout time.Duration) (WaitTimeoutResult, error) {
	ms := uint32(timeout.Milliseconds())
	event, err := windows.WaitForSingleObject(h, ms)
	if err != nil {
		return 0, &CallError{Call: "WaitForSingleObject", Code: codeOf(err), Err: err}
	}
	switch event {
	case uint32(windows.WAIT_OBJECT_0):
		return WaitSignaled, nil
	case uint32(windows.WAIT_TIMEOUT):
		return WaitTimedOut, nil
	default:
		return 0, &CallError{Call: "WaitForSingleObject", Code: event, Err: nil}
	}
}
