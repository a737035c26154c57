// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package launcher

import (
	"context"
	"time"

	"github.com/gpii-project/gpii-service/osbind"
	"golang.org/x/sys/windows"
)

// doLaunch adapts this package's Options to osbind.CreateProcessAsUserLaunch,
// passing the endpoint's client handle through as std handles: since the
// child is a GUI-less helper with no console of its own, stdin/stdout/stderr
// are all pointed at the same inheritable handle so the helper can use any
// of the three to reach the pipe if it chooses to, while the canonical
// handshake is still the blob entry itself.
func doLaunch(t osbind.Token, command, currentDir string, env osbind.EnvironmentBlock, clientHandle uintptr) (osbind.LaunchResult, error) {
	h := windows.Handle(clientHandle)
	return osbind.CreateProcessAsUserLaunch(t, osbind.LaunchOptions{
		CommandLine: command,
		CurrentDir:  currentDir,
		Env:         env,
		Inherit: &osbind.InheritedHandles{
			Stdin:  h,
			Stdout: h,
			Stderr: h,
		},
	})
}

// waitForExit registers a termination waiter on the process handle: it
// polls osbind.WaitForObject in a loop so the wait can be cancelled via
// ctx instead of blocking the caller's goroutine forever, with the
// completion posted back as a closed channel rather than a direct
// blocking call.
func waitForExit(ctx context.Context, handle uintptr) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h := windows.Handle(handle)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			result, err := osbind.WaitForObject(h, time.Second)
			if err != nil {
				return
			}
			if result == osbind.WaitSignaled {
				return
			}
		}
	}()
	return done
}
