// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package launcher

import (
	"context"

	"github.com/gpii-project/gpii-service/osbind"
)

// doLaunch has no non-Windows implementation: create-process-as-user and
// the session/token model it depends on are Windows-specific. This stub
// keeps the package buildable off Windows so the state machine, restart
// ledger, and IPC framing can be unit tested on any development platform;
// Spawn's osbind.ErrUnsupported bubbles straight up to the caller.
func doLaunch(t osbind.Token, command, currentDir string, env osbind.EnvironmentBlock, clientHandle uintptr) (osbind.LaunchResult, error) {
	return osbind.LaunchResult{}, osbind.ErrUnsupported
}

// waitForExit has no observable process handle to wait on off Windows; the
// returned channel closes only once ctx is done, never because a process
// exited.
func waitForExit(ctx context.Context, handle uintptr) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	return done
}
