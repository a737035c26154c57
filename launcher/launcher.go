// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package launcher is the cross-session launcher: it turns a command line
// and a set of options into a running child process under the
// interactive user's session, handing the child its IPC endpoint via
// handle inheritance.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gpii-project/gpii-service/ipc"
	"github.com/gpii-project/gpii-service/osbind"
	"github.com/gpii-project/gpii-service/session"
)

// ErrNoInteractiveUser is re-exported from osbind so callers of this
// package need not import osbind just to check for it.
var ErrNoInteractiveUser = osbind.ErrNoInteractiveUser

// Options bundles the inputs to Spawn.
type Options struct {
	// AlwaysRun, if true, falls back to spawning under the current
	// process's own token when no interactive user is available. Callers
	// must only set this when the host process is not itself a service:
	// otherwise the child would run as LocalSystem.
	AlwaysRun bool
	// Env holds extra NAME=VALUE pairs merged into the user's environment.
	Env []string
	// CurrentDir is the optional working directory for the child.
	CurrentDir string
	// Endpoint is the IPC endpoint whose client handle is transferred to
	// the child. Required; the launcher always gives the child exactly
	// one inheritable endpoint.
	Endpoint *ipc.Endpoint
}

// ChildHandle is what Spawn hands back: the running child's identity, its
// side of the IPC endpoint, and when it was started.
type ChildHandle struct {
	Pid           uint32
	ProcessHandle uintptr
	Endpoint      *ipc.Endpoint
	StartedAt     time.Time

	token osbind.Token
}

// Wait returns a channel that closes once the child process terminates or
// ctx is done, whichever comes first. This is the authoritative signal
// the supervisor uses to classify a child's exit; pipe EOF on the
// endpoint is a secondary signal that normally arrives around the same
// time but is not, by itself, proof the process is gone.
func (c *ChildHandle) Wait(ctx context.Context) <-chan struct{} {
	return waitForExit(ctx, c.ProcessHandle)
}

// Close releases every resource this ChildHandle still owns: the acquired
// token and the server side of the endpoint. It does not touch the
// client-side handle, which the child now owns, nor does it terminate the
// child — callers that want to stop the child do so separately (a
// best-effort kill by pid).
func (c *ChildHandle) Close() error {
	var errs []error
	if c.Endpoint != nil {
		if err := c.Endpoint.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.token.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Spawn acquires a token, builds the environment and command line, wires
// in the supplied endpoint's client handle as an inheritable handle, and
// launches. On every exit path — success or failure — the acquired token
// and the caller-supplied inheritance handle are closed exactly once; on
// success the endpoint's client handle has already been transferred to
// the child and is closed here as the parent's copy, so that both ends
// observe the peer's exit via EOF.
func Spawn(mgr *session.Manager, command string, opts Options) (*ChildHandle, error) {
	if opts.Endpoint == nil {
		return nil, fmt.Errorf("launcher: Options.Endpoint is required")
	}

	token, err := acquireToken(mgr, opts.AlwaysRun)
	if err != nil {
		return nil, err
	}

	env, err := session.EnvironmentFor(token, opts.Env)
	if err != nil {
		token.Close()
		return nil, err
	}

	clientHandle := opts.Endpoint.ClientHandleRaw()
	result, err := doLaunch(token, command, opts.CurrentDir, env, clientHandle)

	// The client handle has been transferred into the child's address
	// space (or the launch failed and it never will be); either way the
	// parent's copy must be closed now so that later a clean child exit
	// produces an EOF the dispatcher can observe.
	if closeErr := opts.Endpoint.CloseClient(); closeErr != nil && err == nil {
		err = fmt.Errorf("launcher: close client handle: %w", closeErr)
	}

	if err != nil {
		token.Close()
		return nil, err
	}

	return &ChildHandle{
		Pid:           result.Pid,
		ProcessHandle: uintptr(result.ProcessHandle),
		Endpoint:      opts.Endpoint,
		StartedAt:     time.Now(),
		token:         token,
	}, nil
}

func acquireToken(mgr *session.Manager, alwaysRun bool) (osbind.Token, error) {
	token, err := mgr.CurrentUserToken()
	if err == nil {
		return token, nil
	}
	if err != osbind.ErrNoInteractiveUser {
		return osbind.Token{}, err
	}
	if !alwaysRun {
		return osbind.Token{}, osbind.ErrNoInteractiveUser
	}
	return osbind.CurrentProcessToken()
}
