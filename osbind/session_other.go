// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package osbind

// ActiveConsoleSessionID, CurrentProcessToken, and QueryUserTokenForSession
// have no meaning off Windows: there is no console-session or primary-token
// model to bind to. These stubs exist so session.Manager and the rest of
// the platform-independent call graph (supervisor's state machine, the
// restart ledger, IPC framing) stay buildable and unit-testable on every
// platform — they are never expected to be reached in a real deployment,
// only during development off Windows.
func ActiveConsoleSessionID() (uint32, error) {
	return 0, ErrUnsupported
}

func CurrentProcessToken() (Token, error) {
	return Token{}, ErrUnsupported
}

func QueryUserTokenForSession(sessionID uint32) (Token, error) {
	return Token{}, ErrUnsupported
}
