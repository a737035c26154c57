// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import (
	"github.com/gpii-project/gpii-service/internal/osclass"
	"golang.org/x/sys/windows"
)

// noSessionID is the sentinel WTSGetActiveConsoleSessionId returns when no
// session is attached to the physical console.
const noSessionID = 0xFFFFFFFF

// ActiveConsoleSessionID returns the session id currently attached to the
// console, or ErrNoInteractiveUser if none is attached.
func ActiveConsoleSessionID() (uint32, error) {
	id := windows.WTSGetActiveConsoleSessionId()
	if id == noSessionID {
		return 0, ErrNoInteractiveUser
	}
	return id, nil
}

// CurrentProcessToken opens the current process's own primary token with
// the rights create-process-as-user requires (ASSIGN_PRIMARY | DUPLICATE
// | QUERY). Used when the host is not running as a service and should
// simply spawn the child as itself.
func CurrentProcessToken() (Token, error) {
	const rights = windows.TOKEN_ASSIGN_PRIMARY | windows.TOKEN_DUPLICATE | windows.TOKEN_QUERY
	var h windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), rights, &h)
	if err != nil {
		return Token{}, &CallError{Call: "OpenProcessToken", Code: codeOf(err), Err: err}
	}
	return wrapToken(h), nil
}

// QueryUserTokenForSession fetches the primary token for the interactive
// user of the given session id, already duplicated so it is suitable for
// CreateProcessAsUser. Soft failures (no user logged on at that session)
// are reported as ErrNoInteractiveUser.
func QueryUserTokenForSession(sessionID uint32) (Token, error) {
	var impersonation windows.Token
	err := windows.WTSQueryUserToken(sessionID, &impersonation)
	if err != nil {
		code := codeOf(err)
		if osclass.ClassifyUserTokenQuery(code) == osclass.KindNoInteractiveUser {
			return Token{}, ErrNoInteractiveUser
		}
		return Token{}, &CallError{Call: "WTSQueryUserToken", Code: code, Err: err}
	}
	defer impersonation.Close()

	var primary windows.Token
	err = windows.DuplicateTokenEx(
		impersonation,
		windows.TOKEN_ASSIGN_PRIMARY|windows.TOKEN_DUPLICATE|windows.TOKEN_QUERY,
		nil,
		windows.SecurityImpersonation,
		windows.TokenPrimary,
		&primary,
	)
	if err != nil {
		code := codeOf(err)
		return Token{}, &CallError{Call: "DuplicateTokenEx", Code: code, Err: err}
	}
	return wrapToken(primary), nil
}

func wrapToken(h windows.Token) Token {
	return Token{
		valid:   true,
		sysrepr: uintptr(h),
		closer: func() error {
			return h.Close()
		},
	}
}

// windowsHandle extracts the underlying windows.Token from a Token for use
// by other files in this package (environment_windows.go,
// launch_windows.go). It does not transfer ownership.
func windowsHandle(t Token) windows.Token {
	return windows.Token(t.sysrepr)
}
