// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osclass

// Raw Win32 error codes, duplicated here (rather than importing
// golang.org/x/sys/windows just for constants) so this package stays
// buildable on every platform — see osclass_other.go.
const (
	errSuccess          = 0
	errAccessDenied     = 5
	errNoToken          = 1008
	errPrivilegeNotHeld = 1314
)

func classify(code uint32) Kind {
	switch code {
	case errAccessDenied:
		return KindAccessDenied
	default:
		return KindError
	}
}

func classifyUserTokenQuery(code uint32) Kind {
	switch code {
	case errNoToken, errSuccess, errAccessDenied, errPrivilegeNotHeld:
		return KindNoInteractiveUser
	default:
		return KindError
	}
}
