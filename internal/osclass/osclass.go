// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package osclass classifies raw OS error codes returned by the binding
// layer into a small set of outcomes the rest of the service can switch on,
// the way bassosimone/nop's errclass package classifies platform socket
// errors into a portable label instead of leaving callers to string-match
// error messages.
package osclass

// Kind is the classification of a failed native call.
type Kind int

const (
	// KindError is an ordinary failure; the caller should treat it as fatal
	// to the current operation.
	KindError Kind = iota
	// KindNoInteractiveUser means the call failed for a reason that is
	// expected when nobody is logged on at the console (lock screen, no
	// user yet signed in) rather than a genuine error.
	KindNoInteractiveUser
	// KindAccessDenied means the call was refused for permission reasons
	// unrelated to console occupancy.
	KindAccessDenied
)

// Classify maps a raw platform error code to a Kind for a generic call.
func Classify(code uint32) Kind {
	return classify(code)
}

// ClassifyUserTokenQuery maps the raw code from a query-active-session /
// query-user-token call to a Kind. ERROR_NO_TOKEN,
// ERROR_SUCCESS (returned despite the call having failed),
// ERROR_ACCESS_DENIED, and ERROR_PRIVILEGE_NOT_HELD are all expected at
// the lock screen or before first logon and are folded into
// KindNoInteractiveUser rather than surfaced as errors; this is a distinct,
// narrower mapping than Classify and only applies to this one call site.
func ClassifyUserTokenQuery(code uint32) Kind {
	return classifyUserTokenQuery(code)
}
