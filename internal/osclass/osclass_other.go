// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package osclass

// Non-Windows builds never make the native calls osclass guards, but the
// package stays buildable so platform-independent logic (framing,
// supervisor state machine, restart ledger) can be unit tested off-target.
func classify(code uint32) Kind {
	if code == 0 {
		return KindNoInteractiveUser
	}
	return KindError
}

func classifyUserTokenQuery(code uint32) Kind {
	return classify(code)
}
