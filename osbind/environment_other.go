// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package osbind

// EnvironmentFor has no non-Windows implementation; see session_other.go.
func EnvironmentFor(t Token) (EnvironmentBlock, error) {
	return EnvironmentBlock{}, ErrUnsupported
}
