// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package policy

// defaultHandler is the catch-all for platforms with no Group Policy
// concept: every key reads as unset.
type defaultHandler struct{}

func init() {
	handler.Store(Handler(defaultHandler{}))
}

func (defaultHandler) ReadString(_ Key) (string, error) {
	return "", ErrNoSuchKey
}

func (defaultHandler) ReadUInt64(_ Key) (uint64, error) {
	return 0, ErrNoSuchKey
}
