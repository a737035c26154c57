// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package policy is the Group-Policy-aware configuration layer, adapted
// from the dispatch pattern in util/syspolicy: an OS-specific Handler is
// installed at init time and the rest of the service reads through the
// small typed surface here instead of touching the registry directly.
package policy

import (
	"errors"
	"sync/atomic"
)

var handler atomic.Value

// Handler reads policy-configured overrides from OS-specific storage.
type Handler interface {
	// ReadString reads a string-valued policy setting.
	ReadString(key Key) (string, error)
	// ReadUInt64 reads an integer-valued policy setting.
	ReadUInt64(key Key) (uint64, error)
}

// ErrNoSuchKey is returned when a key has no policy value set; callers
// fall back to their CLI-flag or compiled-in default in that case.
var ErrNoSuchKey = errors.New("policy: no such key")

func currentHandler() Handler {
	h, _ := handler.Load().(Handler)
	return h
}

// Key names one of this service's policy-overridable settings: admins may
// pin the helper path/arguments or the crash-loop threshold via Group
// Policy rather than editing the service's install flags.
type Key string

const (
	// HelperPath overrides opts.command's executable path.
	HelperPath Key = "HelperPath"
	// HelperArgs overrides the comma-separated arguments appended to the
	// helper command line.
	HelperArgs Key = "HelperArgs"
	// MaxFailedStarts overrides supervisor.MaxFailedStarts.
	MaxFailedStarts Key = "MaxFailedStarts"
)

// ReadString reads a string policy value, or returns ok=false if no
// handler is installed or no value is set.
func ReadString(key Key) (string, bool) {
	h := currentHandler()
	if h == nil {
		return "", false
	}
	v, err := h.ReadString(key)
	if err != nil {
		return "", false
	}
	return v, true
}

// ReadUInt64 reads an integer policy value, or ok=false under the same
// conditions as ReadString.
func ReadUInt64(key Key) (uint64, bool) {
	h := currentHandler()
	if h == nil {
		return 0, false
	}
	v, err := h.ReadUInt64(key)
	if err != nil {
		return 0, false
	}
	return v, true
}

// StringOr applies the policy precedence rule: a policy value, when
// present, overrides the caller-supplied default (typically a CLI flag or
// compiled constant) — administrators always win over the per-install
// configuration.
func StringOr(key Key, fallback string) string {
	if v, ok := ReadString(key); ok {
		return v
	}
	return fallback
}

// UInt64Or is UInt64's counterpart to StringOr.
func UInt64Or(key Key, fallback uint64) uint64 {
	if v, ok := ReadUInt64(key); ok {
		return v
	}
	return fallback
}
