// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package osbind is the OS binding layer (component A): typed wrappers
// around the native session, token, environment, process, and
// handle-inheritance calls the rest of the service is built on. Every
// wrapper here returns a Go error; callers above this package never see a
// raw Win32 error code directly, only the classification in
// internal/osclass when one is warranted.
//
// All handles obtained through this package are owned: closing one calls
// the platform close-handle exactly once, and every function that can fail
// partway through acquiring several handles closes whatever it already
// acquired before returning an error.
package osbind

import (
	"errors"
	"fmt"
)

// ErrNoInteractiveUser is returned by session-resolution calls when there
// is no console user to act on (lock screen, no logon yet, or running in a
// session with no attached console). It is a sentinel, not a wrapped
// syscall error, so callers can errors.Is against it directly.
var ErrNoInteractiveUser = errors.New("osbind: no interactive user")

// ErrUnsupported is returned by the session, token and environment
// functions of this package on platforms other than Windows, where
// session/token/process-as-user concepts do not exist.
var ErrUnsupported = errors.New("osbind: unsupported on this platform")

// CallError wraps a failed native call with the numeric code the platform
// reported, so callers and log lines always have the raw last-error value
// to go on, not just a string.
type CallError struct {
	Call string
	Code uint32
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("osbind: %s failed (code %d): %v", e.Call, e.Code, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Token is an owned primary access token. The zero value is not a valid
// token; use HasToken to distinguish "no interactive user" (an explicit,
// typed outcome) from a Token that simply has not been assigned.
type Token struct {
	valid   bool
	closed  bool
	closer  func() error
	sysrepr uintptr // platform handle value, for diagnostics/logging only
}

// HasToken reports whether t actually holds an OS token.
func (t Token) HasToken() bool { return t.valid && !t.closed }

// Close releases the token. Calling Close more than once is a no-op; every
// acquisition path in this package is written so Close is reachable on all
// exits, since a token must be released exactly once regardless of which
// path out of the caller is taken.
func (t *Token) Close() error {
	if t.closed || t.closer == nil {
		t.closed = true
		return nil
	}
	t.closed = true
	return t.closer()
}

// EnvironmentBlock is an ordered, read-only sequence of NAME=VALUE strings
// derived from a Token. Augment produces a new block with overrides merged
// in; the receiver is never mutated.
type EnvironmentBlock struct {
	vars []string // "NAME=VALUE", in the order delivered by the platform
}

// NewEnvironmentBlock wraps a raw NAME=VALUE slice, such as one already
// split from a platform double-NUL-terminated buffer.
func NewEnvironmentBlock(vars []string) EnvironmentBlock {
	cp := make([]string, len(vars))
	copy(cp, vars)
	return EnvironmentBlock{vars: cp}
}

// Vars returns the NAME=VALUE pairs in order. The returned slice must not
// be mutated by the caller.
func (e EnvironmentBlock) Vars() []string { return e.vars }

// Lookup returns the value of name (case-insensitive, matching Windows
// environment semantics) and whether it was present.
func (e EnvironmentBlock) Lookup(name string) (string, bool) {
	for _, kv := range e.vars {
		k, v, ok := splitKV(kv)
		if ok && equalFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Augment returns a new EnvironmentBlock with the given overrides applied
// on top of e. A NAME that already exists in e (case-insensitively) is
// replaced in place so the resulting order stays stable; new names are
// appended in map iteration order is avoided by taking a slice instead.
func (e EnvironmentBlock) Augment(overrides []string) EnvironmentBlock {
	out := make([]string, 0, len(e.vars)+len(overrides))
	replaced := make(map[string]bool, len(overrides))
	overrideKeys := make(map[string]string, len(overrides))
	for _, kv := range overrides {
		k, v, ok := splitKV(kv)
		if !ok {
			continue
		}
		overrideKeys[foldKey(k)] = kv
		_ = v
	}
	for _, kv := range e.vars {
		k, _, ok := splitKV(kv)
		if ok {
			if repl, found := overrideKeys[foldKey(k)]; found {
				out = append(out, repl)
				replaced[foldKey(k)] = true
				continue
			}
		}
		out = append(out, kv)
	}
	for _, kv := range overrides {
		k, _, ok := splitKV(kv)
		if !ok {
			continue
		}
		if replaced[foldKey(k)] {
			continue
		}
		out = append(out, kv)
	}
	return EnvironmentBlock{vars: out}
}

func splitKV(kv string) (key, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}

func foldKey(k string) string {
	b := []byte(k)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

func equalFold(a, b string) bool { return foldKey(a) == foldKey(b) }

// Handle is the generic owning wrapper over a platform handle: moving a
// Handle into a child process transfers ownership, and the parent's copy
// must be closed immediately afterward regardless of whether process
// creation succeeded.
type Handle struct {
	closer func() error
	moved  bool
	closed bool
}

// Close releases the handle unless it has been Move()d away.
func (h *Handle) Close() error {
	if h.closed || h.moved || h.closer == nil {
		h.closed = true
		return nil
	}
	h.closed = true
	return h.closer()
}

// Move marks the handle as transferred to a child process: the owning
// wrapper's destructor becomes a no-op, because the child now owns the
// underlying OS resource.
func (h *Handle) Move() { h.moved = true }
