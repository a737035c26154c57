// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// EnvironmentFor builds the environment block for a token. A zero Token
// (HasToken() == false) means "use the current process's own environment"
// and is used when the always-run fallback spawns under the caller's own
// identity.
func EnvironmentFor(t Token) (EnvironmentBlock, error) {
	var block *uint16
	var tok windows.Token
	if t.HasToken() {
		tok = windowsHandle(t)
	}
	// CreateEnvironmentBlock accepts a zero token and returns the calling
	// process's own environment in that case, which is exactly what the
	// always-run fallback needs.
	if err := windows.CreateEnvironmentBlock(&block, tok, false); err != nil {
		return EnvironmentBlock{}, &CallError{Call: "CreateEnvironmentBlock", Code: codeOf(err), Err: err}
	}
	defer windows.DestroyEnvironmentBlock(block)

	vars := splitDoubleNulBlock(block)
	return NewEnvironmentBlock(vars), nil
}

// splitDoubleNulBlock walks a double-NUL-terminated UCS-2 environment
// block and returns its NAME=VALUE entries as Go strings.
func splitDoubleNulBlock(block *uint16) []string {
	if block == nil {
		return nil
	}
	var vars []string
	// p walks uint16 code units starting at block; each entry ends with a
	// single NUL, the whole block ends with an extra NUL (i.e. two NULs
	// back to back).
	p := unsafe.Pointer(block)
	for {
		entry := windows.UTF16PtrToString((*uint16)(p))
		if entry == "" {
			break
		}
		vars = append(vars, entry)
		// advance past this entry's UTF-16 units plus its terminating NUL.
		advance := utf16Len(entry) + 1
		p = unsafe.Add(p, advance*2)
	}
	return vars
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// SerializeEnvironmentBlock renders an EnvironmentBlock into the
// double-NUL-terminated UCS-2 buffer CreateProcessAsUser expects when
// CREATE_UNICODE_ENVIRONMENT is set.
func SerializeEnvironmentBlock(e EnvironmentBlock) (*uint16, error) {
	var flat []uint16
	for _, kv := range e.Vars() {
		u, err := windows.UTF16FromString(kv)
		if err != nil {
			return nil, err
		}
		// UTF16FromString already NUL-terminates; drop that terminator and
		// add our own so entries are back-to-back.
		flat = append(flat, u[:len(u)-1]...)
		flat = append(flat, 0)
	}
	flat = append(flat, 0) // final extra NUL terminates the whole block
	return &flat[0], nil
}
