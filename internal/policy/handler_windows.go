// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package policy

import (
	"strconv"

	"golang.org/x/sys/windows/registry"
)

// policyKeyPath mirrors the per-product Group Policy key administrators
// populate under HKLM; it is intentionally a plain registry key rather
// than a true ADMX-backed policy to avoid depending on a GPO client-side
// extension that this product does not ship.
const policyKeyPath = `SOFTWARE\Policies\GPII\gpii-service`

type windowsHandler struct{}

func init() {
	handler.Store(Handler(windowsHandler{}))
}

func (windowsHandler) ReadString(key Key) (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, policyKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return "", ErrNoSuchKey
	}
	defer k.Close()

	v, _, err := k.GetStringValue(string(key))
	if err != nil {
		return "", ErrNoSuchKey
	}
	return v, nil
}

func (windowsHandler) ReadUInt64(key Key) (uint64, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, policyKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return 0, ErrNoSuchKey
	}
	defer k.Close()

	// DWORD values come back as uint64 from GetIntegerValue; some admins
	// configure string-typed REG_SZ instead, so fall back to parsing one.
	if v, _, err := k.GetIntegerValue(string(key)); err == nil {
		return v, nil
	}
	if s, _, err := k.GetStringValue(string(key)); err == nil {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, ErrNoSuchKey
}
