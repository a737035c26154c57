// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "net"

// Endpoint is a local IPC endpoint pair: a server side (a duplex stream
// this process owns) and a client side (an OS handle marked inheritable
// and intended for exactly one child). The client side's concrete
// platform handle is opaque outside this package — see pipe_windows.go
// and tcp_windows.go — because the launcher only needs its raw numeric
// value to place in the handle-inheritance list.
type Endpoint struct {
	// Name is the endpoint's address: a pipe path or a "host:port" string,
	// depending on transport.
	Name string
	// Server is the duplex stream this process reads/writes on.
	Server net.Conn

	closeClient func() error
	clientRaw   uintptr
}

// ClientHandleRaw exposes the platform handle value backing the client
// side, for the launcher to place in CreateProcessAsUser's inheritance
// list. Zero for transports (like the loopback-TCP fallback) that have no
// inheritable client handle at all — the child connects to it over the
// network instead of inheriting a handle.
func (e *Endpoint) ClientHandleRaw() uintptr { return e.clientRaw }

// CloseClient closes the parent's copy of the client handle. It must be
// called immediately after the child has been spawned so that EOF on
// either side reliably signals peer exit.
func (e *Endpoint) CloseClient() error {
	if e.closeClient == nil {
		return nil
	}
	return e.closeClient()
}

// Close closes the server side of the endpoint.
func (e *Endpoint) Close() error {
	if e.Server == nil {
		return nil
	}
	return e.Server.Close()
}
