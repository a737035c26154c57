// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package ipc

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/gpii-project/gpii-service/osbind"
)

// windowsSDDL restricts the pipe instance to SYSTEM and Administrators.
// Unlike a pipe meant to accept an arbitrary external client (compare
// safesocket's Built-in-Users-plus-SYSTEM descriptor, needed because its
// client dials in from a separately-launched process), this endpoint's
// client side is only ever opened by this same process — the descriptor
// just needs to keep other principals from connecting to the name in the
// window between listen and self-connect.
const windowsSDDL = "O:BAG:BAD:P(A;;GA;;;SY)(A;;GA;;;BA)"

// NewPipeEndpoint creates an endpoint: listen on the named pipe, then
// immediately open the client side itself, so the parent never has to
// authenticate an anonymous client — it trusts the client end because it
// opened it itself. Both halves must resolve before the endpoint is
// ready; if either fails, the other is torn down, since either the listen
// or the self-connect may complete first.
func NewPipeEndpoint(product string) (*Endpoint, error) {
	name, err := GenerateEndpointName(product)
	if err != nil {
		return nil, err
	}

	cfg := &winio.PipeConfig{
		SecurityDescriptor: windowsSDDL,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	listener, err := winio.ListenPipe(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen pipe %s: %w", name, err)
	}

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, err := listener.Accept()
		acceptCh <- acceptResult{conn, err}
	}()

	clientHandle, err := openPipeClient(name)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("ipc: open client side of %s: %w", name, err)
	}

	res := <-acceptCh
	if res.err != nil {
		listener.Close()
		windows.CloseHandle(clientHandle)
		return nil, fmt.Errorf("ipc: accept on %s: %w", name, res.err)
	}

	if err := osbind.MarkInheritable(clientHandle, true); err != nil {
		listener.Close()
		res.conn.Close()
		windows.CloseHandle(clientHandle)
		return nil, err
	}

	return &Endpoint{
		Name:      name,
		Server:    res.conn,
		clientRaw: uintptr(clientHandle),
		closeClient: func() error {
			return windows.CloseHandle(clientHandle)
		},
	}, nil
}

func openPipeClient(name string) (windows.Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	return windows.CreateFile(
		namePtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
}
