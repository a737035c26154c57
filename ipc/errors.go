// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "errors"

// ErrPeerAuthenticationFailed is returned when the loopback-TCP
// accept-time check refuses a connection. The connection has already
// been closed by the time this error is returned; no message.* event is
// ever emitted for that connection.
var ErrPeerAuthenticationFailed = errors.New("ipc: peer authentication failed")
