// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gpii-project/gpii-service/eventbus"
)

// Dispatcher reads length-prefixed frames off a connection and republishes
// them on a Bus: a ping is answered with a pong directly on the connection
// (it never reaches the bus), an error frame is republished as
// "message.error" but otherwise treated as inert, and anything else is
// republished as "message.<type>".
type Dispatcher struct {
	Conn net.Conn
	Bus  *eventbus.Bus

	writeMu sync.Mutex
}

// NewDispatcher wires conn to bus.
func NewDispatcher(conn net.Conn, bus *eventbus.Bus) *Dispatcher {
	return &Dispatcher{Conn: conn, Bus: bus}
}

// Send writes a frame on the dispatcher's connection, serialized against
// any pong reply Run is writing concurrently — two goroutines writing
// length-prefixed frames to the same net.Conn without this mutex could
// interleave their length prefix and body writes.
func (d *Dispatcher) Send(typ string, payload any) error {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		return err
	}
	return d.sendRaw(msg)
}

// sendRaw is Send's locked write path, also used by Run to echo a ping's
// payload back verbatim without re-marshaling it through NewMessage.
func (d *Dispatcher) sendRaw(msg Message) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return WriteMessage(d.Conn, msg)
}

// Run reads frames until the connection closes or an unrecoverable framing
// error occurs. It returns nil on a clean EOF (the peer closed its end,
// which the caller — the supervisor — treats as the child having exited
// once every buffered frame has been dispatched).
func (d *Dispatcher) Run() error {
	for {
		msg, err := ReadMessage(d.Conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("ipc: dispatch: %w", err)
		}

		switch msg.Type {
		case TypePing:
			pong := Message{Type: TypePong, Payload: msg.Payload}
			if err := d.sendRaw(pong); err != nil {
				return fmt.Errorf("ipc: dispatch: reply pong: %w", err)
			}
		case TypeError:
			d.Bus.PublishNamed("message.error", msg)
		default:
			d.Bus.PublishNamed("message."+msg.Type, msg)
		}
	}
}
