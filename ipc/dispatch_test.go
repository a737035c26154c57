// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc_test

import (
	"net"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/gpii-project/gpii-service/eventbus"
	"github.com/gpii-project/gpii-service/ipc"
)

// TestDispatcherEchoesPingPayload verifies that a ping is answered with a
// pong carrying the same payload, directly on the connection, without
// reaching the bus.
func TestDispatcherEchoesPingPayload(t *testing.T) {
	c := qt.New(t)

	childEnd, serverEnd := net.Pipe()
	defer childEnd.Close()

	bus := eventbus.New()
	var sawMessage bool
	bus.Subscribe("message.ping", func(eventbus.Event) { sawMessage = true })

	d := ipc.NewDispatcher(serverEnd, bus)
	go d.Run()

	ping, err := ipc.NewMessage(ipc.TypePing, 42)
	c.Assert(err, qt.IsNil)
	c.Assert(ipc.WriteMessage(childEnd, ping), qt.IsNil)

	childEnd.SetReadDeadline(time.Now().Add(time.Second))
	pong, err := ipc.ReadMessage(childEnd)
	c.Assert(err, qt.IsNil)
	c.Assert(pong.Type, qt.Equals, ipc.TypePong)

	var got int
	c.Assert(pong.Decode(&got), qt.IsNil)
	c.Assert(got, qt.Equals, 42)
	c.Assert(sawMessage, qt.IsFalse, qt.Commentf("ping must not be republished on the bus"))
}

// TestDispatcherSendIsSerializedAgainstPong exercises the concurrent-write
// path runChildSupervision relies on: a heartbeat Send racing a pong reply
// must not interleave their length-prefix and body writes.
func TestDispatcherSendIsSerializedAgainstPong(t *testing.T) {
	c := qt.New(t)

	childEnd, serverEnd := net.Pipe()
	defer childEnd.Close()

	bus := eventbus.New()
	d := ipc.NewDispatcher(serverEnd, bus)
	go d.Run()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			d.Send(ipc.TypeHello, nil)
		}
	}()

	ping, err := ipc.NewMessage(ipc.TypePing, 7)
	c.Assert(err, qt.IsNil)
	c.Assert(ipc.WriteMessage(childEnd, ping), qt.IsNil)

	childEnd.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msg, err := ipc.ReadMessage(childEnd)
		c.Assert(err, qt.IsNil)
		if msg.Type == ipc.TypePong {
			var got int
			c.Assert(msg.Decode(&got), qt.IsNil)
			c.Assert(got, qt.Equals, 7)
			break
		}
		c.Assert(msg.Type, qt.Equals, ipc.TypeHello)
	}
	// Closing the child end unblocks any heartbeat Send still waiting for a
	// reader on the synchronous pipe.
	childEnd.Close()
	<-done
}
