// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc_test

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/gpii-project/gpii-service/ipc"
)

func TestFramingRoundTrip(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		typ     string
		payload any
	}{
		{"hello", map[string]any{"cwd": `C:\Users\bob`}},
		{"ping", float64(42)},
		{"unknown-type", []any{float64(1), float64(2), float64(3)}},
		{"error", nil},
	}

	for _, tc := range cases {
		want, err := ipc.NewMessage(tc.typ, tc.payload)
		c.Assert(err, qt.IsNil)

		var buf bytes.Buffer
		c.Assert(ipc.WriteMessage(&buf, want), qt.IsNil)

		got, err := ipc.ReadMessage(&buf)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Type, qt.Equals, tc.typ)

		if tc.payload == nil {
			c.Assert(len(got.Payload), qt.Equals, 0)
			continue
		}
		c.Assert([]byte(got.Payload), qt.JSONEquals, tc.payload)
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF}) // declares a ~4GiB frame
	_, err := ipc.ReadMessage(&buf)
	c.Assert(err, qt.Equals, ipc.ErrFrameTooLarge)
}

func TestPingElicitsPongPayload(t *testing.T) {
	c := qt.New(t)

	ping, err := ipc.NewMessage(ipc.TypePing, 42)
	c.Assert(err, qt.IsNil)

	pong, err := ipc.NewMessage(ipc.TypePong, nil)
	c.Assert(err, qt.IsNil)
	pong.Payload = ping.Payload

	var got int
	c.Assert(pong.Decode(&got), qt.IsNil)
	c.Assert(got, qt.Equals, 42)
}
