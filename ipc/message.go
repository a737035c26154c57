// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package ipc is the authenticated local IPC transport: endpoint naming,
// a named-pipe (or loopback-TCP fallback) transport, and length-prefixed
// JSON framing.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Reserved message types.
const (
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"
	TypeHello = "hello"
)

// maxFrameSize bounds a single inbound frame so a confused or hostile peer
// cannot make the supervisor allocate an unbounded buffer.
const maxFrameSize = 16 << 20 // 16 MiB

// ErrFrameTooLarge is returned by ReadMessage when the declared length
// exceeds maxFrameSize.
var ErrFrameTooLarge = errors.New("ipc: frame exceeds maximum size")

// Message is the wire shape: a tagged record with an arbitrary payload.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into a Message ready to send.
func NewMessage(typ string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: typ}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("ipc: marshal payload: %w", err)
	}
	return Message{Type: typ, Payload: raw}, nil
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// WriteMessage writes m to w as a 4-byte big-endian length prefix followed
// by its JSON encoding.
func WriteMessage(w io.Writer, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("ipc: marshal frame: %w", err)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("ipc: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("ipc: write frame body: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Message{}, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return Message{}, ErrFrameTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("ipc: read frame body: %w", err)
	}
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("ipc: unmarshal frame: %w", err)
	}
	return m, nil
}
