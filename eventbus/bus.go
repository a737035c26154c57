// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package eventbus is the in-process named-event dispatch used to wire
// the session/token manager, IPC transport, launcher, and supervisor
// together without hard coupling. Subscribers are expected to be
// registered once at startup: no component holds a mutex across a
// publish, and delivery order within one child lifetime is the caller's
// responsibility (the supervisor), not the bus's.
package eventbus

import "sync"

// Event is one published occurrence: a name (e.g. "child.exited",
// "message.hello") and an arbitrary payload.
type Event struct {
	Name    string
	Payload any
}

// Handler receives events published under names it subscribed to.
type Handler func(Event)

// Bus is a simple synchronous, in-process publish/subscribe dispatcher.
// Publish calls every matching subscriber synchronously, in subscription
// order, on the calling goroutine — ordering is imposed by the caller's
// single cooperative event loop rather than by locking inside
// components.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// New returns a ready-to-use Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

// Subscribe registers h to be called for every event published under
// name. Subscriptions are expected to happen during setup; the bus is
// read-mostly at runtime, and subscribing after the event loop has
// started is supported but not the common case.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], h)
}

// Publish delivers ev to every handler subscribed to ev.Name.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[ev.Name]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

// PublishNamed is shorthand for Publish(Event{Name: name, Payload: payload}).
func (b *Bus) PublishNamed(name string, payload any) {
	b.Publish(Event{Name: name, Payload: payload})
}
