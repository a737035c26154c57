// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/gpii-project/gpii-service/eventbus"
	"github.com/gpii-project/gpii-service/ipc"
	"github.com/gpii-project/gpii-service/launcher"
	"github.com/gpii-project/gpii-service/session"
)

// writePidFile simulates the helper process having announced pid via the
// file the supervisor only ever reads: it never writes this file itself.
func writePidFile(t *testing.T, pid uint32) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "pidfile")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(strconv.Itoa(int(pid))); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

// fakeEndpoint builds an Endpoint backed by an in-memory pipe so tests
// never touch a real OS handle.
func fakeEndpoint() (*ipc.Endpoint, net.Conn) {
	serverSide, clientSide := net.Pipe()
	return &ipc.Endpoint{
		Name:   "test",
		Server: serverSide,
	}, clientSide
}

func TestMachineHappySpawn(t *testing.T) {
	c := qt.New(t)
	bus := eventbus.New()

	var states []State
	bus.Subscribe("supervisor.state", func(ev eventbus.Event) {
		states = append(states, ev.Payload.(State))
	})
	var started []StartedInfo
	bus.Subscribe("started", func(ev eventbus.Event) {
		started = append(started, ev.Payload.(StartedInfo))
	})

	m := New(Deps{
		Session: session.New(),
		Bus:     bus,
		Product: "gpii-service",
		Command: "helper.exe",
		PidFile: "",
		NewEndpoint: func(product string) (*ipc.Endpoint, error) {
			ep, _ := fakeEndpoint()
			return ep, nil
		},
		Spawn: func(mgr *session.Manager, command string, opts launcher.Options) (*launcher.ChildHandle, error) {
			return &launcher.ChildHandle{Pid: 4242, Endpoint: opts.Endpoint, StartedAt: time.Now()}, nil
		},
	})

	m.HandleStart(context.Background(), true)

	c.Assert(m.State(), qt.Equals, Running)
	c.Assert(states, qt.DeepEquals, []State{Starting, Running})
	c.Assert(started, qt.HasLen, 1)
	c.Assert(started[0].Pid, qt.Equals, uint32(4242))
}

func TestMachineCrashLoopGivesUp(t *testing.T) {
	c := qt.New(t)
	bus := eventbus.New()

	now := time.Unix(0, 0)
	const childPid = 99
	pidFile := writePidFile(t, childPid)

	m := New(Deps{
		Session: session.New(),
		Bus:     bus,
		Product: "gpii-service",
		Command: "helper.exe",
		PidFile: pidFile,
		Now:     func() time.Time { return now },
		NewEndpoint: func(product string) (*ipc.Endpoint, error) {
			ep, _ := fakeEndpoint()
			return ep, nil
		},
		Spawn: func(mgr *session.Manager, command string, opts launcher.Options) (*launcher.ChildHandle, error) {
			return &launcher.ChildHandle{Pid: childPid, Endpoint: opts.Endpoint}, nil
		},
	})

	m.HandleStart(context.Background(), true)
	c.Assert(m.State(), qt.Equals, Running)

	for i := 0; i < MaxFailedStarts; i++ {
		now = now.Add(time.Second) // short-lived, always under MinHealthyRuntime
		m.HandleChildExited()
		c.Assert(m.State(), qt.Equals, Backoff)
		m.HandleRestartDue(context.Background(), m.restartSeq)
		c.Assert(m.State(), qt.Equals, Running)
	}

	now = now.Add(time.Second)
	m.HandleChildExited()
	c.Assert(m.State(), qt.Equals, GivingUp)
}

func TestMachineStopCancelsPendingRestart(t *testing.T) {
	c := qt.New(t)
	bus := eventbus.New()

	pidFile := writePidFile(t, 1)

	m := New(Deps{
		Session: session.New(),
		Bus:     bus,
		Product: "gpii-service",
		Command: "helper.exe",
		PidFile: pidFile,
		NewEndpoint: func(product string) (*ipc.Endpoint, error) {
			ep, _ := fakeEndpoint()
			return ep, nil
		},
		Spawn: func(mgr *session.Manager, command string, opts launcher.Options) (*launcher.ChildHandle, error) {
			return &launcher.ChildHandle{Pid: 1, Endpoint: opts.Endpoint}, nil
		},
	})

	m.HandleStart(context.Background(), true)
	m.HandleChildExited() // crash -> Backoff
	c.Assert(m.State(), qt.Equals, Backoff)

	m.HandleStop()
	c.Assert(m.State(), qt.Equals, Idle)

	// The restart timer, if it still fires, must be a no-op: its seq no
	// longer matches the one HandleStop invalidated.
	m.HandleRestartDue(context.Background(), m.restartSeq-1)
	c.Assert(m.State(), qt.Equals, Idle)
}
