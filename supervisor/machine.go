// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gpii-project/gpii-service/eventbus"
	"github.com/gpii-project/gpii-service/internal/pidfile"
	"github.com/gpii-project/gpii-service/ipc"
	"github.com/gpii-project/gpii-service/launcher"
	"github.com/gpii-project/gpii-service/session"
)

// Deps are the collaborators the Machine drives. Spawn is a seam so tests
// can substitute a fake launcher without touching real OS handles; Now is
// a seam for deterministic backoff-timing tests.
type Deps struct {
	Session  *session.Manager
	Bus      *eventbus.Bus
	Log      *zap.Logger
	Product  string
	Command  string
	// PidFile, when non-empty, pins the pid file path (used by tests and
	// by any future non-per-user deployment mode). Production code leaves
	// this empty and relies on PidFilePath instead, since the pid file
	// lives under the logged-on user's APPDATA and that path is only
	// knowable once a token can be acquired.
	PidFile   string
	AlwaysRun bool

	Spawn       func(mgr *session.Manager, command string, opts launcher.Options) (*launcher.ChildHandle, error)
	NewEndpoint func(product string) (*ipc.Endpoint, error)
	// PidFilePath resolves the current pid file path on demand, returning
	// ok=false when it cannot be determined right now (no interactive user
	// to derive APPDATA from). Filled in by applyPlatformDefaults when
	// PidFile is unset; tests normally use the static PidFile field
	// instead and never need to set this.
	PidFilePath func() (string, bool)
	Now         func() time.Time
}

// Machine is the single cooperative event-loop supervisor: start, stop,
// child-exit, and restart-timer events are all handled by calling a method
// on it, and it owns the current SupervisorState and RestartLedger. All
// state is mutated only by methods called from one goroutine — the caller
// (winsvc's service loop, or cmd's foreground runner) is responsible for
// serializing calls into it; the Machine itself holds no lock.
type Machine struct {
	deps   Deps
	state  State
	ledger RestartLedger
	child  *launcher.ChildHandle

	restartTimer *time.Timer
	restartSeq   uint64

	signalsOnce sync.Once
	signals     chan Signal
}

// SignalKind identifies one of the two events the Machine generates
// internally and must have fed back into HandleChildExited/HandleRestartDue
// to keep the state machine moving: the process-handle termination waiter
// firing, and a Backoff timer coming due.
type SignalKind int

const (
	// SignalChildExited means the supervised child's process handle
	// signaled and its buffered IPC frames have drained.
	SignalChildExited SignalKind = iota
	// SignalRestartDue means a Backoff timer elapsed.
	SignalRestartDue
)

// StartedInfo is the payload published on "started": enough for a
// subscriber to recover the child's pid without parsing a log line, plus
// the spawn id that correlates it with any IPC traffic on the same
// endpoint.
type StartedInfo struct {
	Pid     uint32
	SpawnID string
}

// Signal is one event delivered on the channel Signals returns.
type Signal struct {
	Kind SignalKind
	// Seq is only meaningful for SignalRestartDue; it must be passed to
	// HandleRestartDue unchanged so a stale timer a HandleStop already
	// cancelled is correctly ignored.
	Seq uint64
}

// Signals returns the channel this Machine's own child.exited and
// supervisor.restart-due bus events are mirrored onto, lazily subscribing
// on first call. A host selects on this channel alongside whatever
// external events it watches (service control requests, session-change
// notifications) in its own single loop, and calls HandleChildExited /
// HandleRestartDue from there — never from a separate goroutine — so that
// every Machine method is still only ever invoked from one goroutine.
func (m *Machine) Signals() <-chan Signal {
	m.signalsOnce.Do(func() {
		m.signals = make(chan Signal, 4)
		m.deps.Bus.Subscribe("child.exited", func(eventbus.Event) {
			m.signals <- Signal{Kind: SignalChildExited}
		})
		m.deps.Bus.Subscribe("supervisor.restart-due", func(ev eventbus.Event) {
			seq, _ := ev.Payload.(uint64)
			m.signals <- Signal{Kind: SignalRestartDue, Seq: seq}
		})
	})
	return m.signals
}

// New constructs a Machine in the Idle state. Platform-specific defaults
// (the real launcher.Spawn and ipc.NewPipeEndpoint) are filled in by
// applyPlatformDefaults; tests on any platform can exercise the full
// state machine by supplying Deps.Spawn and Deps.NewEndpoint themselves.
func New(deps Deps) *Machine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	applyPlatformDefaults(&deps)
	return &Machine{deps: deps, state: Idle}
}

// State reports the machine's current state, for diagnostics and tests.
func (m *Machine) State() State { return m.state }

// HandleStart implements the Idle->Starting edge for service.start and
// the session-logon sub-event of service.svc-sessionchange.
func (m *Machine) HandleStart(ctx context.Context, userLoggedOnOrNotAService bool) {
	if m.state != Idle {
		return
	}
	if !userLoggedOnOrNotAService {
		return
	}
	m.enterStarting(ctx)
}

func (m *Machine) enterStarting(ctx context.Context) {
	m.state = Starting
	m.deps.Bus.PublishNamed("supervisor.state", m.state)

	if path, ok := m.resolvePidFile(); ok {
		if pid, ok := pidfile.Read(path); ok && pidfile.IsLive(pid) {
			m.logger().Info("external instance detected, not spawning", zap.Int("pid", pid))
			m.state = Idle
			m.deps.Bus.PublishNamed("supervisor.state", m.state)
			return
		}
	}

	now := m.deps.Now()
	m.ledger.RecordStart(now)

	spawnID := uuid.NewString()
	endpoint, err := m.deps.NewEndpoint(m.deps.Product)
	if err != nil {
		m.logger().Error("failed to create ipc endpoint", zap.String("spawn_id", spawnID), zap.Error(err))
		m.enterBackoffAfterFailure()
		return
	}

	child, err := m.deps.Spawn(m.deps.Session, m.deps.Command, launcher.Options{
		AlwaysRun: m.deps.AlwaysRun,
		Endpoint:  endpoint,
	})
	if err != nil {
		m.logger().Error("spawn failed", zap.String("spawn_id", spawnID), zap.Error(err))
		endpoint.Close()
		m.enterBackoffAfterFailure()
		return
	}

	m.child = child
	m.state = Running
	m.logger().Info("child started", zap.String("spawn_id", spawnID), zap.Uint32("pid", child.Pid))
	m.deps.Bus.PublishNamed("started", StartedInfo{Pid: child.Pid, SpawnID: spawnID})
	m.deps.Bus.PublishNamed("supervisor.state", m.state)

	go runChildSupervision(ctx, m.deps.Bus, endpoint, child, m.deps.Log)
}

func (m *Machine) enterBackoffAfterFailure() {
	outcome := m.ledger.RecordCrash(m.deps.Now())
	m.transitionToOutcome(outcome)
}

// HandleChildExited implements the Running->{Idle,Backoff,GivingUp} edges
// for the internal child.exited signal.
func (m *Machine) HandleChildExited() {
	if m.state != Running {
		return
	}
	var lostPid uint32
	if m.child != nil {
		lostPid = m.child.Pid
		m.child.Close()
		m.child = nil
	}

	// A pid file that still names the process we just lost means nobody
	// ever updated it to hand off to a successor: the exit was a crash. An
	// absent file, or one renamed to a different pid, means the exit was
	// expected.
	var crash bool
	if path, ok := m.resolvePidFile(); ok {
		pid, ok := pidfile.Read(path)
		crash = ok && uint32(pid) == lostPid
	}

	if !crash {
		m.state = Idle
		m.deps.Bus.PublishNamed("supervisor.state", m.state)
		return
	}

	outcome := m.ledger.RecordCrash(m.deps.Now())
	m.transitionToOutcome(outcome)
}

func (m *Machine) transitionToOutcome(outcome Outcome) {
	if outcome.NextState == GivingUp {
		m.state = GivingUp
		m.logger().Error("giving up after repeated crashes")
		m.deps.Bus.PublishNamed("supervisor.state", m.state)
		return
	}

	m.state = Backoff
	m.deps.Bus.PublishNamed("supervisor.state", m.state)
	delay := BackoffDelay(outcome.BackoffAttempt)
	m.restartSeq++
	seq := m.restartSeq
	m.restartTimer = time.AfterFunc(delay, func() {
		m.deps.Bus.PublishNamed("supervisor.restart-due", seq)
	})
}

// HandleRestartDue re-enters Starting once a Backoff timer fires, provided
// no stop request superseded it in the meantime: HandleStop bumps
// restartSeq, so a timer it already raced past is silently ignored here.
func (m *Machine) HandleRestartDue(ctx context.Context, seq uint64) {
	if m.state != Backoff || seq != m.restartSeq {
		return
	}
	m.enterStarting(ctx)
}

// HandleStop implements the "from any state" edge to the terminal Idle
// state for service.stop: it cancels any pending restart timer, best-effort
// kills the child, and drops the ChildHandle.
func (m *Machine) HandleStop() {
	if m.restartTimer != nil {
		m.restartTimer.Stop()
		m.restartTimer = nil
	}
	m.restartSeq++ // invalidate any in-flight restart-due event

	if m.child != nil {
		killBestEffort(m.child.Pid)
		m.child.Close()
		m.child = nil
	}

	m.state = Idle
	m.deps.Bus.PublishNamed("supervisor.state", m.state)
}

// resolvePidFile returns the pid file path to consult, or ok=false when
// none can be determined right now. A static Deps.PidFile always wins
// (tests rely on this); otherwise Deps.PidFilePath is consulted, which
// production wiring points at the current console user's APPDATA-derived
// data directory and which legitimately reports ok=false when there is no
// interactive user to derive it from.
func (m *Machine) resolvePidFile() (string, bool) {
	if m.deps.PidFile != "" {
		return m.deps.PidFile, true
	}
	if m.deps.PidFilePath != nil {
		return m.deps.PidFilePath()
	}
	return "", false
}

func (m *Machine) logger() *zap.Logger {
	if m.deps.Log != nil {
		return m.deps.Log
	}
	return zap.NewNop()
}

// dispatchDrainGrace bounds how long runChildSupervision waits for the IPC
// dispatcher to drain buffered frames after the process handle has already
// signaled exit, before forcing the endpoint closed. A well-behaved child
// closes its end of the pipe at process exit, so the dispatcher's Run()
// returns on its own almost immediately; this is only a backstop against a
// descendant process holding a duplicate of the client handle open.
const dispatchDrainGrace = 2 * time.Second

// helloInterval is how often the supervisor sends a hello heartbeat down
// the IPC endpoint while a child is running.
const helloInterval = 1 * time.Second

// runChildSupervision owns a spawned child's lifetime from the moment it
// starts until child.exited is published. The process handle — not pipe
// EOF — is the authoritative exit signal; the dispatcher is drained first
// so that every buffered inbound frame is dispatched before child.exited
// is observed by the rest of the supervisor.
func runChildSupervision(ctx context.Context, bus *eventbus.Bus, endpoint *ipc.Endpoint, child *launcher.ChildHandle, log *zap.Logger) {
	dispatcher := ipc.NewDispatcher(endpoint.Server, bus)

	dispatchDone := make(chan struct{})
	go func() {
		if err := dispatcher.Run(); err != nil && log != nil {
			log.Warn("ipc dispatcher exited", zap.Error(err))
		}
		close(dispatchDone)
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		ticker := time.NewTicker(helloInterval)
		defer ticker.Stop()
		for {
			select {
			case <-dispatchDone:
				return
			case <-ticker.C:
				if err := dispatcher.Send(ipc.TypeHello, nil); err != nil {
					return
				}
			}
		}
	}()

	<-child.Wait(ctx)

	select {
	case <-dispatchDone:
	case <-time.After(dispatchDrainGrace):
		endpoint.Close()
		<-dispatchDone
	}
	<-heartbeatDone

	bus.PublishNamed("child.exited", nil)
}

