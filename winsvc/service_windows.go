// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

// Package winsvc hosts the gpii-service process as a Windows service
// control handler: it translates svc.ChangeRequest control codes and
// WTS_SESSION_NOTIFICATION session-change events into calls on a
// supervisor.Machine.
package winsvc

import (
	"context"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"

	"github.com/gpii-project/gpii-service/osbind"
	"github.com/gpii-project/gpii-service/session"
	"github.com/gpii-project/gpii-service/supervisor"
)

// acceptedChanges is every control code this service reacts to.
const acceptedChanges = svc.AcceptStop | svc.AcceptShutdown | svc.AcceptSessionChange

// handler adapts svc.Handler to a supervisor.Machine.
type handler struct {
	machine *supervisor.Machine
	session *session.Manager
	log     *zap.Logger
}

// Run starts name as a Windows service, blocking until the service is
// asked to stop. machine must already be constructed (Idle state).
func Run(name string, machine *supervisor.Machine, sess *session.Manager, log *zap.Logger) error {
	// The service runs as LocalSystem, which does not have these
	// privileges enabled by default; CreateProcessAsUser fails without
	// them. Best-effort — a missing privilege still surfaces as a clear
	// ChildStartFailed from the launcher itself.
	osbind.EnableLaunchPrivileges()

	h := &handler{machine: machine, session: sess, log: log}
	return svc.Run(name, h)
}

func (h *handler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	changes <- svc.Status{State: svc.StartPending}
	ctx := context.Background()

	loggedOn, err := h.session.IsUserLoggedOn()
	if err != nil {
		h.log.Warn("failed to query console session at startup", zap.Error(err))
	}
	h.machine.HandleStart(ctx, loggedOn)

	changes <- svc.Status{State: svc.Running, Accepts: acceptedChanges}

	// signals carries the Machine's own child.exited / restart-due events
	// into this same select loop so that HandleChildExited and
	// HandleRestartDue are never called concurrently with HandleStart or
	// HandleStop: every Machine method this process calls runs on this one
	// goroutine.
	signals := h.machine.Signals()

loop:
	for {
		select {
		case c, ok := <-r:
			if !ok {
				break loop
			}
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				h.machine.HandleStop()
				break loop

			case svc.SessionChange:
				h.handleSessionChange(ctx, c)

			default:
				h.log.Warn("unexpected service control request", zap.Uint32("cmd", uint32(c.Cmd)))
			}

		case sig := <-signals:
			switch sig.Kind {
			case supervisor.SignalChildExited:
				h.machine.HandleChildExited()
			case supervisor.SignalRestartDue:
				h.machine.HandleRestartDue(ctx, sig.Seq)
			}
		}
	}

	changes <- svc.Status{State: svc.StopPending}
	return false, 0
}

func (h *handler) handleSessionChange(ctx context.Context, c svc.ChangeRequest) {
	notification := (*windows.WTSSESSION_NOTIFICATION)(unsafe.Pointer(c.EventData))
	if uintptr(notification.Size) != unsafe.Sizeof(*notification) {
		h.log.Warn("unexpected size of WTSSESSION_NOTIFICATION", zap.Uint32("size", notification.Size))
		return
	}

	switch c.EventType {
	case windows.WTS_SESSION_LOGON:
		h.machine.HandleStart(ctx, true)
	default:
		// Other sub-events (logoff, lock, remote connect, ...) are
		// reported but ignored by the core.
		h.log.Debug("session change event ignored", zap.Uint32("event_type", c.EventType))
	}
}
