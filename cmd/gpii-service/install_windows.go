// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/gpii-project/gpii-service/session"
	"github.com/gpii-project/gpii-service/supervisor"
	"github.com/gpii-project/gpii-service/winsvc"
)

func runInstall(cfg rootConfig) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service control manager: %w", err)
	}
	defer m.Disconnect()

	args := []string{"--mode=service"}
	if cfg.programArgs != "" {
		args = append(args, "--programArgs="+cfg.programArgs)
	}
	if cfg.nodeArgs != "" {
		args = append(args, "--nodeArgs="+cfg.nodeArgs)
	}
	if cfg.gpii != "" {
		args = append(args, "--gpii="+cfg.gpii)
	}

	s, err := m.CreateService(cfg.serviceName, exePath, mgr.Config{
		DisplayName: "GPII Service",
		StartType:   mgr.StartAutomatic,
	}, args...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()

	if err := eventlog.InstallAsEventCreate(cfg.serviceName, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		// Non-fatal: the service still runs, it just won't show up
		// nicely in Event Viewer until an admin registers the source.
		fmt.Fprintf(os.Stderr, "warning: install event log source: %v\n", err)
	}

	return nil
}

func runUninstall(cfg rootConfig) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service control manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(cfg.serviceName)
	if err != nil {
		return fmt.Errorf("open service %q: %w", cfg.serviceName, err)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	eventlog.Remove(cfg.serviceName)
	return nil
}

func runWindowsService(name string, machine *supervisor.Machine, sess *session.Manager, log *zap.Logger) error {
	isWindowsService, err := svc.IsWindowsService()
	if err != nil {
		return fmt.Errorf("determine if running as a service: %w", err)
	}
	if !isWindowsService {
		return fmt.Errorf("--mode=service must be started by the Windows service control manager")
	}
	return winsvc.Run(name, machine, sess, log)
}
