// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gpii-project/gpii-service/session"
	"github.com/gpii-project/gpii-service/supervisor"
)

func runInstall(cfg rootConfig) error {
	return fmt.Errorf("--mode=install is only supported on Windows")
}

func runUninstall(cfg rootConfig) error {
	return fmt.Errorf("--mode=uninstall is only supported on Windows")
}

func runWindowsService(name string, machine *supervisor.Machine, sess *session.Manager, log *zap.Logger) error {
	return fmt.Errorf("--mode=service is only supported on Windows")
}
