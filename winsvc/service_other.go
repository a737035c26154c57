// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

// Package winsvc hosts the gpii-service process as a Windows service
// control handler. Off Windows there is no service control manager, so
// Run only exists to keep cmd/gpii-service's dispatch uniform across
// platforms; it always fails.
package winsvc

import (
	"errors"

	"go.uber.org/zap"

	"github.com/gpii-project/gpii-service/session"
	"github.com/gpii-project/gpii-service/supervisor"
)

// ErrUnsupported is returned by Run on platforms without a service
// control manager.
var ErrUnsupported = errors.New("winsvc: unsupported on this platform")

// Run always returns ErrUnsupported off Windows.
func Run(name string, machine *supervisor.Machine, sess *session.Manager, log *zap.Logger) error {
	return ErrUnsupported
}
