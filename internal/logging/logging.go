// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package logging builds the zap loggers this service uses: a JSON sink
// for the running service, writing append-only to the service log file,
// and a colorized console encoder for the foreground/dev-mode entry
// point.
package logging

import (
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects where and how the logger writes.
type Config struct {
	// FilePath is the service log file; empty means console-only.
	FilePath string
	// Foreground indicates the process is running interactively (dev
	// mode), so output should be a human encoder rather than JSON, and
	// colorized when the console supports it.
	Foreground bool
	// Level is the minimum level to emit.
	Level zapcore.Level
}

// New builds a *zap.Logger per cfg. It never fails on an unwritable log
// file path — falling back to stderr-only instead — because a logging
// failure must not prevent the supervisor from starting.
func New(cfg Config) *zap.Logger {
	var cores []zapcore.Core

	if cfg.Foreground {
		encCfg := zap.NewDevelopmentEncoderConfig()
		var out zapcore.WriteSyncer
		if isatty.IsTerminal(os.Stdout.Fd()) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			out = zapcore.AddSync(colorable.NewColorableStdout())
		} else {
			out = zapcore.AddSync(os.Stdout)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, cfg.Level))
	}

	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			encCfg := zap.NewProductionEncoderConfig()
			encCfg.TimeKey = "ts"
			encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), cfg.Level))
		}
	}

	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			cfg.Level,
		))
	}

	return zap.New(zapcore.NewTee(cores...))
}
