// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Command gpii-service is the privileged Windows service host: it installs
// or uninstalls itself as a service, runs as the service the SCM starts,
// or runs in the foreground as the current user for development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gpii-project/gpii-service/eventbus"
	"github.com/gpii-project/gpii-service/internal/logging"
	"github.com/gpii-project/gpii-service/internal/policy"
	"github.com/gpii-project/gpii-service/session"
	"github.com/gpii-project/gpii-service/supervisor"
)

const defaultServiceName = "gpii-service"

type rootConfig struct {
	mode        string
	programArgs string
	nodeArgs    string
	gpii        string
	serviceName string
	logPath     string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cfg rootConfig
	fs := flag.NewFlagSet("gpii-service", flag.ExitOnError)
	fs.StringVar(&cfg.mode, "mode", "", "install, uninstall, service, or unset for foreground")
	fs.StringVar(&cfg.programArgs, "programArgs", "", "comma-separated arguments appended to the host command line")
	fs.StringVar(&cfg.nodeArgs, "nodeArgs", "", "comma-separated arguments for the host runtime")
	fs.StringVar(&cfg.gpii, "gpii", "", "path to the user-mode application")
	fs.StringVar(&cfg.serviceName, "serviceName", defaultServiceName, "Windows service name")
	fs.StringVar(&cfg.logPath, "logPath", "", "service log file path; empty uses the default ProgramData location")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("GPII_SERVICE")); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	switch cfg.mode {
	case "install":
		return runInstall(cfg)
	case "uninstall":
		return runUninstall(cfg)
	case "service":
		return runService(cfg)
	case "":
		return runForeground(cfg)
	default:
		return fmt.Errorf("unrecognized --mode %q", cfg.mode)
	}
}

func buildCommand(cfg rootConfig) string {
	helperPath := policy.StringOr(policy.HelperPath, cfg.gpii)
	if helperPath == "" {
		exe, err := os.Executable()
		if err == nil {
			helperPath = exe
		}
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%q", helperPath))

	nodeArgs := splitNonEmpty(cfg.nodeArgs)
	parts = append(parts, nodeArgs...)

	programArgs := splitNonEmpty(policy.StringOr(policy.HelperArgs, cfg.programArgs))
	parts = append(parts, programArgs...)

	return strings.Join(parts, " ")
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultLogPath(cfg rootConfig) string {
	if cfg.logPath != "" {
		return cfg.logPath
	}
	programData := os.Getenv("ProgramData")
	if programData == "" {
		return ""
	}
	dir := programData + `\` + defaultServiceName
	os.MkdirAll(dir, 0755)
	return dir + `\` + cfg.serviceName + ".log"
}

func buildMachine(cfg rootConfig, foreground bool) (*supervisor.Machine, *session.Manager, *zap.Logger) {
	log := logging.New(logging.Config{
		FilePath:   defaultLogPath(cfg),
		Foreground: foreground,
		Level:      zapcore.InfoLevel,
	})
	sess := session.New()
	bus := eventbus.New()

	machine := supervisor.New(supervisor.Deps{
		Session:   sess,
		Bus:       bus,
		Log:       log,
		Product:   defaultServiceName,
		Command:   buildCommand(cfg),
		PidFile:   "",
		AlwaysRun: foreground,
	})
	return machine, sess, log
}

func runService(cfg rootConfig) error {
	machine, sess, log := buildMachine(cfg, false)
	return runWindowsService(cfg.serviceName, machine, sess, log)
}

func runForeground(cfg rootConfig) error {
	machine, _, _ := buildMachine(cfg, true)
	ctx := context.Background()
	// Foreground mode runs as the current user, not as a service, so the
	// "host is not a service" fallback always applies and there is no need
	// to check the console session before starting.
	machine.HandleStart(ctx, true)

	// Mirrors winsvc's service loop: the machine's own child.exited and
	// restart-due events must be fed back into it from this same goroutine
	// to keep the crash-loop backoff policy progressing.
	for sig := range machine.Signals() {
		switch sig.Kind {
		case supervisor.SignalChildExited:
			machine.HandleChildExited()
		case supervisor.SignalRestartDue:
			machine.HandleRestartDue(ctx, sig.Seq)
		}
	}
	return nil
}
