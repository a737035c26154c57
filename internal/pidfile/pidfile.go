// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package pidfile implements the read side of the child pid file: the
// service never writes this file — the helper process itself does, once
// it has finished starting up — so absence simply means "no managed
// child has announced itself yet", not an error.
package pidfile

import (
	"os"
	"strconv"
	"strings"
)

// Read returns the pid recorded in path, or ok=false if the file does not
// exist or does not contain a parseable pid. A malformed file is treated
// the same as an absent one: the supervisor must never fail a state
// transition because of a pid file it does not control the contents of.
func Read(path string) (pid int, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
