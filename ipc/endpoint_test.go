// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/gpii-project/gpii-service/ipc"
)

func TestGenerateEndpointNameInvariants(t *testing.T) {
	c := qt.New(t)

	const n = 300
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		name, err := ipc.GenerateEndpointName("gpii-service")
		c.Assert(err, qt.IsNil)

		c.Assert(strings.HasPrefix(name, ipc.PipeNamePrefix), qt.IsTrue,
			qt.Commentf("name %q must begin with %q", name, ipc.PipeNamePrefix))
		c.Assert(len(name), qt.Not(qt.Equals), 0)
		c.Assert(len(name) <= 256, qt.IsTrue)

		body := strings.TrimPrefix(name, ipc.PipeNamePrefix)
		c.Assert(len(body) >= 1, qt.IsTrue)
		c.Assert(strings.ContainsAny(body, `/\`), qt.IsFalse,
			qt.Commentf("body %q must not contain a slash or backslash", body))

		c.Assert(seen[name], qt.IsFalse, qt.Commentf("duplicate name %q at iteration %d", name, i))
		seen[name] = true
	}
	c.Assert(len(seen), qt.Equals, n)
}
