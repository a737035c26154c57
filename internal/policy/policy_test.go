// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package policy

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFallbackWhenNoPolicyValueSet(t *testing.T) {
	c := qt.New(t)

	// No test environment has this product's policy key populated, so
	// every lookup should fall through to the caller's default.
	c.Assert(StringOr(HelperPath, "C:\\Program Files\\GPII\\helper.exe"), qt.Equals, "C:\\Program Files\\GPII\\helper.exe")
	c.Assert(UInt64Or(MaxFailedStarts, 3), qt.Equals, uint64(3))
}
