// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestRestartLedgerCrashLoopGivesUp(t *testing.T) {
	c := qt.New(t)
	var l RestartLedger
	base := time.Unix(0, 0)

	l.RecordStart(base)
	o := l.RecordCrash(base.Add(time.Second)) // short-lived crash, attempt 1
	c.Assert(o.NextState, qt.Equals, Backoff)
	c.Assert(o.BackoffAttempt, qt.Equals, 1)

	l.RecordStart(base.Add(2 * time.Second))
	o = l.RecordCrash(base.Add(3 * time.Second)) // attempt 2
	c.Assert(o.NextState, qt.Equals, Backoff)
	c.Assert(o.BackoffAttempt, qt.Equals, 2)

	l.RecordStart(base.Add(4 * time.Second))
	o = l.RecordCrash(base.Add(5 * time.Second)) // attempt 3
	c.Assert(o.NextState, qt.Equals, Backoff)
	c.Assert(o.BackoffAttempt, qt.Equals, 3)

	l.RecordStart(base.Add(6 * time.Second))
	o = l.RecordCrash(base.Add(7 * time.Second)) // attempt 4 > MaxFailedStarts
	c.Assert(o.NextState, qt.Equals, GivingUp)
}

func TestRestartLedgerHealthyRuntimeResets(t *testing.T) {
	c := qt.New(t)
	var l RestartLedger
	base := time.Unix(0, 0)

	l.RecordStart(base)
	l.RecordCrash(base.Add(time.Second))
	l.RecordStart(base.Add(2 * time.Second))
	l.RecordCrash(base.Add(3 * time.Second))
	c.Assert(l.ConsecutiveFailures, qt.Equals, 2)

	l.RecordStart(base.Add(10 * time.Second))
	o := l.RecordCrash(base.Add(10*time.Second + MinHealthyRuntime))
	c.Assert(o.NextState, qt.Equals, Backoff)
	c.Assert(o.BackoffAttempt, qt.Equals, 1)
	c.Assert(l.ConsecutiveFailures, qt.Equals, 0)
}

func TestBackoffDelayFormula(t *testing.T) {
	c := qt.New(t)
	c.Assert(BackoffDelay(1), qt.Equals, 11*time.Second)
	c.Assert(BackoffDelay(3), qt.Equals, 31*time.Second)
}
