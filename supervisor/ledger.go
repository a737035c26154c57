// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import (
	"time"

	"github.com/gpii-project/gpii-service/internal/policy"
)

// MinHealthyRuntime is how long a child must run before exiting for the
// crash to be considered a fair chance rather than a tight crash loop: a
// subsequent crash resets the failure count instead of compounding it.
const MinHealthyRuntime = 20 * time.Second

// MaxFailedStarts caps consecutive short-lived crashes before the
// supervisor gives up rather than retrying forever.
const MaxFailedStarts = 3

// RestartLedger tracks consecutive short-lived-crash counts and the most
// recent start time, the state the supervisor's crash-loop transitions
// read and mutate.
type RestartLedger struct {
	ConsecutiveFailures int
	LastStart           time.Time
}

// RecordStart notes that a spawn attempt is beginning now.
func (l *RestartLedger) RecordStart(now time.Time) {
	l.LastStart = now
}

// Outcome is what the ledger decides should happen after a crash.
type Outcome struct {
	// NextState is Backoff or GivingUp.
	NextState State
	// BackoffAttempt is the n to use in the n*10s+1s formula; meaningless
	// when NextState is GivingUp.
	BackoffAttempt int
}

// RecordCrash decides the next state after a child exits while Running: if
// the child survived at least MinHealthyRuntime, the failure streak resets
// to 0 and a single Backoff(1) follows; otherwise the streak increments,
// and once it exceeds MaxFailedStarts the ledger reports GivingUp instead
// of another backoff.
func (l *RestartLedger) RecordCrash(now time.Time) Outcome {
	if !l.LastStart.IsZero() && now.Sub(l.LastStart) >= MinHealthyRuntime {
		l.ConsecutiveFailures = 0
		return Outcome{NextState: Backoff, BackoffAttempt: 1}
	}

	l.ConsecutiveFailures++
	if l.ConsecutiveFailures > maxFailedStarts() {
		return Outcome{NextState: GivingUp}
	}
	return Outcome{NextState: Backoff, BackoffAttempt: l.ConsecutiveFailures}
}

// maxFailedStarts lets an administrator-configured policy value override
// the compiled-in default (the CLI/policy layer's MaxFailedStarts key, not
// a per-install flag, so this reads straight from the policy package
// rather than through Deps).
func maxFailedStarts() int {
	return int(policy.UInt64Or(policy.MaxFailedStarts, uint64(MaxFailedStarts)))
}

// BackoffDelay implements the supervisor's Backoff(n) schedule: n*10s+1s.
func BackoffDelay(attempt int) time.Duration {
	return time.Duration(attempt)*10*time.Second + time.Second
}
