// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package lsp

import (
	"context"
	"sync"
	"time"
)

// ProgressPhase tags which variant a ProgressState is in (spec §4.12:
// "InProgress{title, message?, percent?} | Completed{message?} |
// Failed{reason}").
type ProgressPhase string

const (
	ProgressInProgress ProgressPhase = "in_progress"
	ProgressCompleted  ProgressPhase = "completed"
	ProgressFailed     ProgressPhase = "failed"
)

// ProgressState is the current state of one progress token.
type ProgressState struct {
	Phase ProgressPhase

	// Title and Percent are only meaningful while Phase == InProgress.
	Title   string
	Message string
	Percent *int

	// Reason is only meaningful when Phase == Failed.
	Reason string
}

func (s ProgressState) done() bool {
	return s.Phase == ProgressCompleted || s.Phase == ProgressFailed
}

// WaitOutcome is the result of WaitForCompletion.
type WaitOutcome string

const (
	WaitOK      WaitOutcome = "ok"
	WaitTimeout WaitOutcome = "timeout"
)

// ProgressTracker maps an opaque token (string or integer, stringified at
// the boundary) to its current ProgressState, and lets callers block on
// completion.
//
// # Description
//
// LSP servers report long-running work (project indexing, a rename's
// cross-file analysis) via $/progress notifications keyed by a token.
// Rename/Extract/Inline/Move/Reorder/Transform must wait for the
// project's indexing progress to reach a terminal state before issuing
// their request (spec §4.12); this type is that wait point.
//
// Because WaitForCompletion always re-reads the tracker's current map
// entry on wake rather than consuming a queued message, a subscriber that
// missed intermediate broadcasts ("lagged") recovers for free: the state
// it observes is whatever is current, never a stale buffered value.
//
// # Thread Safety
//
// Safe for concurrent use.
type ProgressTracker struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state map[string]ProgressState
}

// NewProgressTracker returns an empty tracker.
func NewProgressTracker() *ProgressTracker {
	t := &ProgressTracker{state: make(map[string]ProgressState)}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Begin records a token entering InProgress.
func (t *ProgressTracker) Begin(token, title string) {
	t.set(token, ProgressState{Phase: ProgressInProgress, Title: title})
}

// Report updates an in-progress token's message/percent without changing
// its phase.
func (t *ProgressTracker) Report(token, message string, percent *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state[token]
	s.Phase = ProgressInProgress
	s.Message = message
	s.Percent = percent
	t.state[token] = s
	t.cond.Broadcast()
}

// Complete marks token Completed and wakes every waiter.
func (t *ProgressTracker) Complete(token, message string) {
	t.set(token, ProgressState{Phase: ProgressCompleted, Message: message})
}

// Fail marks token Failed and wakes every waiter.
func (t *ProgressTracker) Fail(token, reason string) {
	t.set(token, ProgressState{Phase: ProgressFailed, Reason: reason})
}

func (t *ProgressTracker) set(token string, s ProgressState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[token] = s
	t.cond.Broadcast()
}

// State returns the current state of token and whether it is tracked at
// all.
func (t *ProgressTracker) State(token string) (ProgressState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.state[token]
	return s, ok
}

// WaitForCompletion returns immediately with WaitOK if token is already
// in a terminal state. Otherwise it blocks until an End (Completed or
// Failed) notification arrives for token, or timeout elapses, in which
// case it returns WaitTimeout. An untracked token is treated as not yet
// started and behaves like any other non-terminal state: the call blocks
// until it reaches a terminal phase or times out.
func (t *ProgressTracker) WaitForCompletion(ctx context.Context, token string, timeout time.Duration) WaitOutcome {
	deadline := time.Now().Add(timeout)

	// sync.Cond has no timeout-aware Wait, so a watcher goroutine
	// broadcasts once the deadline or ctx passes, waking any blocked
	// waiter the same way a real completion would.
	done := make(chan struct{})
	defer close(done)
	go func() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		select {
		case <-timer.C:
			t.cond.Broadcast()
		case <-ctx.Done():
			t.cond.Broadcast()
		case <-done:
		}
	}()

	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if s, ok := t.state[token]; ok && s.done() {
			return WaitOK
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return WaitTimeout
		}
		t.cond.Wait()
	}
}
