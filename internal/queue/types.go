// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package queue implements the Operation Queue: a priority queue of pending
// file operations that batches writes to the same path under one write lock
// (spec §4.2).
package queue

import (
	"time"

	"github.com/google/uuid"
)

// OperationKind is the kind of file operation being queued.
type OperationKind string

const (
	KindRead     OperationKind = "read"
	KindWrite    OperationKind = "write"
	KindDelete   OperationKind = "delete"
	KindRename   OperationKind = "rename"
	KindFormat   OperationKind = "format"
	KindRefactor OperationKind = "refactor"
)

// RequiresExclusiveLock reports whether this kind needs a write lock.
// Only KindRead is satisfied by a shared lock (spec §3 File Operation).
func (k OperationKind) RequiresExclusiveLock() bool {
	return k != KindRead
}

// DefaultPriority is used when a caller does not specify one. 0 is highest
// priority; higher numbers run later.
const DefaultPriority = 5

// FileOperation is one unit of queued work.
type FileOperation struct {
	// ID is an opaque unique identifier.
	ID string

	// Kind is the operation kind.
	Kind OperationKind

	// TargetPath is the canonical path this operation acts on.
	TargetPath string

	// Source labels the tool or component that created this operation
	// (e.g. "rename-dispatcher", "reference-updater").
	Source string

	// Payload is an opaque value interpreted by the handler dispatched to
	// (e.g. a *plan.TextEdit or a rename request).
	Payload any

	// CreatedAt is when the operation was enqueued.
	CreatedAt time.Time

	// Priority is the scheduling priority; 0 is highest, default 5.
	Priority int

	// enqueueSeq breaks ties between operations of equal priority so the
	// queue stays FIFO within a priority band. Set by the queue on push.
	enqueueSeq uint64
}

// NewFileOperation constructs an operation with a generated ID, the current
// time, and DefaultPriority.
func NewFileOperation(kind OperationKind, targetPath, source string, payload any) *FileOperation {
	return &FileOperation{
		ID:         uuid.NewString(),
		Kind:       kind,
		TargetPath: targetPath,
		Source:     source,
		Payload:    payload,
		CreatedAt:  time.Now(),
		Priority:   DefaultPriority,
	}
}

// Stats aggregates queue throughput and wait-time statistics (spec §3 Queue
// Statistics).
type Stats struct {
	Total     int64
	Pending   int64
	Completed int64
	Failed    int64

	TotalWait time.Duration
	MaxWait   time.Duration
}

// AverageWait returns TotalWait / Completed+Failed, or zero if nothing has
// finished yet.
func (s Stats) AverageWait() time.Duration {
	n := s.Completed + s.Failed
	if n == 0 {
		return 0
	}
	return s.TotalWait / time.Duration(n)
}

// Idle reports whether the queue has nothing pending and every dispatched
// operation has been accounted for (spec §3: "pending = 0 and total =
// completed + failed").
func (s Stats) Idle() bool {
	return s.Pending == 0 && s.Total == s.Completed+s.Failed
}

// Handler processes a batch of operations that share a target path under a
// single lock. Handlers are supplied by the caller (the plan executor); the
// queue itself has no opinion on what "processing" means.
type Handler func(ops []*FileOperation) error
