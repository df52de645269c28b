// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package queue

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polyglot-tools/refactorcore/internal/oplock"
)

// DefaultMaxSize is the default capacity before Enqueue fails with a
// runtime error (spec §4.2).
const DefaultMaxSize = 1000

// DefaultOperationTimeout is how old a dequeued operation can be before it
// is dropped without dispatch (spec §5).
const DefaultOperationTimeout = 5 * time.Minute

// opHeap is a min-heap ordered by (Priority asc, enqueueSeq asc), giving a
// stable priority queue: lower Priority value runs first, and among equal
// priorities, earlier-enqueued operations run first. Modelled on the
// container/heap idiom the precompute hot-path tracker in the reference
// corpus uses for its own min/max heap.
type opHeap []*FileOperation

func (h opHeap) Len() int { return len(h) }
func (h opHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].enqueueSeq < h[j].enqueueSeq
}
func (h opHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *opHeap) Push(x any)   { *h = append(*h, x.(*FileOperation)) }
func (h *opHeap) Pop() any {
	old := *h
	n := len(old)
	op := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return op
}

// Queue is the single-process priority queue of pending file operations.
//
// # Description
//
// Enqueue/Dequeue/Cancel/Clear mutate a container/heap min-heap under a
// single mutex. A background Run loop dequeues, sweeps for same-path
// batches, and dispatches them to the supplied Handler under a write lock
// from the shared oplock.Manager.
//
// # Thread Safety
//
// Safe for concurrent use.
type Queue struct {
	maxSize          int
	operationTimeout time.Duration
	locks            *oplock.Manager

	mu       sync.Mutex
	heap     opHeap
	byID     map[string]*FileOperation
	nextSeq  uint64
	notifyCh chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int) Option {
	return func(q *Queue) { q.maxSize = n }
}

// WithOperationTimeout overrides DefaultOperationTimeout.
func WithOperationTimeout(d time.Duration) Option {
	return func(q *Queue) { q.operationTimeout = d }
}

// New creates a Queue backed by locks for per-path serialisation.
func New(locks *oplock.Manager, opts ...Option) *Queue {
	q := &Queue{
		maxSize:          DefaultMaxSize,
		operationTimeout: DefaultOperationTimeout,
		locks:            locks,
		byID:             make(map[string]*FileOperation),
		notifyCh:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	heap.Init(&q.heap)
	return q
}

// Enqueue inserts op into the queue, failing if the queue is at capacity.
//
// # Outputs
//
//   - error: non-nil (and op not enqueued) if the queue is at maxSize.
//     Overflow is a rare error to surface to the caller, not to retry
//     automatically (spec §4.2, §5).
func (q *Queue) Enqueue(op *FileOperation) error {
	q.mu.Lock()
	if len(q.heap) >= q.maxSize {
		q.mu.Unlock()
		return fmt.Errorf("queue at capacity (%d): refusing to enqueue %s", q.maxSize, op.ID)
	}

	q.nextSeq++
	op.enqueueSeq = q.nextSeq
	heap.Push(&q.heap, op)
	q.byID[op.ID] = op
	q.mu.Unlock()

	q.statsMu.Lock()
	q.stats.Total++
	q.stats.Pending++
	pending := q.stats.Pending
	q.statsMu.Unlock()
	queueDepth.Set(float64(pending))

	q.notify()
	return nil
}

// notify wakes one blocked Run iteration, if any; non-blocking.
func (q *Queue) notify() {
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}

// dequeueOne pops the highest-priority operation, or returns nil if empty.
// Must be called without q.mu held.
func (q *Queue) dequeueOne() *FileOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil
	}
	op := heap.Pop(&q.heap).(*FileOperation)
	delete(q.byID, op.ID)
	return op
}

// sweepBatch removes every pending operation whose TargetPath equals path,
// in their current queue order, and returns them. Implements the batching
// rule from spec §4.2: writes to a hot path are coalesced under one lock.
func (q *Queue) sweepBatch(path string) []*FileOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var batch []*FileOperation
	var remaining opHeap
	for _, op := range q.heap {
		if op.TargetPath == path {
			batch = append(batch, op)
			delete(q.byID, op.ID)
		} else {
			remaining = append(remaining, op)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	q.heap = remaining
	heap.Init(&q.heap)

	// Preserve original enqueue order within the batch (heap order is not
	// insertion order once multiple priorities are mixed in).
	for i := 1; i < len(batch); i++ {
		for j := i; j > 0 && batch[j].enqueueSeq < batch[j-1].enqueueSeq; j-- {
			batch[j], batch[j-1] = batch[j-1], batch[j]
		}
	}
	return batch
}

// CancelOperation removes a pending operation by ID. In-flight work (already
// dequeued) is not interrupted.
func (q *Queue) CancelOperation(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.byID[id]
	if !ok {
		return false
	}
	delete(q.byID, id)

	for i, candidate := range q.heap {
		if candidate == op {
			heap.Remove(&q.heap, i)
			break
		}
	}

	q.statsMu.Lock()
	q.stats.Pending--
	q.statsMu.Unlock()

	return true
}

// Clear empties the queue. In-flight work is unaffected.
func (q *Queue) Clear() {
	q.mu.Lock()
	n := len(q.heap)
	q.heap = nil
	q.byID = make(map[string]*FileOperation)
	q.mu.Unlock()

	heap.Init(&q.heap)

	q.statsMu.Lock()
	q.stats.Pending -= int64(n)
	q.stats.Total -= int64(n)
	q.statsMu.Unlock()
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Stats returns a snapshot of current statistics.
func (q *Queue) Stats() Stats {
	q.statsMu.Lock()
	defer q.statsMu.Unlock()
	return q.stats
}

// recordOutcome updates completion statistics under the stats lock. wait is
// the time between enqueue and dispatch.
func (q *Queue) recordOutcome(kind OperationKind, wait time.Duration, succeeded bool) {
	q.statsMu.Lock()
	q.stats.Pending--
	if succeeded {
		q.stats.Completed++
	} else {
		q.stats.Failed++
	}
	q.stats.TotalWait += wait
	if wait > q.stats.MaxWait {
		q.stats.MaxWait = wait
	}
	pending := q.stats.Pending
	q.statsMu.Unlock()

	recordMetrics(kind, wait, succeeded, pending)
}

// Run is the cooperative processor loop: it waits for a notification, pops
// the next operation, sweeps for a same-path batch, drops stale entries,
// acquires the appropriate lock, and dispatches to handler. Run blocks until
// ctx is cancelled.
//
// # Description
//
// Only one Run loop should be active per Queue; callers that want
// concurrent dispatch across distinct paths should run independent Queue
// instances or rely on the fact that unrelated paths never contend for the
// same lock, not on multiple Run loops racing the same heap.
func (q *Queue) Run(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.notifyCh:
		}

		for {
			op := q.dequeueOne()
			if op == nil {
				break
			}
			q.dispatch(ctx, op, handler)
		}
	}
}

// dispatch handles one dequeued operation (plus any same-path batch),
// including staleness dropping and lock acquisition.
func (q *Queue) dispatch(ctx context.Context, op *FileOperation, handler Handler) {
	wait := time.Since(op.CreatedAt)

	if wait > q.operationTimeout {
		slog.Warn("dropping stale queued operation",
			"id", op.ID, "path", op.TargetPath, "age", wait)
		q.recordOutcome(op.Kind, wait, false)
		return
	}

	batch := []*FileOperation{op}
	if op.Kind != KindRead {
		batch = append(batch, q.sweepBatch(op.TargetPath)...)
	}

	var handle *oplockHandle
	var err error
	if op.Kind.RequiresExclusiveLock() {
		handle, err = q.lockExclusive(ctx, op.TargetPath)
	} else {
		handle, err = q.lockShared(ctx, op.TargetPath)
	}
	if err != nil {
		slog.Warn("failed to acquire lock for queued operation", "path", op.TargetPath, "error", err)
		for _, o := range batch {
			q.recordOutcome(o.Kind, time.Since(o.CreatedAt), false)
		}
		return
	}
	defer handle.Release()

	succeeded := handler(batch) == nil
	for _, o := range batch {
		q.recordOutcome(o.Kind, time.Since(o.CreatedAt), succeeded)
	}
}

// oplockHandle abstracts over oplock.Handle so this package does not need
// to special-case nil locks in tests that construct a Queue without one.
type oplockHandle struct{ h *oplock.Handle }

func (h *oplockHandle) Release() {
	if h.h != nil {
		h.h.Release()
	}
}

func (q *Queue) lockExclusive(ctx context.Context, path string) (*oplockHandle, error) {
	if q.locks == nil {
		return &oplockHandle{}, nil
	}
	h, err := q.locks.Lock(ctx, path)
	if err != nil {
		return nil, err
	}
	return &oplockHandle{h: h}, nil
}

func (q *Queue) lockShared(ctx context.Context, path string) (*oplockHandle, error) {
	if q.locks == nil {
		return &oplockHandle{}, nil
	}
	h, err := q.locks.RLock(ctx, path)
	if err != nil {
		return nil, err
	}
	return &oplockHandle{h: h}, nil
}
