// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package queue

// Transaction buffers operations and submits them to a Queue atomically at
// Commit (spec §4.2).
//
// # Description
//
// "Atomically" here means the caller observes one Commit call rather than N
// Enqueue calls; it does not mean all-or-nothing. If the queue overflows
// partway through, operations already enqueued before the failure stay
// enqueued — callers should treat overflow as a rare error to surface, not
// something to roll back (spec explicitly allows this).
type Transaction struct {
	queue *Queue
	ops   []*FileOperation
}

// NewTransaction returns an empty transaction bound to q.
func (q *Queue) NewTransaction() *Transaction {
	return &Transaction{queue: q}
}

// Add buffers op for submission at Commit. Does not touch the queue yet.
func (t *Transaction) Add(op *FileOperation) {
	t.ops = append(t.ops, op)
}

// Len returns the number of buffered operations.
func (t *Transaction) Len() int {
	return len(t.ops)
}

// Commit submits every buffered operation to the queue in order. If
// enqueueing op i fails (queue overflow), ops [0, i) remain enqueued and
// Commit returns the error naming how many succeeded.
func (t *Transaction) Commit() (submitted int, err error) {
	for _, op := range t.ops {
		if err := t.queue.Enqueue(op); err != nil {
			return submitted, err
		}
		submitted++
	}
	return submitted, nil
}
