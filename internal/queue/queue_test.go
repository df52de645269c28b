package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/oplock"
)

func TestQueue_PriorityOrder(t *testing.T) {
	q := New(oplock.NewManager())

	low := NewFileOperation(KindWrite, "/p/a.go", "test", nil)
	low.Priority = 9
	high := NewFileOperation(KindWrite, "/p/b.go", "test", nil)
	high.Priority = 0
	mid := NewFileOperation(KindWrite, "/p/c.go", "test", nil)
	mid.Priority = 5

	require.NoError(t, q.Enqueue(low))
	require.NoError(t, q.Enqueue(high))
	require.NoError(t, q.Enqueue(mid))

	var order []string
	for q.Len() > 0 {
		op := q.dequeueOne()
		order = append(order, op.TargetPath)
	}

	assert.Equal(t, []string{"/p/b.go", "/p/c.go", "/p/a.go"}, order)
}

func TestQueue_EqualPriorityIsFIFO(t *testing.T) {
	q := New(oplock.NewManager())

	a := NewFileOperation(KindWrite, "/p/a.go", "test", nil)
	b := NewFileOperation(KindWrite, "/p/b.go", "test", nil)
	c := NewFileOperation(KindWrite, "/p/c.go", "test", nil)

	require.NoError(t, q.Enqueue(a))
	require.NoError(t, q.Enqueue(b))
	require.NoError(t, q.Enqueue(c))

	assert.Equal(t, "/p/a.go", q.dequeueOne().TargetPath)
	assert.Equal(t, "/p/b.go", q.dequeueOne().TargetPath)
	assert.Equal(t, "/p/c.go", q.dequeueOne().TargetPath)
}

func TestQueue_OverflowFails(t *testing.T) {
	q := New(oplock.NewManager(), WithMaxSize(2))

	require.NoError(t, q.Enqueue(NewFileOperation(KindWrite, "/p/a.go", "t", nil)))
	require.NoError(t, q.Enqueue(NewFileOperation(KindWrite, "/p/b.go", "t", nil)))

	err := q.Enqueue(NewFileOperation(KindWrite, "/p/c.go", "t", nil))
	require.Error(t, err)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_CancelOperation(t *testing.T) {
	q := New(oplock.NewManager())
	op := NewFileOperation(KindWrite, "/p/a.go", "t", nil)
	require.NoError(t, q.Enqueue(op))

	assert.True(t, q.CancelOperation(op.ID))
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.CancelOperation(op.ID), "cancelling twice should report not-found")
}

func TestQueue_Clear(t *testing.T) {
	q := New(oplock.NewManager())
	require.NoError(t, q.Enqueue(NewFileOperation(KindWrite, "/p/a.go", "t", nil)))
	require.NoError(t, q.Enqueue(NewFileOperation(KindWrite, "/p/b.go", "t", nil)))

	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.True(t, q.Stats().Idle())
}

func TestQueue_BatchesSamePathWrites(t *testing.T) {
	q := New(oplock.NewManager())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var batches [][]string

	handlerDone := make(chan struct{}, 1)
	handler := func(ops []*FileOperation) error {
		var paths []string
		for _, op := range ops {
			paths = append(paths, op.ID)
		}
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		select {
		case handlerDone <- struct{}{}:
		default:
		}
		return nil
	}

	go q.Run(ctx, handler)

	a := NewFileOperation(KindWrite, "/p/hot.go", "t", nil)
	b := NewFileOperation(KindWrite, "/p/hot.go", "t", nil)
	require.NoError(t, q.Enqueue(a))
	require.NoError(t, q.Enqueue(b))

	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, batches[0])
}

func TestQueue_DropsStaleOperations(t *testing.T) {
	q := New(oplock.NewManager(), WithOperationTimeout(time.Millisecond))
	op := NewFileOperation(KindWrite, "/p/a.go", "t", nil)
	op.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, q.Enqueue(op))

	called := false
	q.dispatch(context.Background(), q.dequeueOne(), func(ops []*FileOperation) error {
		called = true
		return nil
	})

	assert.False(t, called, "stale operation must be dropped without dispatch")
	assert.Equal(t, int64(1), q.Stats().Failed)
}

func TestTransaction_CommitEnqueuesInOrder(t *testing.T) {
	q := New(oplock.NewManager())
	txn := q.NewTransaction()
	txn.Add(NewFileOperation(KindWrite, "/p/a.go", "t", nil))
	txn.Add(NewFileOperation(KindWrite, "/p/b.go", "t", nil))

	submitted, err := txn.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)
	assert.Equal(t, 2, q.Len())
}

func TestTransaction_PartialCommitLeavesPriorOpsEnqueued(t *testing.T) {
	q := New(oplock.NewManager(), WithMaxSize(1))
	txn := q.NewTransaction()
	txn.Add(NewFileOperation(KindWrite, "/p/a.go", "t", nil))
	txn.Add(NewFileOperation(KindWrite, "/p/b.go", "t", nil))

	submitted, err := txn.Commit()
	require.Error(t, err)
	assert.Equal(t, 1, submitted)
	assert.Equal(t, 1, q.Len())
}
