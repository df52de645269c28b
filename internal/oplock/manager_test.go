package oplock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ExclusiveExcludesSecondWriter(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	wh, err := m.Lock(ctx, "/p/a.go")
	require.NoError(t, err)

	_, ok := m.TryLock("/p/a.go")
	assert.False(t, ok, "a second exclusive lock on the same path must not succeed")

	wh.Release()

	wh2, ok := m.TryLock("/p/a.go")
	require.True(t, ok)
	wh2.Release()
}

func TestManager_ReadersShareLock(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	r1, err := m.RLock(ctx, "/p/b.go")
	require.NoError(t, err)
	r2, err := m.RLock(ctx, "/p/b.go")
	require.NoError(t, err)

	r1.Release()
	r2.Release()

	assert.Equal(t, 0, m.ActiveLocks())
}

func TestManager_UnrelatedPathsDoNotBlock(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	h1, err := m.Lock(ctx, "/p/a.go")
	require.NoError(t, err)
	defer h1.Release()

	done := make(chan struct{})
	go func() {
		h2, err := m.Lock(ctx, "/p/other.go")
		require.NoError(t, err)
		h2.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on unrelated path should not block")
	}
}

func TestManager_EntryPrunedAfterRelease(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	h, err := m.Lock(ctx, "/p/a.go")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ActiveLocks())

	h.Release()
	assert.Equal(t, 0, m.ActiveLocks())
}

func TestManager_ConcurrentWritersSerialize(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.Lock(ctx, "/p/hot.go")
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			h.Release()
		}(i)
	}
	wg.Wait()

	assert.Len(t, order, 20)
	assert.Equal(t, 0, m.ActiveLocks())
}
