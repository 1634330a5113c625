package ledger_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-membership/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ConsumeOnce(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := ledger.NewMemory(ledger.MemoryConfig{Now: func() time.Time { return now }})

	ok, err := l.Consume(context.Background(), "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Consume(context.Background(), "jti-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second use must be refused")

	ok, err = l.Consume(context.Background(), "jti-2", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_ExpiredEntriesAreDropped(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := ledger.NewMemory(ledger.MemoryConfig{Now: clock, MaxKeys: 1})

	ok, err := l.Consume(context.Background(), "a", now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = l.Consume(context.Background(), "b", now.Add(time.Minute))
	require.Error(t, err, "capacity reached while entry is live")

	now = now.Add(2 * time.Minute)

	ok, err = l.Consume(context.Background(), "b", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestMemory_PastDeadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := ledger.NewMemory(ledger.MemoryConfig{Now: func() time.Time { return now }})

	ok, err := l.Consume(context.Background(), "late", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

func TestMemory_EmptyID(t *testing.T) {
	l := ledger.NewMemory(ledger.MemoryConfig{})

	_, err := l.Consume(context.Background(), "  ", time.Now().Add(time.Minute))
	assert.Error(t, err)
}

func TestMemory_ConcurrentConsumeHasOneWinner(t *testing.T) {
	l := ledger.NewMemory(ledger.MemoryConfig{})
	until := time.Now().Add(time.Hour)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := l.Consume(context.Background(), "shared", until); err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}
