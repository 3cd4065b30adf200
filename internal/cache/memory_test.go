package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	ok, err := l.Acquire(ctx, "booking:1:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "booking:1:2", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "booking:1:2"))
	ok, _ = l.Acquire(ctx, "booking:1:2", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLockerExpires(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	ok, _ := l.Acquire(ctx, "k", time.Millisecond)
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.True(t, ok)
}
