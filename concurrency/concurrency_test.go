package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarnessRunCompletesAllTasks(t *testing.T) {
	h := NewHarness(0)
	var count int64
	tasks := make([]func(ctx context.Context) error, 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		}
	}
	require.NoError(t, h.Run(context.Background(), tasks))
	assert.Equal(t, int64(10), count)
}

func TestHarnessRunFirstErrorWins(t *testing.T) {
	h := NewHarness(0)
	boom := errors.New("boom")
	var ran int64
	tasks := []func(ctx context.Context) error{
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			atomic.AddInt64(&ran, 1)
			return ctx.Err()
		},
	}
	err := h.Run(context.Background(), tasks)
	assert.ErrorIs(t, err, boom)
}

func TestHarnessRespectsConcurrencyBound(t *testing.T) {
	h := NewHarness(2)
	var inFlight, maxInFlight int64

	tasks := make([]func(ctx context.Context) error, 8)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				m := atomic.LoadInt64(&maxInFlight)
				if cur <= m || atomic.CompareAndSwapInt64(&maxInFlight, m, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return nil
		}
	}
	require.NoError(t, h.Run(context.Background(), tasks))
	assert.LessOrEqual(t, atomic.LoadInt64(&maxInFlight), int64(2))
}

func TestRunIndexed(t *testing.T) {
	h := NewHarness(0)
	results := make([]int, 5)
	err := h.RunIndexed(context.Background(), 5, func(ctx context.Context, i int) error {
		results[i] = i * i
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 9, 16}, results)
}

func TestSyncBridgeRunSync(t *testing.T) {
	b := NewSyncBridge()
	var ran bool
	err := b.RunSync(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestSyncBridgeSurvivesAcrossCalls(t *testing.T) {
	b1 := NewSyncBridge()
	require.NoError(t, b1.RunSync(context.Background(), func(ctx context.Context) error { return nil }))

	b2 := NewSyncBridge()
	require.NoError(t, b2.RunSync(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestSyncBridgePropagatesError(t *testing.T) {
	b := NewSyncBridge()
	boom := errors.New("boom")
	err := b.RunSync(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
