package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRowsPreservesOrder(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	out, err := MapRows(context.Background(), items, 8, func(_ context.Context, _ int, item int) (int, error) {
		if item%7 == 0 {
			time.Sleep(time.Millisecond)
		}
		return item * item, nil
	})
	require.NoError(t, err)
	require.Len(t, out, len(items))
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestMapRowsBoundsConcurrency(t *testing.T) {
	var running, peak int32
	items := make([]struct{}, 40)

	_, err := MapRows(context.Background(), items, 3, func(context.Context, int, struct{}) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMapRowsWrapsWorkerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := MapRows(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, _ int, item int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		return item, nil
	})

	var schedErr *ScheduleError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, 1, schedErr.Index)
	assert.ErrorIs(t, err, boom)
}

func TestMapRowsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MapRows(ctx, []int{1, 2}, 2, func(_ context.Context, _ int, item int) (int, error) {
		return item, nil
	})
	var schedErr *ScheduleError
	require.ErrorAs(t, err, &schedErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapRowsEmpty(t *testing.T) {
	out, err := MapRows(context.Background(), []string(nil), 4, func(context.Context, int, string) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}
