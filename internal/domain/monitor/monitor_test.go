package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/registers/stock"
)

type fakeStock struct {
	mu    sync.Mutex
	qty   map[int64]decimal.Decimal
	fail  map[int64]error
	calls atomic.Int64
}

func (f *fakeStock) Reconcile(ctx context.Context, q stock.Query) (decimal.Decimal, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[q.ArticleID]; err != nil {
		return decimal.Zero, err
	}
	return f.qty[q.ArticleID], nil
}

func TestParseTargets(t *testing.T) {
	targets, err := ParseTargets(" 100:1 , 200:2:5,")
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, int64(100), targets[0].ArticleID)
	assert.Nil(t, targets[0].WarehouseID)
	require.NotNil(t, targets[1].WarehouseID)
	assert.Equal(t, int64(5), *targets[1].WarehouseID)
	assert.Equal(t, "200:2:5", targets[1].String())

	empty, err := ParseTargets("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"100", "1:2:3:4", "a:1", "0:1", "1:-2"} {
		_, err := ParseTargets(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunOnce(t *testing.T) {
	f := &fakeStock{
		qty:  map[int64]decimal.Decimal{100: decimal.NewFromInt(24)},
		fail: map[int64]error{200: apperror.NewUnavailable(errors.New("connection refused"))},
	}
	m := New(f, Config{Targets: []Target{{ArticleID: 100, UnitID: 1}, {ArticleID: 200, UnitID: 1}}})

	snap := m.RunOnce(context.Background())

	require.Len(t, snap.Levels, 2)
	assert.Equal(t, "24", snap.Levels[0].Quantity.String())
	assert.NoError(t, snap.Levels[0].Err)
	assert.True(t, apperror.IsUnavailable(snap.Levels[1].Err))
	assert.True(t, apperror.IsUnavailable(snap.Err))
	assert.NotEqual(t, snap.RunID.String(), m.RunOnce(context.Background()).RunID.String())
}

func TestMonitor_PublishesImmediatelyAndPeriodically(t *testing.T) {
	f := &fakeStock{qty: map[int64]decimal.Decimal{100: decimal.NewFromInt(3)}}
	m := New(f, Config{Interval: 10 * time.Millisecond, Targets: []Target{{ArticleID: 100, UnitID: 1}}})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case snap := <-m.Snapshots():
			require.NoError(t, snap.Err)
			assert.Equal(t, "3", snap.Levels[0].Quantity.String())
			seen[snap.RunID.String()] = true
		case <-deadline:
			t.Fatalf("only %d snapshots received", len(seen))
		}
	}
}

func TestMonitor_SlowConsumerGetsLatest(t *testing.T) {
	f := &fakeStock{qty: map[int64]decimal.Decimal{100: decimal.NewFromInt(1)}}
	m := New(f, Config{Interval: 5 * time.Millisecond, Targets: []Target{{ArticleID: 100, UnitID: 1}}})

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool { return f.calls.Load() >= 5 }, 2*time.Second, time.Millisecond)

	// The loop kept running without a reader; at most one snapshot is pending.
	assert.LessOrEqual(t, len(m.Snapshots()), 1)

	m.Stop()
	for range m.Snapshots() {
	}
}

func TestMonitor_Lifecycle(t *testing.T) {
	m := New(&fakeStock{}, Config{Interval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()), "double start")

	m.Stop()
	m.Stop()

	_, open := <-drain(m.Snapshots())
	assert.False(t, open)
	assert.Error(t, m.Start(context.Background()), "restart after stop")
}

func TestMonitor_StopWithoutStart(t *testing.T) {
	m := New(&fakeStock{}, Config{})
	m.Stop()
	_, open := <-m.Snapshots()
	assert.False(t, open)
}

func TestMonitor_ContextCancelEndsLoop(t *testing.T) {
	f := &fakeStock{}
	m := New(f, Config{Interval: 5 * time.Millisecond, Targets: []Target{{ArticleID: 1, UnitID: 1}}})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, m.Start(ctx))
	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

// drain discards pending snapshots and returns ch once it is empty or closed.
func drain(ch <-chan Snapshot) <-chan Snapshot {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return ch
			}
		default:
			return ch
		}
	}
}
