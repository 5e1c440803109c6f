package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFiresOnce(t *testing.T) {
	t.Parallel()

	s := NewResponseWindow(10 * time.Millisecond)
	var fired atomic.Int64
	done := make(chan struct{})

	s.Schedule(42, func(orderID int64) {
		assert.Equal(t, int64(42), orderID)
		fired.Add(1)
		close(done)
	})
	assert.True(t, s.Active(42))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("window never fired")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), fired.Load())
	assert.False(t, s.Active(42))
}

func TestCancelPreventsFire(t *testing.T) {
	t.Parallel()

	s := NewResponseWindow(30 * time.Millisecond)
	var fired atomic.Int64

	s.Schedule(7, func(int64) { fired.Add(1) })
	require.True(t, s.Cancel(7))
	assert.False(t, s.Active(7))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(0), fired.Load())

	// cancelling again is a no-op
	assert.False(t, s.Cancel(7))
}

func TestRescheduleReplacesPriorTimer(t *testing.T) {
	t.Parallel()

	s := NewResponseWindow(20 * time.Millisecond)
	var fired atomic.Int64

	s.Schedule(9, func(int64) { fired.Add(1) })
	s.Schedule(9, func(int64) { fired.Add(1) })

	time.Sleep(80 * time.Millisecond)
	// Exactly one timer may be live per order; the replacement fires alone.
	assert.Equal(t, int64(1), fired.Load())
}

func TestCancelRacesWithFire(t *testing.T) {
	t.Parallel()

	// Hammer the schedule/cancel race: the callback must run at most once per
	// round, and never after a Cancel that returned true before the fire.
	for i := 0; i < 50; i++ {
		s := NewResponseWindow(time.Millisecond)
		var fired atomic.Int64
		var wg sync.WaitGroup

		s.Schedule(1, func(int64) { fired.Add(1) })
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Cancel(1)
		}()
		wg.Wait()

		time.Sleep(5 * time.Millisecond)
		assert.LessOrEqual(t, fired.Load(), int64(1))
	}
}

func TestStaleCallbackCannotClaimReplacementTimer(t *testing.T) {
	t.Parallel()

	// A callback whose timer was replaced right as it fired must not consume
	// the replacement's entry: whatever the interleaving, the replacement
	// window stays live for its full duration.
	for i := 0; i < 50; i++ {
		s := NewResponseWindow(time.Hour)
		var replacementFired atomic.Int64

		s.ScheduleAfter(1, time.Microsecond, func(int64) {})
		s.ScheduleAfter(1, 50*time.Millisecond, func(int64) { replacementFired.Add(1) })

		// Give a stale first callback time to run and lose the identity check.
		time.Sleep(5 * time.Millisecond)
		assert.True(t, s.Active(1), "replacement window was consumed by a stale callback")
		assert.Equal(t, int64(0), replacementFired.Load())
		s.Cancel(1)
	}
}

type fakeLister struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeLister) ListPendingPastDeadline(time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.ids...), nil
}

func TestSweeperRecoversOverdueOrders(t *testing.T) {
	t.Parallel()

	windows := NewResponseWindow(time.Hour)
	lister := &fakeLister{ids: []int64{3, 4}}

	// Order 4 still has a live in-process timer and must be skipped.
	windows.Schedule(4, func(int64) {})

	var mu sync.Mutex
	expired := map[int64]int{}
	sweeper := NewSweeper(lister, windows, 10*time.Millisecond, func(orderID int64) {
		mu.Lock()
		expired[orderID]++
		mu.Unlock()
	})

	sweeper.Start()
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return expired[3] >= 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, expired[4])
}
