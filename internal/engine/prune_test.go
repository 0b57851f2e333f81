package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyr/internal/common"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPrune_SweepsGoodForDayAtClose(t *testing.T) {
	clock := &fakeClock{
		now: time.Date(2026, time.March, 13, 15, 59, 59, 0, time.Local),
	}
	fire := make(chan time.Time)
	waits := make(chan time.Duration, 8)

	book := New(
		WithClock(clock),
		WithTimer(func(d time.Duration) <-chan time.Time {
			waits <- d
			return fire
		}),
	)
	t.Cleanup(func() {
		assert.NoError(t, book.Close())
	})

	assert.Empty(t, book.AddOrder(common.NewOrder(common.GoodForDay, 1, common.Buy, 100, 10)))
	assert.Empty(t, book.AddOrder(gtc(2, common.Buy, 99, 5)))
	assert.Equal(t, 2, book.Size())

	// One second to the close, plus the slack that puts the wakeup
	// strictly after it.
	require.Equal(t, time.Second+closeSlack, <-waits)

	clock.Advance(2 * time.Second)
	fire <- clock.Now()

	assert.Eventually(t, func() bool {
		return book.Size() == 1
	}, time.Second, 5*time.Millisecond, "good-for-day order not swept")

	// The good-till-cancel order survives the sweep.
	assert.Equal(t, Depth{Bids: []Level{{99, 5}}, Asks: []Level{}}, book.Depth())
	audit(t, book)

	// The reaper arms for tomorrow's close.
	require.Equal(t, 24*time.Hour-time.Second+closeSlack, <-waits)
}

func TestPrune_AfterCloseWaitsForTomorrow(t *testing.T) {
	clock := &fakeClock{
		now: time.Date(2026, time.March, 13, 16, 30, 0, 0, time.Local),
	}
	waits := make(chan time.Duration, 1)

	book := New(
		WithClock(clock),
		WithTimer(func(d time.Duration) <-chan time.Time {
			waits <- d
			return nil
		}),
	)
	t.Cleanup(func() {
		assert.NoError(t, book.Close())
	})

	require.Equal(t, 23*time.Hour+30*time.Minute+closeSlack, <-waits)
}

func TestClose_JoinsReaper(t *testing.T) {
	book := New(WithTimer(func(time.Duration) <-chan time.Time {
		return nil
	}))

	done := make(chan error, 1)
	go func() {
		done <- book.Close()
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not join the reaper")
	}
}
