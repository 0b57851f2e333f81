package engine

import "time"

// Clock supplies the engine's view of local wall-clock time. The book never
// reads the OS clock directly, so tests can drive session-close behavior
// with a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Timer returns a channel that fires once after d. It stands in for the
// reaper's timed wait so tests can wake the reaper on demand.
type Timer func(d time.Duration) <-chan time.Time

// Option configures an Orderbook at construction.
type Option func(*Orderbook)

// WithClock substitutes the wall-clock source used by the day-order reaper.
func WithClock(clock Clock) Option {
	return func(book *Orderbook) {
		book.clock = clock
	}
}

// WithTimer substitutes the reaper's timed wait.
func WithTimer(timer Timer) Option {
	return func(book *Orderbook) {
		book.timer = timer
	}
}
