package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"tyr/internal/common"
)

const (
	// Session close, local time.
	closeHour = 16
	// Woken on the close boundary, a clock with coarse resolution could
	// still read a time before 16:00; the slack lands the wakeup strictly
	// after it.
	closeSlack = 100 * time.Millisecond
)

// pruneGoodForDayOrders sleeps until shortly after each session close and
// cancels every resting good-for-day order. It runs under the book's tomb
// until shutdown.
func (book *Orderbook) pruneGoodForDayOrders() error {
	for {
		now := book.clock.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), closeHour, 0, 0, 0, now.Location())
		if !now.Before(next) {
			// Already past today's close; wait for tomorrow's.
			next = next.AddDate(0, 0, 1)
		}

		select {
		case <-book.t.Dying():
			return nil
		case <-book.timer(next.Sub(now) + closeSlack):
		}

		// Collect ids under the lock, then cancel as a batch. Cancellation
		// re-takes the lock once for the whole batch.
		var ids []common.OrderID
		book.mu.Lock()
		for id, entry := range book.orders {
			if entry.order.Type != common.GoodForDay {
				continue
			}
			ids = append(ids, id)
		}
		book.mu.Unlock()

		if len(ids) == 0 {
			continue
		}
		book.cancelOrders(ids)
		log.Info().
			Int("orders", len(ids)).
			Msg("session close: swept good-for-day orders")
	}
}
