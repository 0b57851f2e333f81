package engine

import "tyr/internal/common"

// Level is one aggregated depth entry: a price and the total remaining
// quantity resting at it.
type Level struct {
	Price    common.Price
	Quantity common.Quantity
}

// Depth is a point-in-time aggregated view of both sides of the book, best
// price first on each side.
type Depth struct {
	Bids []Level
	Asks []Level
}

// Depth snapshots the aggregated book. The snapshot is consistent: it is
// taken under the same lock that serializes mutations.
func (book *Orderbook) Depth() Depth {
	book.mu.Lock()
	defer book.mu.Unlock()

	flatten := func(levels *sideLevels) []Level {
		out := make([]Level, 0, levels.Len())
		levels.Scan(func(level *priceLevel) bool {
			out = append(out, Level{Price: level.price, Quantity: level.quantity})
			return true
		})
		return out
	}

	return Depth{
		Bids: flatten(book.bids),
		Asks: flatten(book.asks),
	}
}
