package engine

import (
	"sync"
	"time"

	"github.com/tidwall/btree"
	tomb "gopkg.in/tomb.v2"

	"tyr/internal/common"
)

type sideLevels = btree.BTreeG[*priceLevel]

// orderEntry ties a live order to its carrier level and queue slot so a
// cancel is one index lookup plus a pointer unlink.
type orderEntry struct {
	order *common.Order
	node  *orderNode
	level *priceLevel
}

// Orderbook is a single-instrument price-time priority limit order book.
// All public operations serialize through one mutex; trades returned by an
// AddOrder happened entirely before the lock was released, so no caller can
// observe a mid-match book state.
type Orderbook struct {
	mu sync.Mutex

	// Price levels per side. Bids sort descending and asks ascending, so
	// Min is always the best level for its side.
	bids *sideLevels
	asks *sideLevels

	// Live orders by id, for O(1) cancellation.
	orders map[common.OrderID]*orderEntry

	clock Clock
	timer Timer
	t     tomb.Tomb
}

// New builds an empty book and starts the good-for-day reaper.
func New(opts ...Option) *Orderbook {
	book := &Orderbook{
		bids: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price > b.price
		}),
		asks: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price < b.price
		}),
		orders: make(map[common.OrderID]*orderEntry),
		clock:  systemClock{},
		timer: func(d time.Duration) <-chan time.Time {
			return time.After(d)
		},
	}

	for _, opt := range opts {
		opt(book)
	}

	book.t.Go(book.pruneGoodForDayOrders)
	return book
}

// Close signals the reaper to stop and waits for it to exit. Shutdown is
// final; the book is not restartable.
func (book *Orderbook) Close() error {
	book.t.Kill(nil)
	return book.t.Wait()
}

// AddOrder admits an order and runs the matcher. The returned trades are
// everything the submission executed. A rejected order returns nil without
// touching the book: duplicate id, a non-resting order with no crossing
// liquidity, or a fill-or-kill the book cannot satisfy in full. An admitted
// order that executes nothing also returns nil.
func (book *Orderbook) AddOrder(order *common.Order) []common.Trade {
	book.mu.Lock()
	defer book.mu.Unlock()

	return book.addOrderLocked(order)
}

func (book *Orderbook) addOrderLocked(order *common.Order) []common.Trade {
	if _, ok := book.orders[order.ID]; ok {
		return nil
	}

	if order.Type == common.Market {
		// A market order carries no limit of its own. Re-price it to the
		// worst opposing level so it crosses the entire book; with no
		// opposing liquidity there is nothing to take and it is dropped.
		worst, ok := book.opposing(order.Side).Max()
		if !ok {
			return nil
		}
		order.Price = worst.price
	}

	if !order.Type.Rests() && !book.canMatch(order.Side, order.Price) {
		return nil
	}
	if order.Type == common.FillOrKill && !book.canFullyFill(order.Side, order.Price, order.Initial) {
		return nil
	}

	levels := book.sided(order.Side)
	level, ok := levels.GetMut(&priceLevel{price: order.Price})
	if !ok {
		level = newPriceLevel(order.Price)
		levels.Set(level)
	}
	node := level.enqueue(order)
	book.orders[order.ID] = &orderEntry{order: order, node: node, level: level}

	trades := book.match()

	// A non-resting order must not survive its entry operation. The match
	// sweep covers the usual front-of-level case; this also catches a
	// market order left over once the opposing book is exhausted, and backs
	// up the sweep for any fill-and-kill that is not at the front of its level.
	if !order.Type.Rests() && !order.IsFilled() {
		book.cancelOrderLocked(order.ID)
	}
	return trades
}

// CancelOrder removes a resting order. Cancelling an unknown or already
// removed id is a no-op, so cancellation is idempotent.
func (book *Orderbook) CancelOrder(id common.OrderID) {
	book.mu.Lock()
	defer book.mu.Unlock()

	book.cancelOrderLocked(id)
}

func (book *Orderbook) cancelOrderLocked(id common.OrderID) {
	entry, ok := book.orders[id]
	if !ok {
		return
	}
	delete(book.orders, id)

	entry.level.unlink(entry.node)
	if entry.level.empty() {
		book.sided(entry.order.Side).Delete(entry.level)
	}
}

// cancelOrders cancels a batch under a single lock acquisition.
func (book *Orderbook) cancelOrders(ids []common.OrderID) {
	book.mu.Lock()
	defer book.mu.Unlock()

	for _, id := range ids {
		book.cancelOrderLocked(id)
	}
}

// ModifyOrder replaces an existing order with the supplied terms, keeping
// the original order's type. The replacement is a cancel followed by a new
// submission, so it goes to the back of its level's queue. Modifying an
// unknown id returns no trades.
func (book *Orderbook) ModifyOrder(modify common.OrderModify) []common.Trade {
	book.mu.Lock()
	defer book.mu.Unlock()

	entry, ok := book.orders[modify.ID]
	if !ok {
		return nil
	}
	orderType := entry.order.Type

	book.cancelOrderLocked(modify.ID)
	return book.addOrderLocked(modify.ToOrder(orderType))
}

// Size reports the number of resting orders across both sides.
func (book *Orderbook) Size() int {
	book.mu.Lock()
	defer book.mu.Unlock()

	return len(book.orders)
}

func (book *Orderbook) sided(side common.Side) *sideLevels {
	if side == common.Buy {
		return book.bids
	}
	return book.asks
}

func (book *Orderbook) opposing(side common.Side) *sideLevels {
	return book.sided(side.Opposite())
}

// canMatch reports whether an order at price would execute at least one fill
// against the opposing best level.
func (book *Orderbook) canMatch(side common.Side, price common.Price) bool {
	if side == common.Buy {
		best, ok := book.asks.Min()
		return ok && price >= best.price
	}
	best, ok := book.bids.Min()
	return ok && price <= best.price
}

// canFullyFill reports whether the opposing book holds enough quantity
// within the taker's limit to satisfy the order completely. The walk covers
// exactly the levels the matcher would consume, from the opposing best
// toward the limit, using the per-level aggregates.
func (book *Orderbook) canFullyFill(side common.Side, price common.Price, quantity common.Quantity) bool {
	if !book.canMatch(side, price) {
		return false
	}

	remaining := quantity
	book.opposing(side).Scan(func(level *priceLevel) bool {
		if side == common.Buy && level.price > price {
			return false
		}
		if side == common.Sell && level.price < price {
			return false
		}
		if level.quantity >= remaining {
			remaining = 0
			return false
		}
		remaining -= level.quantity
		return true
	})
	return remaining == 0
}

// match consumes the top-of-book levels while they cross, filling resting
// orders in time priority and emitting one trade per fill. Each trade leg
// records its order's resting price, so the aggressing leg shows any price
// improvement. Filled orders and emptied levels are evicted as they occur.
func (book *Orderbook) match() []common.Trade {
	var trades []common.Trade

	for {
		bestBid, bidOk := book.bids.MinMut()
		bestAsk, askOk := book.asks.MinMut()

		// If either side is empty, or prices don't cross, we are done.
		if !bidOk || !askOk || bestBid.price < bestAsk.price {
			break
		}

		for !bestBid.empty() && !bestAsk.empty() {
			bid := bestBid.front().order
			ask := bestAsk.front().order

			quantity := min(bid.Remaining, ask.Remaining)
			bid.Fill(quantity)
			ask.Fill(quantity)
			bestBid.reduce(quantity)
			bestAsk.reduce(quantity)

			trades = append(trades, common.Trade{
				Bid: common.TradeLeg{OrderID: bid.ID, Price: bid.Price, Quantity: quantity},
				Ask: common.TradeLeg{OrderID: ask.ID, Price: ask.Price, Quantity: quantity},
			})

			if bid.IsFilled() {
				bestBid.unlink(bestBid.front())
				delete(book.orders, bid.ID)
			}
			if ask.IsFilled() {
				bestAsk.unlink(bestAsk.front())
				delete(book.orders, ask.ID)
			}
		}

		if bestBid.empty() {
			book.bids.Delete(bestBid)
		}
		if bestAsk.empty() {
			book.asks.Delete(bestAsk)
		}

		// A fill-and-kill taker left at the front of a best level has
		// finished its intersecting pair; cancel the remainder before
		// looking for the next cross. Only the most recently queued taker
		// can be in this position. Market orders are exempt: they cross
		// every opposing level and are cleaned up after the loop.
		book.sweepFillAndKill()
	}

	return trades
}

func (book *Orderbook) sweepFillAndKill() {
	if best, ok := book.bids.MinMut(); ok {
		if front := best.front(); front != nil && front.order.Type == common.FillAndKill {
			book.cancelOrderLocked(front.order.ID)
		}
	}
	if best, ok := book.asks.MinMut(); ok {
		if front := best.front(); front != nil && front.order.Type == common.FillAndKill {
			book.cancelOrderLocked(front.order.ID)
		}
	}
}
