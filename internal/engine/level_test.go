package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tyr/internal/common"
)

func levelOrders(level *priceLevel) []common.OrderID {
	var ids []common.OrderID
	for node := level.front(); node != nil; node = node.next {
		ids = append(ids, node.order.ID)
	}
	return ids
}

func TestPriceLevel_FIFO(t *testing.T) {
	level := newPriceLevel(100)

	level.enqueue(gtc(1, common.Buy, 100, 10))
	level.enqueue(gtc(2, common.Buy, 100, 20))
	level.enqueue(gtc(3, common.Buy, 100, 30))

	assert.Equal(t, []common.OrderID{1, 2, 3}, levelOrders(level))
	assert.Equal(t, 3, level.count)
	assert.Equal(t, common.Quantity(60), level.quantity)
}

func TestPriceLevel_UnlinkMiddleKeepsSiblingHandles(t *testing.T) {
	level := newPriceLevel(100)

	first := level.enqueue(gtc(1, common.Buy, 100, 10))
	second := level.enqueue(gtc(2, common.Buy, 100, 20))
	third := level.enqueue(gtc(3, common.Buy, 100, 30))

	level.unlink(second)

	assert.Equal(t, []common.OrderID{1, 3}, levelOrders(level))
	assert.Equal(t, 2, level.count)
	assert.Equal(t, common.Quantity(40), level.quantity)

	// Sibling handles still unlink cleanly after the middle removal.
	level.unlink(first)
	level.unlink(third)
	assert.True(t, level.empty())
	assert.Equal(t, 0, level.count)
	assert.Equal(t, common.Quantity(0), level.quantity)
}

func TestPriceLevel_UnlinkEnds(t *testing.T) {
	level := newPriceLevel(100)

	head := level.enqueue(gtc(1, common.Buy, 100, 10))
	level.enqueue(gtc(2, common.Buy, 100, 20))
	tail := level.enqueue(gtc(3, common.Buy, 100, 30))

	level.unlink(head)
	assert.Equal(t, []common.OrderID{2, 3}, levelOrders(level))

	level.unlink(tail)
	assert.Equal(t, []common.OrderID{2}, levelOrders(level))
	assert.Equal(t, level.front(), level.tail)
}

func TestPriceLevel_ReduceTracksPartialFills(t *testing.T) {
	level := newPriceLevel(100)
	order := gtc(1, common.Buy, 100, 10)
	node := level.enqueue(order)

	order.Fill(4)
	level.reduce(4)
	assert.Equal(t, common.Quantity(6), level.quantity)

	// A full fill reduces first, then unlinks with zero remaining.
	order.Fill(6)
	level.reduce(6)
	level.unlink(node)
	assert.Equal(t, common.Quantity(0), level.quantity)
	assert.Equal(t, 0, level.count)
}
