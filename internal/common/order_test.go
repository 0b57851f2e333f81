package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_FillAccounting(t *testing.T) {
	order := NewOrder(GoodTillCancel, 1, Buy, 100, 10)

	assert.Equal(t, Quantity(0), order.Filled())
	assert.False(t, order.IsFilled())

	order.Fill(4)
	assert.Equal(t, Quantity(4), order.Filled())
	assert.Equal(t, Quantity(6), order.Remaining)
	assert.False(t, order.IsFilled())

	order.Fill(6)
	assert.True(t, order.IsFilled())
	assert.Equal(t, Quantity(10), order.Initial)
}

func TestOrder_OverfillPanicsWithID(t *testing.T) {
	order := NewOrder(GoodTillCancel, 7, Sell, 100, 3)

	assert.PanicsWithValue(t,
		"order 7 cannot fill 5 with only 3 remaining",
		func() { order.Fill(5) },
	)
}

func TestNewMarketOrder(t *testing.T) {
	order := NewMarketOrder(3, Sell, 25)

	assert.Equal(t, Market, order.Type)
	assert.Equal(t, Quantity(25), order.Initial)
	assert.Equal(t, Quantity(25), order.Remaining)
}

func TestOrderType_Rests(t *testing.T) {
	assert.True(t, GoodTillCancel.Rests())
	assert.True(t, GoodForDay.Rests())
	assert.True(t, FillOrKill.Rests())
	assert.False(t, FillAndKill.Rests())
	assert.False(t, Market.Rests())
}

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}
