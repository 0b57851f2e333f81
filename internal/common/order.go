package common

import "fmt"

// Order is a live request to trade. The engine decrements Remaining as the
// order fills; Initial never changes after creation.
type Order struct {
	Type      OrderType
	ID        OrderID
	Side      Side
	Price     Price
	Initial   Quantity
	Remaining Quantity
}

func NewOrder(orderType OrderType, id OrderID, side Side, price Price, quantity Quantity) *Order {
	return &Order{
		Type:      orderType,
		ID:        id,
		Side:      side,
		Price:     price,
		Initial:   quantity,
		Remaining: quantity,
	}
}

// NewMarketOrder builds a market order. The price is left at zero; the book
// re-prices the order against the opposing side on admission, so the value
// stored here is never compared against a level.
func NewMarketOrder(id OrderID, side Side, quantity Quantity) *Order {
	return NewOrder(Market, id, side, 0, quantity)
}

func (o *Order) Filled() Quantity {
	return o.Initial - o.Remaining
}

func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// Fill consumes quantity from the order. Filling beyond the remaining
// quantity is a matcher bug, not an input condition, and panics with the
// offending order's id.
func (o *Order) Fill(quantity Quantity) {
	if quantity > o.Remaining {
		panic(fmt.Sprintf(
			"order %d cannot fill %d with only %d remaining",
			o.ID, quantity, o.Remaining,
		))
	}
	o.Remaining -= quantity
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"ID:        %d\nType:      %v\nSide:      %v\nPrice:     %d\nQuantity:  %d (Total: %d)",
		o.ID,
		o.Type,
		o.Side,
		o.Price,
		o.Remaining,
		o.Initial,
	)
}
