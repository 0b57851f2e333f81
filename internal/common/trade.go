package common

import "fmt"

// TradeLeg records one side's participation in a match. The price is the
// resting price of that side's order, which lets a caller see price
// improvement on the aggressing leg.
type TradeLeg struct {
	OrderID  OrderID
	Price    Price
	Quantity Quantity
}

// Trade accounts for the two orders that matched.
type Trade struct {
	Bid TradeLeg
	Ask TradeLeg
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Bid: [%d %d@%d] Ask: [%d %d@%d]",
		t.Bid.OrderID, t.Bid.Quantity, t.Bid.Price,
		t.Ask.OrderID, t.Ask.Quantity, t.Ask.Price,
	)
}
