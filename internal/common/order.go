package common

import (
	"fmt"

	"github.com/google/uuid"
)

// Listing identifies one security on one exchange.
type Listing struct {
	ExchangeID uint32
	SecurityID uint32
}

func (l Listing) String() string {
	return fmt.Sprintf("%d_%d", l.ExchangeID, l.SecurityID)
}

// Order is owned by the exchange once submitted. Prices are fixed-point ticks,
// timestamps are nanoseconds since the epoch.
type Order struct {
	ExchangeID  uint32      //
	SecurityID  uint32      //
	ClientOID   uuid.UUID   // Opaque 128-bit client token
	Side        Side        // Order side
	Price       int64       // Limit price, ignored for market orders
	Size        uint64      // Total volume requested
	Type        OrderType   //
	TimeInForce TimeInForce //
	Timestamp   uint64      // Time of submission
	Remaining   uint64      // Leaves quantity
	Filled      uint64      // Cumulative filled quantity
	Status      OrderStatus //
	QueueAhead  int64       // External market volume queued ahead of this order
}

func (o *Order) Listing() Listing {
	return Listing{ExchangeID: o.ExchangeID, SecurityID: o.SecurityID}
}

// Fill moves qty from leaves to filled and advances the status.
func (o *Order) Fill(qty uint64) {
	o.Remaining -= qty
	o.Filled += qty
	if o.Remaining == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}

// Close moves the order into a terminal status, leaves are dropped. Closing
// an already terminal order is a no-op so transitions stay monotonic.
func (o *Order) Close(status OrderStatus) {
	if o.Status.Terminal() {
		return
	}
	o.Status = status
	o.Remaining = 0
}

func (o Order) String() string {
	return fmt.Sprintf(
		`ClientOID:   %v
Listing:     %d_%d
Type:        %v
TimeInForce: %v
Side:        %v
Price:       %d
Size:        %d (Remaining: %d, Filled: %d)
Status:      %v
Timestamp:   %d`,
		o.ClientOID,
		o.ExchangeID,
		o.SecurityID,
		o.Type,
		o.TimeInForce,
		o.Side,
		o.Price,
		o.Size,
		o.Remaining,
		o.Filled,
		o.Status,
		o.Timestamp,
	)
}
