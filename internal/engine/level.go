package engine

import (
	"slices"

	"simex/internal/common"
)

// PriceLevel holds every resting order at one price on one side, in arrival
// order. totalSize always equals the sum of the orders' remaining sizes.
type PriceLevel struct {
	price     int64
	orders    []*common.Order
	totalSize uint64
}

func (l *PriceLevel) Price() int64 { return l.price }

func (l *PriceLevel) TotalSize() uint64 { return l.totalSize }

func (l *PriceLevel) OrderCount() int { return len(l.orders) }

// Orders returns the resting orders head first. The slice is a copy, the
// orders are not.
func (l *PriceLevel) Orders() []*common.Order {
	return slices.Clone(l.orders)
}

func (l *PriceLevel) push(o *common.Order) {
	l.orders = append(l.orders, o)
	l.totalSize += o.Remaining
}

// remove drops o from the level, returning false if it does not rest here.
func (l *PriceLevel) remove(o *common.Order) bool {
	i := slices.Index(l.orders, o)
	if i < 0 {
		return false
	}
	l.orders = slices.Delete(l.orders, i, i+1)
	l.totalSize -= o.Remaining
	return true
}

func (l *PriceLevel) empty() bool { return len(l.orders) == 0 }
