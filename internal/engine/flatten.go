package engine

import "simex/internal/common"

// FlatPriceLevel is a value snapshot of a PriceLevel.
type FlatPriceLevel struct {
	PriceLevel int64
	Orders     []common.Order
}

// FlattenLevels snapshots levels so they can be compared or dumped without
// holding references into the live book.
func FlattenLevels(levels []*PriceLevel) []FlatPriceLevel {
	flat := make([]FlatPriceLevel, 0, len(levels))
	for _, level := range levels {
		orders := make([]common.Order, len(level.orders))
		for i, o := range level.orders {
			orders[i] = *o
		}
		flat = append(flat, FlatPriceLevel{PriceLevel: level.price, Orders: orders})
	}
	return flat
}
