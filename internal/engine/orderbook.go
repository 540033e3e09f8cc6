package engine

import (
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"simex/internal/common"
	"simex/internal/queue"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("duplicate order")
	ErrInvalidSide    = errors.New("invalid side")
)

type PriceLevels = btree.BTreeG[*PriceLevel]

// Quote is the aggregate at the top of one side of the book.
type Quote struct {
	Price int64
	Size  uint64
	Count int
}

// Fill is one planned execution against the contra Side. A nil Order is size
// taken from the external market.
type Fill struct {
	Order *common.Order
	Side  common.Side
	Price int64
	Qty   uint64
}

// ExternalDepth is the visible resting size of the external market.
type ExternalDepth interface {
	// Prices returns the visible prices on side, best first.
	Prices(side common.Side) []int64
	LevelSize(side common.Side, price int64) (uint64, bool)
	Consume(side common.Side, price int64, qty uint64)
}

type OrderBook struct {
	// Price levels to orders sat on the price level, sorted by time added
	// as they will be push-back'd.
	bids *PriceLevels
	asks *PriceLevels

	// Resting orders by client id.
	orders map[uuid.UUID]*common.Order

	queue    queue.Model
	external ExternalDepth
}

// NewOrderBook returns an empty book matching against external alongside
// its own orders. A nil model means strict FIFO; a nil external means no
// external liquidity.
func NewOrderBook(model queue.Model, external ExternalDepth) *OrderBook {
	if model == nil {
		model = queue.FIFO{}
	}
	opts := btree.Options{NoLocks: true}
	// Sorted greatest first.
	bids := btree.NewBTreeGOptions(func(a, b *PriceLevel) bool {
		return a.price > b.price
	}, opts)
	// Sorted least first.
	asks := btree.NewBTreeGOptions(func(a, b *PriceLevel) bool {
		return a.price < b.price
	}, opts)
	return &OrderBook{
		bids:     bids,
		asks:     asks,
		orders:   make(map[uuid.UUID]*common.Order),
		queue:    model,
		external: external,
	}
}

func (book *OrderBook) ladder(side common.Side) *PriceLevels {
	switch side {
	case common.Bid:
		return book.bids
	case common.Ask:
		return book.asks
	}
	return nil
}

// Bids returns the bid levels, best first.
func (book *OrderBook) Bids() []*PriceLevel { return book.bids.Items() }

// Asks returns the ask levels, best first.
func (book *OrderBook) Asks() []*PriceLevel { return book.asks.Items() }

func (book *OrderBook) BestBid() (Quote, bool) { return best(book.bids) }

func (book *OrderBook) BestAsk() (Quote, bool) { return best(book.asks) }

func best(levels *PriceLevels) (Quote, bool) {
	// Min accounts for bids and asks being in inverse order.
	level, ok := levels.Min()
	if !ok {
		return Quote{}, false
	}
	return Quote{Price: level.price, Size: level.totalSize, Count: len(level.orders)}, true
}

// Depth is the number of price levels on a side.
func (book *OrderBook) Depth(side common.Side) int {
	if levels := book.ladder(side); levels != nil {
		return levels.Len()
	}
	return 0
}

// Len is the number of resting orders.
func (book *OrderBook) Len() int { return len(book.orders) }

// Get returns a resting order.
func (book *OrderBook) Get(id uuid.UUID) (*common.Order, bool) {
	o, ok := book.orders[id]
	return o, ok
}

// Level returns the level at price on side.
func (book *OrderBook) Level(side common.Side, price int64) (*PriceLevel, bool) {
	levels := book.ladder(side)
	if levels == nil {
		return nil, false
	}
	// Levels comparator only accounts for price levels, so we search with a
	// dummy price level.
	return levels.Get(&PriceLevel{price: price})
}

// Insert rests the order at the back of its price level, creating the level
// if absent. Matching is not triggered.
func (book *OrderBook) Insert(o *common.Order) error {
	levels := book.ladder(o.Side)
	if levels == nil {
		return ErrInvalidSide
	}
	if _, ok := book.orders[o.ClientOID]; ok {
		return ErrDuplicateOrder
	}

	level, ok := levels.Get(&PriceLevel{price: o.Price})
	if !ok {
		level = &PriceLevel{price: o.Price}
		levels.Set(level)
	}
	level.push(o)
	book.orders[o.ClientOID] = o
	return nil
}

// Remove takes a resting order off the book, deleting its level if emptied.
func (book *OrderBook) Remove(id uuid.UUID) (*common.Order, error) {
	o, ok := book.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	book.unlink(o)
	return o, nil
}

func (book *OrderBook) unlink(o *common.Order) {
	delete(book.orders, o.ClientOID)
	levels := book.ladder(o.Side)
	level, ok := levels.Get(&PriceLevel{price: o.Price})
	if !ok {
		return
	}
	level.remove(o)
	if level.empty() {
		levels.Delete(level)
	}
}

// marketable reports whether a contra level at levelPrice trades against an
// aggressor of side limited at limit.
func marketable(side common.Side, limit, levelPrice int64) bool {
	if side == common.Bid {
		return levelPrice <= limit
	}
	return levelPrice >= limit
}

// MatchAgainst plans the fills an incoming order of side, limited at price,
// would get against the contra side, external depth included. The book is left
// untouched; pass the plan to Apply to execute it.
func (book *OrderBook) MatchAgainst(side common.Side, price int64, size uint64, market bool) []Fill {
	return book.sweep(side, price, size, market)
}

// Apply executes a plan from MatchAgainst, removing drained orders and
// levels. External fills are taken off the external depth and out of the
// queue ahead of the local orders at that price.
func (book *OrderBook) Apply(fills []Fill) {
	for _, f := range fills {
		if f.Order == nil {
			book.consumeExternal(f.Side, f.Price, f.Qty)
			continue
		}
		level, ok := book.Level(f.Order.Side, f.Order.Price)
		if !ok {
			continue
		}
		f.Order.Fill(f.Qty)
		level.totalSize -= f.Qty
		if f.Order.Remaining == 0 {
			book.unlink(f.Order)
		}
	}
}

func (book *OrderBook) consumeExternal(side common.Side, price int64, qty uint64) {
	if book.external != nil {
		book.external.Consume(side, price, qty)
	}
	level, ok := book.Level(side, price)
	if !ok {
		return
	}
	for _, resting := range level.orders {
		resting.QueueAhead = max(resting.QueueAhead-int64(qty), 0)
	}
}

// ExecutePrint fills resting orders hit by a trade on the external market.
// The print of size volume by aggressor side at price reaches our contra
// orders priced at or through it, best first, and returns the local fills.
func (book *OrderBook) ExecutePrint(aggressor common.Side, price int64, volume uint64) []Fill {
	plan := book.sweep(aggressor, price, volume, false)
	book.Apply(plan)

	var fills []Fill
	for _, f := range plan {
		if f.Order != nil {
			fills = append(fills, f)
		}
	}
	return fills
}

// sweep walks volume from an aggressor of side through the contra prices it
// reaches, best first, and plans who gets filled. At each price the volume
// queued ahead of a local order (its QueueAhead) trades first, then the
// order itself as far as the queue model allows, then whatever external size
// trails the local orders. The residual moves on to the next price.
func (book *OrderBook) sweep(aggressor common.Side, limit int64, volume uint64, market bool) []Fill {
	side := aggressor.Opposite()
	if book.ladder(side) == nil || volume == 0 {
		return nil
	}

	var fills []Fill
	left := volume
	for _, price := range book.contraPrices(side, limit, market) {
		external, _ := book.externalSize(side, price)
		var taken, ahead uint64
		takeExternal := func(qty uint64) {
			if qty == 0 {
				return
			}
			fills = append(fills, Fill{Side: side, Price: price, Qty: qty})
			taken += qty
			left -= qty
		}

		if level, ok := book.Level(side, price); ok {
			for i, resting := range level.orders {
				queued := uint64(max(resting.QueueAhead, 0))
				external = max(external, queued)
				if queued > taken {
					takeExternal(min(left, queued-taken))
				}
				if left == 0 {
					break
				}
				qty := book.queue.EstimateFill(
					queue.Position{
						Index:      i,
						Ahead:      ahead,
						OrderSize:  resting.Remaining,
						LevelSize:  level.totalSize,
						LevelCount: len(level.orders),
					},
					queue.Context{Incoming: left, Price: price, Aggressor: aggressor, Market: market},
				)
				qty = min(qty, resting.Remaining, left)
				if qty > 0 {
					fills = append(fills, Fill{Order: resting, Side: side, Price: price, Qty: qty})
					left -= qty
				}
				ahead += resting.Remaining
			}
		}
		takeExternal(min(left, external-taken))
		if left == 0 {
			break
		}
	}
	return fills
}

// contraPrices returns the local and external prices on side that an
// aggressor limited at limit reaches, best first.
func (book *OrderBook) contraPrices(side common.Side, limit int64, market bool) []int64 {
	reaches := func(price int64) bool {
		return market || marketable(side.Opposite(), limit, price)
	}
	var prices []int64
	book.ladder(side).Scan(func(level *PriceLevel) bool {
		if !reaches(level.price) {
			return false
		}
		prices = append(prices, level.price)
		return true
	})
	if book.external != nil {
		for _, price := range book.external.Prices(side) {
			if reaches(price) {
				prices = append(prices, price)
			}
		}
	}
	slices.Sort(prices)
	prices = slices.Compact(prices)
	if side == common.Bid {
		slices.Reverse(prices)
	}
	return prices
}

func (book *OrderBook) externalSize(side common.Side, price int64) (uint64, bool) {
	if book.external == nil {
		return 0, false
	}
	return book.external.LevelSize(side, price)
}
