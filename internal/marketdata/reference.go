package marketdata

import (
	"math"

	"simex/internal/common"
)

// Reference is the exchange's view of the external market: the visible depth
// (best level first), last trade and last bar close. Unknown values carry the
// null sentinels. Sizes taken by simulated executions are consumed from the
// depth until the next book update replaces it.
type Reference struct {
	Depth     []Level
	LastPx    int64
	LastSz    uint32
	LastClose int64
	Timestamp uint64
}

func NewReference() *Reference {
	return &Reference{
		LastPx:    common.NullPrice,
		LastSz:    common.NullSize,
		LastClose: common.NullPrice,
	}
}

// Update folds a record into the reference.
func (r *Reference) Update(rec Record) {
	if ts := rec.Timestamp(); ts != common.NullTimestamp {
		r.Timestamp = ts
	}
	switch m := rec.(type) {
	case *MBP10:
		r.setDepth(m.Levels[:])
	case *MBP1:
		r.setDepth([]Level{m.Level})
	case *BBO:
		r.setDepth([]Level{m.Level})
		if m.Price != common.NullPrice {
			r.LastPx, r.LastSz = m.Price, m.Size
		}
	case *Trades:
		// A print of unknown size still sets the last price.
		if m.Action == Trade && m.Price != common.NullPrice {
			r.LastPx, r.LastSz = m.Price, m.Size
		}
	case *OHLCV:
		if m.Close != common.NullPrice {
			r.LastClose = m.Close
		}
	}
	if p, ok := TradeOf(rec); ok {
		r.RecordTrade(p)
	}
}

func (r *Reference) RecordTrade(p Print) {
	r.LastPx = p.Price
	r.LastSz = uint32(min(p.Size, uint64(common.NullSize-1)))
}

func (r *Reference) setDepth(levels []Level) {
	r.Depth = r.Depth[:0]
	for _, l := range levels {
		if l.BidPx == common.NullPrice && l.AskPx == common.NullPrice {
			continue
		}
		r.Depth = append(r.Depth, l)
	}
}

// quote returns the price and size of l on side.
func (l *Level) quote(side common.Side) (px *int64, sz *uint32) {
	if side == common.Bid {
		return &l.BidPx, &l.BidSz
	}
	return &l.AskPx, &l.AskSz
}

func (r *Reference) best(side common.Side) (int64, uint32, bool) {
	for i := range r.Depth {
		if px, sz := r.Depth[i].quote(side); *px != common.NullPrice {
			return *px, *sz, true
		}
	}
	return 0, 0, false
}

// BestBid returns the external best bid price and size.
func (r *Reference) BestBid() (int64, uint32, bool) { return r.best(common.Bid) }

// BestAsk returns the external best ask price and size.
func (r *Reference) BestAsk() (int64, uint32, bool) { return r.best(common.Ask) }

// Prices returns the visible prices on side, best first.
func (r *Reference) Prices(side common.Side) []int64 {
	if !side.Valid() {
		return nil
	}
	var prices []int64
	for i := range r.Depth {
		if px, _ := r.Depth[i].quote(side); *px != common.NullPrice {
			prices = append(prices, *px)
		}
	}
	return prices
}

// Consume takes qty off the visible size at price on side. A level consumed
// to nothing is no longer visible. Unknown sizes are left alone.
func (r *Reference) Consume(side common.Side, price int64, qty uint64) {
	if !side.Valid() || qty == 0 {
		return
	}
	for i := range r.Depth {
		px, sz := r.Depth[i].quote(side)
		if *px != price || *sz == common.NullSize {
			continue
		}
		if uint64(*sz) <= qty {
			*px, *sz = common.NullPrice, common.NullSize
			if side == common.Bid {
				r.Depth[i].BidCt = common.NullCount
			} else {
				r.Depth[i].AskCt = common.NullCount
			}
		} else {
			*sz -= uint32(qty)
		}
		return
	}
}

// Contra returns the external best price on the side an aggressor of the
// given side would trade against.
func (r *Reference) Contra(aggressor common.Side) (int64, uint32, bool) {
	switch aggressor {
	case common.Bid:
		return r.BestAsk()
	case common.Ask:
		return r.BestBid()
	}
	return 0, 0, false
}

// FallbackQuote is the price and size a market order fills at when the
// simulated book has nothing on the contra side: the contra best, else the
// last trade, else the last bar close. Size is unbounded when unknown.
func (r *Reference) FallbackQuote(aggressor common.Side) (price int64, size uint64, ok bool) {
	if px, sz, found := r.Contra(aggressor); found {
		return px, sizeOrUnbounded(sz), true
	}
	if r.LastPx != common.NullPrice {
		return r.LastPx, sizeOrUnbounded(r.LastSz), true
	}
	if r.LastClose != common.NullPrice {
		return r.LastClose, math.MaxUint64, true
	}
	return 0, 0, false
}

// LevelSize returns the external resting size at price on side, if that
// price is visible in the latest depth.
func (r *Reference) LevelSize(side common.Side, price int64) (uint64, bool) {
	for _, l := range r.Depth {
		switch {
		case side == common.Bid && l.BidPx == price && l.BidSz != common.NullSize:
			return uint64(l.BidSz), true
		case side == common.Ask && l.AskPx == price && l.AskSz != common.NullSize:
			return uint64(l.AskSz), true
		}
	}
	return 0, false
}

func sizeOrUnbounded(sz uint32) uint64 {
	if sz == common.NullSize || sz == 0 {
		return math.MaxUint64
	}
	return uint64(sz)
}
