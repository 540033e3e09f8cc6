// Package marketdata holds the historical records replayed into the exchange
// and the reference view of the external market built from them.
package marketdata

import (
	"time"

	"simex/internal/common"
)

// Action is the book event carried by MBO/MBP records.
type Action byte

const (
	Add    Action = 'A'
	Cancel Action = 'C'
	Modify Action = 'M'
	Clear  Action = 'W'
	Trade  Action = 'T'
	Fill   Action = 'F'
	None   Action = 'N'
)

func (a Action) Valid() bool {
	switch a {
	case Add, Cancel, Modify, Clear, Trade, Fill, None:
		return true
	}
	return false
}

// Flags is the record flag bitset.
type Flags uint8

const (
	FlagLast         Flags = 128 // Last record of an event for a security
	FlagTopOfBook    Flags = 64
	FlagSnapshot     Flags = 32
	FlagMBP          Flags = 16
	FlagBadTsRecv    Flags = 8
	FlagMaybeBadBook Flags = 4
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Level is one depth rung, bid and ask side by side.
type Level struct {
	BidPx int64
	AskPx int64
	BidSz uint32
	AskSz uint32
	BidCt uint32
	AskCt uint32
}

// EmptyLevel has every field null.
var EmptyLevel = Level{
	BidPx: common.NullPrice,
	AskPx: common.NullPrice,
	BidSz: common.NullSize,
	AskSz: common.NullSize,
	BidCt: common.NullCount,
	AskCt: common.NullCount,
}

// Record is any market data message routed to an exchange.
type Record interface {
	Listing() common.Listing
	Timestamp() uint64
}

// Header is the prefix shared by every record.
type Header struct {
	ExchangeID uint32
	SecurityID uint32
	TsEvent    uint64
}

func (h Header) Listing() common.Listing {
	return common.Listing{ExchangeID: h.ExchangeID, SecurityID: h.SecurityID}
}

func (h Header) Timestamp() uint64 { return h.TsEvent }

// Delta is the body shared by MBP and trade records.
type Delta struct {
	TsSent   uint64
	TsRecv   uint64
	Price    int64
	Size     uint32
	Action   Action
	Side     common.Side
	Flags    Flags
	Sequence uint32
	Depth    uint8
}

type MBO struct {
	Header
	TsSent   uint64
	TsRecv   uint64
	OrderID  uint64
	Price    int64
	Size     uint32
	Action   Action
	Side     common.Side
	Flags    Flags
	Sequence uint32
}

type MBP10 struct {
	Header
	Delta
	Levels [10]Level
}

type MBP1 struct {
	Header
	Delta
	Level Level
}

type Trades struct {
	Header
	Delta
}

// BBO is a sampled top of book. Interval is one second or one minute.
type BBO struct {
	Header
	Interval time.Duration
	TsRecv   uint64
	Price    int64 // Last trade price, null if none in the interval
	Size     uint32
	Side     common.Side
	Flags    Flags
	Sequence uint32
	Level    Level
}

// OHLCV is a bar aggregate. Interval is one second, minute or hour.
type OHLCV struct {
	Header
	Interval time.Duration
	Open     int64
	High     int64
	Low      int64
	Close    int64
	Volume   uint64
}

// Print is a trade seen on the external market. Side is the aggressor.
type Print struct {
	Listing   common.Listing
	Price     int64
	Size      uint64
	Side      common.Side
	Timestamp uint64
}

// TradeOf extracts the trade print carried by a record, if any.
func TradeOf(rec Record) (Print, bool) {
	var (
		price  int64
		size   uint32
		side   common.Side
		action Action
	)
	switch r := rec.(type) {
	case *MBO:
		price, size, side, action = r.Price, r.Size, r.Side, r.Action
	case *MBP10:
		price, size, side, action = r.Price, r.Size, r.Side, r.Action
	case *MBP1:
		price, size, side, action = r.Price, r.Size, r.Side, r.Action
	case *Trades:
		price, size, side, action = r.Price, r.Size, r.Side, r.Action
	default:
		return Print{}, false
	}
	if action != Trade || price == common.NullPrice || size == common.NullSize || size == 0 {
		return Print{}, false
	}
	return Print{
		Listing:   rec.Listing(),
		Price:     price,
		Size:      uint64(size),
		Side:      side,
		Timestamp: rec.Timestamp(),
	}, true
}
