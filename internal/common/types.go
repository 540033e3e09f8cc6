package common

import "math"

// Null sentinels for fixed-width fields where absence must be representable.
const (
	NullTimestamp uint64 = 0
	NullPrice     int64  = math.MinInt64
	NullSize      uint32 = math.MaxUint32
	NullCount     uint32 = math.MaxUint32
	NullSequence  uint32 = math.MaxUint32
	NullDepth     uint8  = math.MaxUint8
)

// Side is encoded on the wire as a single char.
type Side byte

const (
	Ask    Side = 'A'
	Bid    Side = 'B'
	NoSide Side = 'N'
)

func (s Side) Valid() bool {
	return s == Ask || s == Bid
}

// Opposite returns the contra side. NoSide maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case Bid:
		return Ask
	case Ask:
		return Bid
	}
	return NoSide
}

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return "none"
}

type OrderType uint8

const (
	// Limit orders are an order to buy or sell a security at a specified
	// price or better. Limit orders may rest on the order book until
	// filled.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately, without
	// guarantees on the execution price. They never rest.
	MarketOrder
)

func (t OrderType) String() string {
	switch t {
	case LimitOrder:
		return "LIMIT"
	case MarketOrder:
		return "MARKET"
	}
	return "UNKNOWN"
}

type TimeInForce uint8

const (
	GoodTillCanceled  TimeInForce = iota // GTC
	GoodTillCrossing                     // GTX, post-only
	ImmediateOrCancel                    // IOC
	FillOrKill                           // FOK
)

func (t TimeInForce) String() string {
	switch t {
	case GoodTillCanceled:
		return "GTC"
	case GoodTillCrossing:
		return "GTX"
	case ImmediateOrCancel:
		return "IOC"
	case FillOrKill:
		return "FOK"
	}
	return "UNKNOWN"
}

type ExecType uint8

const (
	ExecNew ExecType = iota
	ExecCancel
	ExecFill
	ExecPartialFill
	ExecReject
	ExecCancelReject
	ExecExpire
)

var execTypeNames = [...]string{
	"NEW", "CANCEL", "FILL", "PARTIAL_FILL", "REJECT", "CANCEL_REJECT", "EXPIRE",
}

func (e ExecType) String() string {
	if int(e) < len(execTypeNames) {
		return execTypeNames[e]
	}
	return "UNKNOWN"
}

type OrderStatus uint8

const (
	StatusNew OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
	StatusExpired
)

var orderStatusNames = [...]string{
	"NEW", "PARTIALLY_FILLED", "FILLED", "CANCELED", "REJECTED", "EXPIRED",
}

func (s OrderStatus) String() string {
	if int(s) < len(orderStatusNames) {
		return orderStatusNames[s]
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

type RejectReason uint8

const (
	RejectUnknownOrder RejectReason = iota
	RejectInvalidPrice
	RejectInvalidSize
	RejectInsufficientLiquidity
	RejectExchangeRejected

	// NoRejectReason is the null value, reports without a reject carry it.
	NoRejectReason RejectReason = math.MaxUint8
)

var rejectReasonNames = [...]string{
	"UNKNOWN_ORDER", "INVALID_PRICE", "INVALID_SIZE", "INSUFFICIENT_LIQUIDITY", "EXCHANGE_REJECTED",
}

func (r RejectReason) String() string {
	if int(r) < len(rejectReasonNames) {
		return rejectReasonNames[r]
	}
	return ""
}

// Liquidity is the role an order played in a fill.
type Liquidity uint8

const (
	NoLiquidity Liquidity = iota
	Maker
	Taker
)

func (l Liquidity) String() string {
	switch l {
	case Maker:
		return "maker"
	case Taker:
		return "taker"
	}
	return "none"
}
