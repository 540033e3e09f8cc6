package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"simex/internal/common"
	"simex/internal/fee"
	"simex/internal/latency"
	"simex/internal/marketdata"
	"simex/internal/queue"
)

// This is the main matching engine. One Exchange simulates one listing and is
// driven by a single caller; nothing here is safe for concurrent use.

type Exchange struct {
	listing common.Listing
	book    *OrderBook
	ref     *marketdata.Reference

	fees       fee.Model
	network    latency.Model
	processing latency.Model

	// Every order ever accepted or rejected, for last known status.
	orders map[uuid.UUID]*common.Order
	seq    uint64

	logger zerolog.Logger
}

type Option func(*Exchange)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exchange) { e.logger = logger }
}

// WithListing binds the exchange to a listing. Orders for another listing are
// rejected and generated order ids are derived from it.
func WithListing(listing common.Listing) Option {
	return func(e *Exchange) { e.listing = listing }
}

// New builds an exchange around the given models. Nil models fall back to
// zero fees, zero latency and strict FIFO.
func New(fees fee.Model, network, processing latency.Model, model queue.Model, opts ...Option) *Exchange {
	if fees == nil {
		fees = fee.Zero{}
	}
	if network == nil {
		network = latency.Zero{}
	}
	if processing == nil {
		processing = latency.Zero{}
	}
	ref := marketdata.NewReference()
	e := &Exchange{
		book:       NewOrderBook(model, ref),
		ref:        ref,
		fees:       fees,
		network:    network,
		processing: processing,
		orders:     make(map[uuid.UUID]*common.Order),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Stringer("listing", e.listing).Logger()
	return e
}

func (e *Exchange) Listing() common.Listing { return e.listing }

// Book exposes the simulated book for inspection. Callers must not mutate it.
func (e *Exchange) Book() *OrderBook { return e.book }

// Reference exposes the external market view.
func (e *Exchange) Reference() *marketdata.Reference { return e.ref }

// Order returns the last known state of an order.
func (e *Exchange) Order(id uuid.UUID) (common.Order, bool) {
	o, ok := e.orders[id]
	if !ok {
		return common.Order{}, false
	}
	return *o, true
}

// stamps are the event and receipt times of one engine step.
type stamps struct {
	event uint64
	recv  uint64
}

// stamp shifts ts by a processing then a network latency sample. Durations
// are nanoseconds, matching the timestamps.
func (e *Exchange) stamp(ts uint64) stamps {
	event := ts + uint64(max(e.processing.Sample(), 0))
	return stamps{event: event, recv: event + uint64(max(e.network.Sample(), 0))}
}

func (e *Exchange) nextID() uuid.UUID {
	e.seq++
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "simex/%s/%d", e.listing, e.seq))
}

func (e *Exchange) report(o *common.Order, execType common.ExecType, ts stamps) common.ExecutionReport {
	return common.ExecutionReport{
		ExchangeID:     o.ExchangeID,
		SecurityID:     o.SecurityID,
		ClientOID:      o.ClientOID,
		Side:           o.Side,
		ExecType:       execType,
		Status:         o.Status,
		CumulativeQty:  o.Filled,
		LeavesQty:      o.Remaining,
		TimestampEvent: ts.event,
		TimestampRecv:  ts.recv,
		RejectReason:   common.NoRejectReason,
	}
}

func (e *Exchange) fillReport(o *common.Order, price int64, qty uint64, liq common.Liquidity, ts stamps) common.ExecutionReport {
	execType := common.ExecPartialFill
	if o.Remaining == 0 {
		execType = common.ExecFill
	}
	r := e.report(o, execType, ts)
	r.FilledQty = qty
	r.FillPrice = price
	r.Liquidity = liq
	r.Fee = e.fees.Fee(fee.Notional(price, qty), liq == common.Maker)
	return r
}

func (e *Exchange) reject(o *common.Order, reason common.RejectReason, ts stamps) []common.ExecutionReport {
	o.Close(common.StatusRejected)
	e.logger.Debug().
		Stringer("client_oid", o.ClientOID).
		Stringer("reason", reason).
		Msg("order rejected")
	r := e.report(o, common.ExecReject, ts)
	r.RejectReason = reason
	return []common.ExecutionReport{r}
}

// track records o as the latest order under its id, unless an active order
// already owns the id.
func (e *Exchange) track(o *common.Order) {
	if prev, ok := e.orders[o.ClientOID]; ok && !prev.Status.Terminal() {
		return
	}
	e.orders[o.ClientOID] = o
}

func (e *Exchange) validate(o *common.Order) (common.RejectReason, bool) {
	switch {
	case !o.Side.Valid():
		return common.RejectExchangeRejected, false
	case o.Type != common.LimitOrder && o.Type != common.MarketOrder:
		return common.RejectExchangeRejected, false
	case o.TimeInForce > common.FillOrKill:
		return common.RejectExchangeRejected, false
	case e.listing != (common.Listing{}) && o.Listing() != e.listing:
		return common.RejectExchangeRejected, false
	case o.Size == 0 || o.Size == uint64(common.NullSize):
		return common.RejectInvalidSize, false
	case o.Type == common.LimitOrder && (o.Price <= 0 || o.Price == common.NullPrice):
		return common.RejectInvalidPrice, false
	case o.Type == common.MarketOrder && o.TimeInForce == common.GoodTillCrossing:
		// A market order is always marketable.
		return common.RejectExchangeRejected, false
	}
	if prev, ok := e.orders[o.ClientOID]; ok && !prev.Status.Terminal() {
		return common.RejectExchangeRejected, false
	}
	return common.NoRejectReason, true
}

// SubmitOrder runs an order through the exchange and returns every report it
// produced, in order. The book is either fully updated or left untouched.
func (e *Exchange) SubmitOrder(order common.Order) []common.ExecutionReport {
	o := &order
	if o.ClientOID == uuid.Nil {
		o.ClientOID = e.nextID()
	}
	o.Remaining, o.Filled, o.Status, o.QueueAhead = o.Size, 0, common.StatusNew, 0
	ts := e.stamp(o.Timestamp)

	reason, ok := e.validate(o)
	e.track(o)
	if !ok {
		return e.reject(o, reason, ts)
	}

	if o.TimeInForce == common.GoodTillCrossing {
		if e.crosses(o) {
			return e.reject(o, common.RejectExchangeRejected, ts)
		}
		return e.rest(o, ts)
	}

	var (
		fills    []Fill
		fallback bool
		fbPrice  int64
		fbQty    uint64
	)
	switch o.Type {
	case common.MarketOrder:
		fills = e.book.MatchAgainst(o.Side, 0, o.Size, true)
		if len(fills) > 0 {
			break
		}
		// Nothing sized on either book: fill at the best known price.
		price, size, ok := e.ref.FallbackQuote(o.Side)
		if !ok {
			return e.reject(o, common.RejectExchangeRejected, ts)
		}
		fallback, fbPrice, fbQty = true, price, min(o.Size, size)
	case common.LimitOrder:
		fills = e.book.MatchAgainst(o.Side, o.Price, o.Size, false)
	}

	total := fbQty
	for _, f := range fills {
		total += f.Qty
	}
	switch {
	case o.TimeInForce == common.FillOrKill && total < o.Size:
		return e.reject(o, common.RejectInsufficientLiquidity, ts)
	case total == 0 && (o.TimeInForce == common.ImmediateOrCancel || o.Type == common.MarketOrder):
		return e.reject(o, common.RejectInsufficientLiquidity, ts)
	}

	reports := []common.ExecutionReport{e.report(o, common.ExecNew, ts)}

	if fallback {
		o.Fill(fbQty)
		reports = append(reports, e.fillReport(o, fbPrice, fbQty, common.Taker, ts))
	} else {
		e.book.Apply(fills)
		for _, f := range fills {
			o.Fill(f.Qty)
			reports = append(reports, e.fillReport(o, f.Price, f.Qty, common.Taker, ts))
			if f.Order != nil {
				reports = append(reports, e.fillReport(f.Order, f.Price, f.Qty, common.Maker, ts))
			}
		}
	}

	if o.Remaining == 0 {
		return reports
	}
	if o.Type == common.MarketOrder || o.TimeInForce == common.ImmediateOrCancel || e.crossesBook(o) {
		o.Close(common.StatusCanceled)
		return append(reports, e.report(o, common.ExecCancel, ts))
	}
	e.insert(o)
	return reports
}

// crossesBook reports whether o is marketable against the simulated book.
func (e *Exchange) crossesBook(o *common.Order) bool {
	var (
		q  Quote
		ok bool
	)
	if o.Side == common.Bid {
		q, ok = e.book.BestAsk()
	} else {
		q, ok = e.book.BestBid()
	}
	return ok && marketable(o.Side, o.Price, q.Price)
}

// crosses extends crossesBook to the external market's top of book.
func (e *Exchange) crosses(o *common.Order) bool {
	if e.crossesBook(o) {
		return true
	}
	px, _, ok := e.ref.Contra(o.Side)
	return ok && marketable(o.Side, o.Price, px)
}

func (e *Exchange) rest(o *common.Order, ts stamps) []common.ExecutionReport {
	r := e.report(o, common.ExecNew, ts)
	e.insert(o)
	return []common.ExecutionReport{r}
}

// insert rests o behind any external volume visible at its price.
func (e *Exchange) insert(o *common.Order) {
	if ahead, ok := e.ref.LevelSize(o.Side, o.Price); ok {
		o.QueueAhead = int64(ahead)
	}
	if err := e.book.Insert(o); err != nil {
		// Ids are checked against all active orders before matching.
		e.logger.Error().Err(err).Stringer("client_oid", o.ClientOID).Msg("insert failed")
		return
	}
	e.logger.Trace().
		Stringer("client_oid", o.ClientOID).
		Stringer("side", o.Side).
		Int64("price", o.Price).
		Uint64("leaves", o.Remaining).
		Int64("queue_ahead", o.QueueAhead).
		Msg("order rested")
}

// CancelOrder pulls a resting order. Unknown and terminal orders get a
// REJECTED CANCEL_REJECT; a known order keeps its side and quantities.
func (e *Exchange) CancelOrder(id uuid.UUID, timestamp uint64) []common.ExecutionReport {
	ts := e.stamp(timestamp)

	o, err := e.book.Remove(id)
	if err != nil {
		r := common.ExecutionReport{
			ExchangeID:     e.listing.ExchangeID,
			SecurityID:     e.listing.SecurityID,
			ClientOID:      id,
			Side:           common.NoSide,
			ExecType:       common.ExecCancelReject,
			Status:         common.StatusRejected,
			TimestampEvent: ts.event,
			TimestampRecv:  ts.recv,
			RejectReason:   common.RejectUnknownOrder,
		}
		if prev, ok := e.orders[id]; ok {
			r.ExchangeID, r.SecurityID = prev.ExchangeID, prev.SecurityID
			r.Side = prev.Side
			r.CumulativeQty, r.LeavesQty = prev.Filled, prev.Remaining
		}
		e.logger.Debug().Err(err).Stringer("client_oid", id).Msg("cancel rejected")
		return []common.ExecutionReport{r}
	}

	o.Close(common.StatusCanceled)
	e.logger.Trace().Stringer("client_oid", id).Msg("order canceled")
	return []common.ExecutionReport{e.report(o, common.ExecCancel, ts)}
}

// UpdateMarketData refreshes the external market view. Resting orders move up
// the queue when the visible size at their price shrinks below what they
// still have ahead. It never matches.
func (e *Exchange) UpdateMarketData(rec marketdata.Record) {
	e.ref.Update(rec)
	for _, side := range []common.Side{common.Bid, common.Ask} {
		e.book.ladder(side).Scan(func(level *PriceLevel) bool {
			size, ok := e.ref.LevelSize(side, level.price)
			if !ok {
				return true
			}
			for _, o := range level.orders {
				if o.QueueAhead > int64(size) {
					o.QueueAhead = int64(size)
				}
			}
			return true
		})
	}
}

// ApplyTrade fills resting orders reached by a trade printed on the external
// market. Every fill is maker liquidity for our side.
func (e *Exchange) ApplyTrade(p marketdata.Print) []common.ExecutionReport {
	e.ref.RecordTrade(p)
	if !p.Side.Valid() {
		return nil
	}
	fills := e.book.ExecutePrint(p.Side, p.Price, p.Size)
	if len(fills) == 0 {
		return nil
	}
	ts := e.stamp(p.Timestamp)
	reports := make([]common.ExecutionReport, 0, len(fills))
	for _, f := range fills {
		reports = append(reports, e.fillReport(f.Order, f.Price, f.Qty, common.Maker, ts))
	}
	e.logger.Trace().
		Int64("price", p.Price).
		Uint64("size", p.Size).
		Int("fills", len(fills)).
		Msg("trade print filled resting orders")
	return reports
}
