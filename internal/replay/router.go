package replay

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"simex/internal/common"
	"simex/internal/engine"
	"simex/internal/marketdata"
	"simex/internal/wire"
)

var (
	ErrUnknownListing = errors.New("no exchange for listing")
	ErrUnroutable     = errors.New("message cannot be routed")
)

// Factory builds the exchange for a listing seen for the first time.
type Factory func(listing common.Listing) (*engine.Exchange, error)

// Router owns one exchange per listing and dispatches decoded messages to it.
// It is driven by a single goroutine.
type Router struct {
	exchanges map[common.Listing]*engine.Exchange
	factory   Factory
}

// NewRouter returns an empty router. With a nil factory only exchanges added
// through Add are reachable.
func NewRouter(factory Factory) *Router {
	return &Router{
		exchanges: make(map[common.Listing]*engine.Exchange),
		factory:   factory,
	}
}

func (r *Router) Add(ex *engine.Exchange) {
	r.exchanges[ex.Listing()] = ex
}

func (r *Router) Exchange(listing common.Listing) (*engine.Exchange, error) {
	if ex, ok := r.exchanges[listing]; ok {
		return ex, nil
	}
	if r.factory == nil {
		return nil, fmt.Errorf("%v: %w", listing, ErrUnknownListing)
	}
	ex, err := r.factory(listing)
	if err != nil {
		return nil, fmt.Errorf("build exchange %v: %w", listing, err)
	}
	r.exchanges[listing] = ex
	return ex, nil
}

// Listings returns the routed listings in ascending order.
func (r *Router) Listings() []common.Listing {
	listings := make([]common.Listing, 0, len(r.exchanges))
	for l := range r.exchanges {
		listings = append(listings, l)
	}
	slices.SortFunc(listings, func(a, b common.Listing) int {
		return cmp.Or(cmp.Compare(a.ExchangeID, b.ExchangeID), cmp.Compare(a.SecurityID, b.SecurityID))
	})
	return listings
}

// Route applies one message to its listing's exchange. A trade carried by a
// market data record fills resting orders before the record refreshes the
// reference, so a print is not counted twice against queue ahead.
func (r *Router) Route(msg any) ([]common.ExecutionReport, error) {
	switch m := msg.(type) {
	case *common.Order:
		ex, err := r.Exchange(m.Listing())
		if err != nil {
			return nil, err
		}
		return ex.SubmitOrder(*m), nil
	case *wire.CancelOrder:
		ex, err := r.Exchange(m.Listing())
		if err != nil {
			return nil, err
		}
		return ex.CancelOrder(m.ClientOID, m.Timestamp), nil
	case marketdata.Record:
		ex, err := r.Exchange(m.Listing())
		if err != nil {
			return nil, err
		}
		var reports []common.ExecutionReport
		if p, ok := marketdata.TradeOf(m); ok {
			reports = ex.ApplyTrade(p)
		}
		ex.UpdateMarketData(m)
		return reports, nil
	}
	return nil, fmt.Errorf("%T: %w", msg, ErrUnroutable)
}
