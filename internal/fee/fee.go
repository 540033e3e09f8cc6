// Package fee computes maker/taker fees on fill notionals.
package fee

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("invalid fee rate")

type Model interface {
	Fee(notional decimal.Decimal, maker bool) decimal.Decimal
}

// Zero charges nothing.
type Zero struct{}

func (Zero) Fee(decimal.Decimal, bool) decimal.Decimal { return decimal.Zero }

// Schedule applies a flat rate per liquidity role. Rates are fractions of the
// notional; a negative maker rate is a rebate.
type Schedule struct {
	MakerRate decimal.Decimal
	TakerRate decimal.Decimal
}

// NewSchedule parses decimal rate strings such as "0.0005".
func NewSchedule(maker, taker string) (Schedule, error) {
	m, err := decimal.NewFromString(maker)
	if err != nil {
		return Schedule{}, errors.Join(ErrInvalidRate, err)
	}
	t, err := decimal.NewFromString(taker)
	if err != nil {
		return Schedule{}, errors.Join(ErrInvalidRate, err)
	}
	if t.IsNegative() {
		return Schedule{}, ErrInvalidRate
	}
	return Schedule{MakerRate: m, TakerRate: t}, nil
}

func (s Schedule) Fee(notional decimal.Decimal, maker bool) decimal.Decimal {
	if maker {
		return notional.Mul(s.MakerRate)
	}
	return notional.Mul(s.TakerRate)
}

// Notional is price times quantity, kept in decimal so fixed-point scales
// cannot overflow.
func Notional(price int64, qty uint64) decimal.Decimal {
	return decimal.NewFromInt(price).Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(qty), 0))
}
