package common

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionReport is emitted once per order state transition and never
// mutated afterwards.
type ExecutionReport struct {
	ExchangeID     uint32
	SecurityID     uint32
	ClientOID      uuid.UUID
	Side           Side
	ExecType       ExecType
	Status         OrderStatus
	FilledQty      uint64 // Quantity of this fill, zero for non-fill reports
	FillPrice      int64  // Price of this fill, zero for non-fill reports
	CumulativeQty  uint64
	LeavesQty      uint64
	Liquidity      Liquidity
	Fee            decimal.Decimal
	TimestampEvent uint64
	TimestampRecv  uint64
	RejectReason   RejectReason
}

// IsFill reports whether the report carries an execution.
func (r ExecutionReport) IsFill() bool {
	return r.ExecType == ExecFill || r.ExecType == ExecPartialFill
}

func (r ExecutionReport) String() string {
	s := fmt.Sprintf(
		"%v %v %v/%v filled=%d@%d cum=%d leaves=%d ts=%d/%d",
		r.ClientOID,
		r.Side,
		r.ExecType,
		r.Status,
		r.FilledQty,
		r.FillPrice,
		r.CumulativeQty,
		r.LeavesQty,
		r.TimestampEvent,
		r.TimestampRecv,
	)
	if r.IsFill() {
		s += fmt.Sprintf(" %v fee=%s", r.Liquidity, r.Fee)
	}
	if r.RejectReason != NoRejectReason {
		s += " reason=" + r.RejectReason.String()
	}
	return s
}
