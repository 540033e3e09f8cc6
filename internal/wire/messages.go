// Package wire encodes and decodes the simulator's little-endian binary
// frames. Every frame is an 8 byte header followed by a fixed size block.
package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"simex/internal/common"
)

var (
	ErrMessageTooShort = errors.New("message too short")
	ErrUnknownTemplate = errors.New("unknown template")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrUnknownMessage  = errors.New("unknown message type")
)

const (
	SchemaID      uint16 = 1
	SchemaVersion uint16 = 0
	HeaderLen            = 8
)

type TemplateID uint16

const (
	TemplateMBO TemplateID = iota + 1
	TemplateMBP10
	TemplateMBP1
	TemplateBBO1S
	TemplateBBO1M
	TemplateTrades
	TemplateOHLCV1S
	TemplateOHLCV1M
	TemplateOHLCV1H
	TemplateOrder
	TemplateExecutionReport
	TemplateCancelOrder
)

var templateNames = map[TemplateID]string{
	TemplateMBO:             "mbo",
	TemplateMBP10:           "mbp-10",
	TemplateMBP1:            "mbp-1",
	TemplateBBO1S:           "bbo-1s",
	TemplateBBO1M:           "bbo-1m",
	TemplateTrades:          "trades",
	TemplateOHLCV1S:         "ohlcv-1s",
	TemplateOHLCV1M:         "ohlcv-1m",
	TemplateOHLCV1H:         "ohlcv-1h",
	TemplateOrder:           "order",
	TemplateExecutionReport: "execution-report",
	TemplateCancelOrder:     "cancel-order",
}

func (t TemplateID) String() string {
	if name, ok := templateNames[t]; ok {
		return name
	}
	return fmt.Sprintf("template(%d)", uint16(t))
}

// Message format constants
const (
	prefixLen = 4 + 4 + 8
	levelLen  = 8 + 8 + 4 + 4 + 4 + 4
	deltaLen  = prefixLen + 8 + 8 + 8 + 4 + 1 + 1 + 1 + 4 + 1

	MBOBlockLen    = prefixLen + 8 + 8 + 8 + 8 + 4 + 1 + 1 + 1 + 4
	MBP10BlockLen  = deltaLen + 10*levelLen
	MBP1BlockLen   = deltaLen + levelLen
	TradesBlockLen = deltaLen
	BBOBlockLen    = prefixLen + 8 + 8 + 4 + 1 + 1 + 4 + levelLen
	OHLCVBlockLen  = prefixLen + 4*8 + 8
	OrderBlockLen  = 4 + 4 + 8 + 16 + 8 + 4 + 1 + 1 + 1 + 1
	ReportBlockLen = 4 + 4 + 16 + 1 + 1 + 4 + 8 + 4 + 4 + 8 + 8 + 1 + 1
	CancelBlockLen = 4 + 4 + 16 + 8
)

var blockLengths = map[TemplateID]uint16{
	TemplateMBO:             MBOBlockLen,
	TemplateMBP10:           MBP10BlockLen,
	TemplateMBP1:            MBP1BlockLen,
	TemplateBBO1S:           BBOBlockLen,
	TemplateBBO1M:           BBOBlockLen,
	TemplateTrades:          TradesBlockLen,
	TemplateOHLCV1S:         OHLCVBlockLen,
	TemplateOHLCV1M:         OHLCVBlockLen,
	TemplateOHLCV1H:         OHLCVBlockLen,
	TemplateOrder:           OrderBlockLen,
	TemplateExecutionReport: ReportBlockLen,
	TemplateCancelOrder:     CancelBlockLen,
}

// Header prefixes every frame.
type Header struct {
	BlockLength uint16
	TemplateID  TemplateID
	SchemaID    uint16
	Version     uint16
}

// CancelOrder asks the exchange to pull a resting order.
type CancelOrder struct {
	ExchangeID uint32
	SecurityID uint32
	ClientOID  uuid.UUID
	Timestamp  uint64
}

func (c CancelOrder) Listing() common.Listing {
	return common.Listing{ExchangeID: c.ExchangeID, SecurityID: c.SecurityID}
}
