package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simex/internal/common"
	"simex/internal/marketdata"
)

func TestBlockLengths(t *testing.T) {
	assert.Equal(t, 59, MBOBlockLen)
	assert.Equal(t, 372, MBP10BlockLen)
	assert.Equal(t, 84, MBP1BlockLen)
	assert.Equal(t, 52, TradesBlockLen)
	assert.Equal(t, 74, BBOBlockLen)
	assert.Equal(t, 56, OHLCVBlockLen)
	assert.Equal(t, 48, OrderBlockLen)
	assert.Equal(t, 64, ReportBlockLen)
	assert.Equal(t, 32, CancelBlockLen)
}

func TestEncode_OrderLayout(t *testing.T) {
	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	frame, err := Encode(&common.Order{
		ExchangeID:  1,
		SecurityID:  7,
		Timestamp:   0x0102030405060708,
		ClientOID:   id,
		Price:       -2,
		Size:        300,
		Side:        common.Bid,
		Type:        common.MarketOrder,
		TimeInForce: common.FillOrKill,
	})
	require.NoError(t, err)
	require.Len(t, frame, HeaderLen+OrderBlockLen)

	// Header: blockLength, templateId, schemaId, version.
	assert.Equal(t, []byte{48, 0, 10, 0, 1, 0, 0, 0}, frame[:8])

	body := frame[8:]
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(body[0:4]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(body[4:8]))
	assert.Equal(t, byte(0x08), body[8], "little endian timestamp")
	assert.Equal(t, id[:], body[16:32])
	assert.Equal(t, int64(-2), int64(binary.LittleEndian.Uint64(body[32:40])))
	assert.Equal(t, uint32(300), binary.LittleEndian.Uint32(body[40:44]))
	assert.Equal(t, byte('B'), body[44])
	assert.Equal(t, byte(1), body[46])
	assert.Equal(t, byte(3), body[47])
}

func TestRoundTrip(t *testing.T) {
	levels := [10]marketdata.Level{}
	for i := range levels {
		levels[i] = marketdata.Level{BidPx: int64(100 - i), AskPx: int64(101 + i), BidSz: uint32(i + 1), AskSz: uint32(i + 2), BidCt: 1, AskCt: 2}
	}
	hdr := marketdata.Header{ExchangeID: 3, SecurityID: 9, TsEvent: 1_700_000_000_000_000_000}
	delta := marketdata.Delta{TsSent: 1, TsRecv: 2, Price: 100, Size: 5, Action: marketdata.Trade, Side: common.Ask, Flags: marketdata.FlagLast | marketdata.FlagMBP, Sequence: 77, Depth: 0}

	tests := []struct {
		name string
		tpl  TemplateID
		msg  any
	}{
		{"mbo", TemplateMBO, &marketdata.MBO{Header: hdr, TsSent: 1, TsRecv: 2, OrderID: 3, Price: common.NullPrice, Size: common.NullSize, Action: marketdata.Clear, Side: common.NoSide, Flags: marketdata.FlagSnapshot, Sequence: common.NullSequence}},
		{"mbp-10", TemplateMBP10, &marketdata.MBP10{Header: hdr, Delta: delta, Levels: levels}},
		{"mbp-1", TemplateMBP1, &marketdata.MBP1{Header: hdr, Delta: delta, Level: levels[0]}},
		{"trades", TemplateTrades, &marketdata.Trades{Header: hdr, Delta: delta}},
		{"bbo-1s", TemplateBBO1S, &marketdata.BBO{Header: hdr, Interval: time.Second, TsRecv: 4, Price: 100, Size: 1, Side: common.Bid, Sequence: 8, Level: levels[0]}},
		{"bbo-1m", TemplateBBO1M, &marketdata.BBO{Header: hdr, Interval: time.Minute, Price: common.NullPrice, Size: common.NullSize, Side: common.NoSide, Level: marketdata.EmptyLevel}},
		{"ohlcv-1h", TemplateOHLCV1H, &marketdata.OHLCV{Header: hdr, Interval: time.Hour, Open: 1, High: 4, Low: -1, Close: 2, Volume: 1 << 40}},
		{"cancel", TemplateCancelOrder, &CancelOrder{ExchangeID: 3, SecurityID: 9, ClientOID: uuid.New(), Timestamp: 42}},
		{"report", TemplateExecutionReport, &common.ExecutionReport{
			ExchangeID: 3, SecurityID: 9, ClientOID: uuid.New(),
			ExecType: common.ExecPartialFill, Status: common.StatusPartiallyFilled,
			FilledQty: 10, FillPrice: 999, CumulativeQty: 10, LeavesQty: 90,
			Liquidity: common.Maker, TimestampEvent: 5, TimestampRecv: 6,
			RejectReason: common.NoRejectReason,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.msg)
			require.NoError(t, err)
			h, err := ParseHeader(frame)
			require.NoError(t, err)
			assert.Equal(t, tt.tpl, h.TemplateID)
			assert.Equal(t, int(h.BlockLength), len(frame)-HeaderLen)

			got, err := Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	frame, err := Encode(&CancelOrder{ExchangeID: 1, SecurityID: 1, ClientOID: uuid.New(), Timestamp: 1})
	require.NoError(t, err)

	_, err = Decode(frame[:5])
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = Decode(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrMessageTooShort)

	short := bytes.Clone(frame)
	binary.LittleEndian.PutUint16(short[0:2], CancelBlockLen-1)
	_, err = Decode(short)
	assert.ErrorIs(t, err, ErrMessageTooShort)

	unknown := bytes.Clone(frame)
	binary.LittleEndian.PutUint16(unknown[2:4], 99)
	_, err = Decode(unknown)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	schema := bytes.Clone(frame)
	binary.LittleEndian.PutUint16(schema[4:6], 2)
	_, err = Decode(schema)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Encode(&marketdata.OHLCV{Interval: 5 * time.Minute})
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = Encode(struct{}{})
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestDecode_LongerBlockIsSkipped(t *testing.T) {
	cancel := &CancelOrder{ExchangeID: 1, SecurityID: 2, ClientOID: uuid.New(), Timestamp: 3}
	frame, err := Encode(cancel)
	require.NoError(t, err)

	// A newer schema version appending a field.
	binary.LittleEndian.PutUint16(frame[0:2], CancelBlockLen+4)
	binary.LittleEndian.PutUint16(frame[6:8], 1)
	frame = append(frame, 0xde, 0xad, 0xbe, 0xef)
	next, err := Encode(cancel)
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(append(frame, next...)))
	for range 2 {
		msg, _, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, cancel, msg)
	}
	_, _, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	order := &common.Order{ExchangeID: 1, SecurityID: 1, ClientOID: uuid.New(), Side: common.Ask, Price: 10, Size: 5, Type: common.LimitOrder, TimeInForce: common.ImmediateOrCancel, Timestamp: 9}
	report := &common.ExecutionReport{ExchangeID: 1, SecurityID: 1, ClientOID: order.ClientOID, ExecType: common.ExecReject, Status: common.StatusRejected, RejectReason: common.RejectInvalidPrice}
	require.NoError(t, w.Write(order))
	require.NoError(t, w.Write(report))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	msg, h, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TemplateOrder, h.TemplateID)
	assert.Equal(t, order, msg)

	msg, _, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, report, msg)

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_Truncated(t *testing.T) {
	frame, err := Encode(&CancelOrder{ClientOID: uuid.New()})
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(frame[:HeaderLen+3]))
	_, _, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	r = NewReader(bytes.NewReader(frame[:3]))
	_, _, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOrderSizeSentinels(t *testing.T) {
	frame, err := Encode(&common.Order{Size: 1 << 40, Side: common.Bid})
	require.NoError(t, err)
	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(common.NullSize-1), got.(*common.Order).Size, "saturates below null")

	binary.LittleEndian.PutUint32(frame[HeaderLen+40:], common.NullSize)
	got, err = Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.(*common.Order).Size, "null reads as zero")
}
