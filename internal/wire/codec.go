package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"simex/internal/common"
	"simex/internal/marketdata"
)

// Template returns the template a message is encoded with.
func Template(msg any) (TemplateID, error) {
	switch m := msg.(type) {
	case *marketdata.MBO:
		return TemplateMBO, nil
	case *marketdata.MBP10:
		return TemplateMBP10, nil
	case *marketdata.MBP1:
		return TemplateMBP1, nil
	case *marketdata.Trades:
		return TemplateTrades, nil
	case *marketdata.BBO:
		switch m.Interval {
		case time.Second:
			return TemplateBBO1S, nil
		case time.Minute:
			return TemplateBBO1M, nil
		}
		return 0, fmt.Errorf("bbo interval %v: %w", m.Interval, ErrUnknownTemplate)
	case *marketdata.OHLCV:
		switch m.Interval {
		case time.Second:
			return TemplateOHLCV1S, nil
		case time.Minute:
			return TemplateOHLCV1M, nil
		case time.Hour:
			return TemplateOHLCV1H, nil
		}
		return 0, fmt.Errorf("ohlcv interval %v: %w", m.Interval, ErrUnknownTemplate)
	case *common.Order:
		return TemplateOrder, nil
	case *common.ExecutionReport:
		return TemplateExecutionReport, nil
	case *CancelOrder:
		return TemplateCancelOrder, nil
	}
	return 0, fmt.Errorf("%T: %w", msg, ErrUnknownMessage)
}

// Encode serializes msg into a complete frame, header included. Messages are
// passed by pointer.
func Encode(msg any) ([]byte, error) {
	tpl, err := Template(msg)
	if err != nil {
		return nil, err
	}
	blockLen := blockLengths[tpl]

	e := encoder{buf: make([]byte, 0, HeaderLen+int(blockLen))}
	e.u16(blockLen)
	e.u16(uint16(tpl))
	e.u16(SchemaID)
	e.u16(SchemaVersion)

	switch m := msg.(type) {
	case *marketdata.MBO:
		e.header(m.Header)
		e.u64(m.TsSent)
		e.u64(m.TsRecv)
		e.u64(m.OrderID)
		e.i64(m.Price)
		e.u32(m.Size)
		e.u8(byte(m.Action))
		e.u8(byte(m.Side))
		e.u8(uint8(m.Flags))
		e.u32(m.Sequence)
	case *marketdata.MBP10:
		e.header(m.Header)
		e.delta(m.Delta)
		for _, l := range m.Levels {
			e.level(l)
		}
	case *marketdata.MBP1:
		e.header(m.Header)
		e.delta(m.Delta)
		e.level(m.Level)
	case *marketdata.Trades:
		e.header(m.Header)
		e.delta(m.Delta)
	case *marketdata.BBO:
		e.header(m.Header)
		e.u64(m.TsRecv)
		e.i64(m.Price)
		e.u32(m.Size)
		e.u8(byte(m.Side))
		e.u8(uint8(m.Flags))
		e.u32(m.Sequence)
		e.level(m.Level)
	case *marketdata.OHLCV:
		e.header(m.Header)
		e.i64(m.Open)
		e.i64(m.High)
		e.i64(m.Low)
		e.i64(m.Close)
		e.u64(m.Volume)
	case *common.Order:
		e.u32(m.ExchangeID)
		e.u32(m.SecurityID)
		e.u64(m.Timestamp)
		e.uuid(m.ClientOID)
		e.i64(m.Price)
		e.u32(size32(m.Size))
		e.u8(byte(m.Side))
		e.u8(0)
		e.u8(uint8(m.Type))
		e.u8(uint8(m.TimeInForce))
	case *common.ExecutionReport:
		e.u32(m.ExchangeID)
		e.u32(m.SecurityID)
		e.uuid(m.ClientOID)
		e.u8(uint8(m.ExecType))
		e.u8(uint8(m.Status))
		e.u32(size32(m.FilledQty))
		e.i64(m.FillPrice)
		e.u32(size32(m.CumulativeQty))
		e.u32(size32(m.LeavesQty))
		e.u64(m.TimestampEvent)
		e.u64(m.TimestampRecv)
		e.u8(uint8(m.Liquidity))
		e.u8(uint8(m.RejectReason))
	case *CancelOrder:
		e.u32(m.ExchangeID)
		e.u32(m.SecurityID)
		e.uuid(m.ClientOID)
		e.u64(m.Timestamp)
	}
	return e.buf, nil
}

// size32 narrows a quantity onto the uint32 wire field, saturating below the
// null sentinel.
func size32(v uint64) uint32 {
	return uint32(min(v, uint64(common.NullSize-1)))
}

// size64 widens a wire quantity, the null sentinel reads as zero.
func size64(v uint32) uint64 {
	if v == common.NullSize {
		return 0
	}
	return uint64(v)
}

// ParseHeader reads and checks a frame header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, fmt.Errorf("header: %w", ErrMessageTooShort)
	}
	h := Header{
		BlockLength: binary.LittleEndian.Uint16(buf[0:2]),
		TemplateID:  TemplateID(binary.LittleEndian.Uint16(buf[2:4])),
		SchemaID:    binary.LittleEndian.Uint16(buf[4:6]),
		Version:     binary.LittleEndian.Uint16(buf[6:8]),
	}
	if h.SchemaID != SchemaID {
		return h, fmt.Errorf("schema %d: %w", h.SchemaID, ErrSchemaMismatch)
	}
	want, ok := blockLengths[h.TemplateID]
	if !ok {
		return h, fmt.Errorf("%v: %w", h.TemplateID, ErrUnknownTemplate)
	}
	if h.BlockLength < want {
		return h, fmt.Errorf("%v block %d < %d: %w", h.TemplateID, h.BlockLength, want, ErrMessageTooShort)
	}
	return h, nil
}

// Decode parses one complete frame.
func Decode(frame []byte) (any, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return nil, err
	}
	body := frame[HeaderLen:]
	if len(body) < int(h.BlockLength) {
		return nil, fmt.Errorf("%v body %d < %d: %w", h.TemplateID, len(body), h.BlockLength, ErrMessageTooShort)
	}
	return decodeBlock(h, body[:h.BlockLength]), nil
}

// decodeBlock reads a block already checked to be at least the template's
// size. Trailing bytes from newer schema versions are ignored.
func decodeBlock(h Header, block []byte) any {
	d := decoder{buf: block}
	switch h.TemplateID {
	case TemplateMBO:
		return &marketdata.MBO{
			Header:   d.header(),
			TsSent:   d.u64(),
			TsRecv:   d.u64(),
			OrderID:  d.u64(),
			Price:    d.i64(),
			Size:     d.u32(),
			Action:   marketdata.Action(d.u8()),
			Side:     common.Side(d.u8()),
			Flags:    marketdata.Flags(d.u8()),
			Sequence: d.u32(),
		}
	case TemplateMBP10:
		m := &marketdata.MBP10{Header: d.header(), Delta: d.delta()}
		for i := range m.Levels {
			m.Levels[i] = d.level()
		}
		return m
	case TemplateMBP1:
		return &marketdata.MBP1{Header: d.header(), Delta: d.delta(), Level: d.level()}
	case TemplateTrades:
		return &marketdata.Trades{Header: d.header(), Delta: d.delta()}
	case TemplateBBO1S, TemplateBBO1M:
		interval := time.Second
		if h.TemplateID == TemplateBBO1M {
			interval = time.Minute
		}
		return &marketdata.BBO{
			Header:   d.header(),
			Interval: interval,
			TsRecv:   d.u64(),
			Price:    d.i64(),
			Size:     d.u32(),
			Side:     common.Side(d.u8()),
			Flags:    marketdata.Flags(d.u8()),
			Sequence: d.u32(),
			Level:    d.level(),
		}
	case TemplateOHLCV1S, TemplateOHLCV1M, TemplateOHLCV1H:
		interval := time.Second
		switch h.TemplateID {
		case TemplateOHLCV1M:
			interval = time.Minute
		case TemplateOHLCV1H:
			interval = time.Hour
		}
		return &marketdata.OHLCV{
			Header:   d.header(),
			Interval: interval,
			Open:     d.i64(),
			High:     d.i64(),
			Low:      d.i64(),
			Close:    d.i64(),
			Volume:   d.u64(),
		}
	case TemplateOrder:
		o := &common.Order{
			ExchangeID: d.u32(),
			SecurityID: d.u32(),
			Timestamp:  d.u64(),
			ClientOID:  d.uuid(),
			Price:      d.i64(),
			Size:       size64(d.u32()),
			Side:       common.Side(d.u8()),
		}
		d.u8() // flags, reserved
		o.Type = common.OrderType(d.u8())
		o.TimeInForce = common.TimeInForce(d.u8())
		return o
	case TemplateExecutionReport:
		return &common.ExecutionReport{
			ExchangeID:     d.u32(),
			SecurityID:     d.u32(),
			ClientOID:      d.uuid(),
			ExecType:       common.ExecType(d.u8()),
			Status:         common.OrderStatus(d.u8()),
			FilledQty:      size64(d.u32()),
			FillPrice:      d.i64(),
			CumulativeQty:  size64(d.u32()),
			LeavesQty:      size64(d.u32()),
			TimestampEvent: d.u64(),
			TimestampRecv:  d.u64(),
			Liquidity:      common.Liquidity(d.u8()),
			RejectReason:   common.RejectReason(d.u8()),
		}
	case TemplateCancelOrder:
		return &CancelOrder{
			ExchangeID: d.u32(),
			SecurityID: d.u32(),
			ClientOID:  d.uuid(),
			Timestamp:  d.u64(),
		}
	}
	return nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)  { e.u64(uint64(v)) }

func (e *encoder) uuid(id uuid.UUID) { e.buf = append(e.buf, id[:]...) }

func (e *encoder) header(h marketdata.Header) {
	e.u32(h.ExchangeID)
	e.u32(h.SecurityID)
	e.u64(h.TsEvent)
}

func (e *encoder) delta(m marketdata.Delta) {
	e.u64(m.TsSent)
	e.u64(m.TsRecv)
	e.i64(m.Price)
	e.u32(m.Size)
	e.u8(byte(m.Action))
	e.u8(byte(m.Side))
	e.u8(uint8(m.Flags))
	e.u32(m.Sequence)
	e.u8(m.Depth)
}

func (e *encoder) level(l marketdata.Level) {
	e.i64(l.BidPx)
	e.i64(l.AskPx)
	e.u32(l.BidSz)
	e.u32(l.AskSz)
	e.u32(l.BidCt)
	e.u32(l.AskCt)
}

// decoder reads sequentially from a block whose length was checked up front.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) u8() uint8 {
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) u32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) u64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) uuid() uuid.UUID {
	var id uuid.UUID
	d.off += copy(id[:], d.buf[d.off:d.off+16])
	return id
}

func (d *decoder) header() marketdata.Header {
	return marketdata.Header{ExchangeID: d.u32(), SecurityID: d.u32(), TsEvent: d.u64()}
}

func (d *decoder) delta() marketdata.Delta {
	return marketdata.Delta{
		TsSent:   d.u64(),
		TsRecv:   d.u64(),
		Price:    d.i64(),
		Size:     d.u32(),
		Action:   marketdata.Action(d.u8()),
		Side:     common.Side(d.u8()),
		Flags:    marketdata.Flags(d.u8()),
		Sequence: d.u32(),
		Depth:    d.u8(),
	}
}

func (d *decoder) level() marketdata.Level {
	return marketdata.Level{
		BidPx: d.i64(),
		AskPx: d.i64(),
		BidSz: d.u32(),
		AskSz: d.u32(),
		BidCt: d.u32(),
		AskCt: d.u32(),
	}
}
