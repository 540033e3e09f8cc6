package replay

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simex/internal/common"
	"simex/internal/engine"
	"simex/internal/marketdata"
	"simex/internal/metrics"
	"simex/internal/wire"
)

var testListing = common.Listing{ExchangeID: 1, SecurityID: 1}

func testFactory(listing common.Listing) (*engine.Exchange, error) {
	return engine.New(nil, nil, nil, nil, engine.WithListing(listing)), nil
}

func limit(id byte, side common.Side, price int64, size uint64, ts uint64) *common.Order {
	return &common.Order{
		ExchangeID:  testListing.ExchangeID,
		SecurityID:  testListing.SecurityID,
		ClientOID:   uuid.UUID{id},
		Side:        side,
		Price:       price,
		Size:        size,
		Type:        common.LimitOrder,
		TimeInForce: common.GoodTillCanceled,
		Timestamp:   ts,
	}
}

func tradePrint(aggressor common.Side, price int64, size uint32, ts uint64) *marketdata.Trades {
	return &marketdata.Trades{
		Header: marketdata.Header{ExchangeID: testListing.ExchangeID, SecurityID: testListing.SecurityID, TsEvent: ts},
		Delta:  marketdata.Delta{Price: price, Size: size, Action: marketdata.Trade, Side: aggressor, Sequence: 1},
	}
}

func encodeFrames(t *testing.T, msgs ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	for _, m := range msgs {
		require.NoError(t, w.Write(m))
	}
	require.NoError(t, w.Flush())
	return &buf
}

func execTypes(reports []common.ExecutionReport) []common.ExecType {
	types := make([]common.ExecType, len(reports))
	for i, r := range reports {
		types[i] = r.ExecType
	}
	return types
}

func TestPipeline_OrdersAndCancels(t *testing.T) {
	input := encodeFrames(t,
		limit(1, common.Ask, 999, 100, 10),
		limit(2, common.Bid, 1000, 60, 20),
		&wire.CancelOrder{ExchangeID: 1, SecurityID: 1, ClientOID: uuid.UUID{1}, Timestamp: 30},
		&wire.CancelOrder{ExchangeID: 1, SecurityID: 1, ClientOID: uuid.UUID{9}, Timestamp: 40},
	)

	var sink Collector
	p := NewPipeline(NewRouter(testFactory), &sink, nil)
	require.NoError(t, p.Run(context.Background(), input))

	assert.Equal(t, uint64(4), p.Frames())
	assert.Equal(t, []common.ExecType{
		common.ExecNew,
		common.ExecNew, common.ExecFill, common.ExecPartialFill,
		common.ExecCancel,
		common.ExecCancelReject,
	}, execTypes(sink.Reports))
	assert.Equal(t, uint64(60), sink.Reports[4].CumulativeQty)
	assert.Equal(t, common.RejectUnknownOrder, sink.Reports[5].RejectReason)
}

func TestPipeline_TradePrintFillsRestingOrder(t *testing.T) {
	input := encodeFrames(t,
		limit(1, common.Bid, 100, 10, 10),
		tradePrint(common.Ask, 100, 4, 20),
		tradePrint(common.Ask, 101, 50, 30),
	)

	reg := prometheus.NewRegistry()
	var sink Collector
	router := NewRouter(testFactory)
	p := NewPipeline(router, &sink, metrics.NewRecorder(reg))
	require.NoError(t, p.Run(context.Background(), input))

	require.Equal(t, []common.ExecType{common.ExecNew, common.ExecPartialFill}, execTypes(sink.Reports))
	fill := sink.Reports[1]
	assert.Equal(t, common.Maker, fill.Liquidity)
	assert.Equal(t, uint64(4), fill.FilledQty)
	assert.Equal(t, int64(100), fill.FillPrice)

	ex, err := router.Exchange(testListing)
	require.NoError(t, err)
	price, _, ok := ex.Reference().FallbackQuote(common.Bid)
	require.True(t, ok)
	assert.Equal(t, int64(101), price, "last trade recorded")

	frames, err := testutil.GatherAndCount(reg, "simex_frames_total")
	require.NoError(t, err)
	assert.Equal(t, 2, frames, "order and trades templates")
	orders, err := testutil.GatherAndCount(reg, "simex_resting_orders")
	require.NoError(t, err)
	assert.Equal(t, 1, orders)
}

func TestPipeline_MalformedFrame(t *testing.T) {
	input := encodeFrames(t, limit(1, common.Bid, 100, 10, 10))
	bad := encodeFrames(t, limit(2, common.Bid, 100, 10, 20)).Bytes()
	binary.LittleEndian.PutUint16(bad[2:4], 99)
	input.Write(bad)

	var sink Collector
	err := NewPipeline(NewRouter(testFactory), &sink, nil).Run(context.Background(), input)
	assert.ErrorIs(t, err, wire.ErrUnknownTemplate)
	assert.Equal(t, []common.ExecType{common.ExecNew}, execTypes(sink.Reports))
}

func TestPipeline_UnknownListing(t *testing.T) {
	router := NewRouter(nil)
	router.Add(engine.New(nil, nil, nil, nil, engine.WithListing(testListing)))

	order := limit(1, common.Bid, 100, 10, 10)
	order.SecurityID = 2
	var sink Collector
	err := NewPipeline(router, &sink, nil).Run(context.Background(), encodeFrames(t, order))
	assert.ErrorIs(t, err, ErrUnknownListing)
	assert.Empty(t, sink.Reports)
}

func TestRouter(t *testing.T) {
	router := NewRouter(testFactory)
	_, err := router.Route(&common.ExecutionReport{})
	assert.ErrorIs(t, err, ErrUnroutable)

	for _, l := range []common.Listing{{ExchangeID: 2, SecurityID: 1}, {ExchangeID: 1, SecurityID: 7}, {ExchangeID: 1, SecurityID: 3}} {
		_, err := router.Exchange(l)
		require.NoError(t, err)
	}
	assert.Equal(t, []common.Listing{
		{ExchangeID: 1, SecurityID: 3},
		{ExchangeID: 1, SecurityID: 7},
		{ExchangeID: 2, SecurityID: 1},
	}, router.Listings())
}

func TestReportWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := NewReportWriter(&buf)
	require.NoError(t, rw.Send([]common.ExecutionReport{
		{ExchangeID: 1, SecurityID: 1, ClientOID: uuid.UUID{1}, ExecType: common.ExecNew, RejectReason: common.NoRejectReason},
		{ExchangeID: 1, SecurityID: 1, ClientOID: uuid.UUID{1}, ExecType: common.ExecCancel, RejectReason: common.NoRejectReason},
	}))
	require.NoError(t, rw.Flush())

	r := wire.NewReader(&buf)
	for _, want := range []common.ExecType{common.ExecNew, common.ExecCancel} {
		msg, h, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, wire.TemplateExecutionReport, h.TemplateID)
		assert.Equal(t, want, msg.(*common.ExecutionReport).ExecType)
	}
}
