package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simex/internal/common"
	"simex/internal/wire"
)

func TestParseQuantities(t *testing.T) {
	assert.Equal(t, []uint64{10, 20, 50}, parseQuantities("10, 20,50"))
	assert.Equal(t, []uint64{5}, parseQuantities("x,5,-1"))
	assert.Empty(t, parseQuantities(""))
}

func TestParseTimeInForce(t *testing.T) {
	tif, ok := parseTimeInForce("FOK")
	require.True(t, ok)
	assert.Equal(t, common.FillOrKill, tif)

	_, ok = parseTimeInForce("day")
	assert.False(t, ok)
}

func TestAppendAndDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.bin")
	listing := common.Listing{ExchangeID: 1, SecurityID: 2}

	first := placeOrders(listing, common.Bid, common.LimitOrder, common.GoodTillCanceled, 100, []uint64{10, 20}, 1000)
	require.NoError(t, appendFrames(path, first))
	second := placeOrders(listing, common.Ask, common.MarketOrder, common.ImmediateOrCancel, 100, []uint64{5}, 2000)
	require.NoError(t, appendFrames(path, second))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := wire.NewReader(f)
	var orders []*common.Order
	for range 3 {
		msg, _, err := r.Next()
		require.NoError(t, err)
		orders = append(orders, msg.(*common.Order))
	}
	assert.Equal(t, uint64(1001), orders[1].Timestamp)
	assert.Equal(t, uint64(20), orders[1].Size)
	assert.NotEqual(t, orders[0].ClientOID, orders[1].ClientOID)
	assert.Equal(t, common.NullPrice, orders[2].Price)
	assert.Equal(t, common.MarketOrder, orders[2].Type)

	var out bytes.Buffer
	require.NoError(t, dump(path, &out))
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("[ORDER]")))
}
