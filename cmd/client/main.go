package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"simex/internal/common"
	"simex/internal/wire"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	file := flag.String("file", "orders.bin", "Replay input file orders are appended to, or report file to dump")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'dump']")

	// Order parameters
	exchangeID := flag.Uint("exchange", 1, "Exchange id of the listing")
	securityID := flag.Uint("security", 1, "Security id of the listing")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	tifStr := flag.String("tif", "gtc", "Time in force: 'gtc', 'ioc', 'fok' or 'gtx'")
	price := flag.Int64("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")
	ts := flag.Uint64("ts", 0, "Event timestamp in ns since epoch (default now)")

	// Cancel parameters
	id := flag.String("uuid", "", "UUID of the order to cancel")

	flag.Parse()

	timestamp := *ts
	if timestamp == 0 {
		timestamp = uint64(time.Now().UnixNano())
	}
	listing := common.Listing{ExchangeID: uint32(*exchangeID), SecurityID: uint32(*securityID)}

	var err error
	switch strings.ToLower(*action) {
	case "place":
		side := common.Bid
		if strings.ToLower(*sideStr) == "sell" {
			side = common.Ask
		}
		orderType := common.LimitOrder
		if strings.ToLower(*typeStr) == "market" {
			orderType = common.MarketOrder
		}
		tif, ok := parseTimeInForce(*tifStr)
		if !ok {
			log.Fatal().Str("tif", *tifStr).Msg("unknown time in force")
		}
		err = appendFrames(*file, placeOrders(listing, side, orderType, tif, *price, parseQuantities(*qtyStr), timestamp))

	case "cancel":
		if *id == "" {
			log.Fatal().Msg("-uuid is required for cancellation")
		}
		clientOID, parseErr := uuid.Parse(*id)
		if parseErr != nil {
			log.Fatal().Err(parseErr).Msg("invalid -uuid")
		}
		err = appendFrames(*file, []any{&wire.CancelOrder{
			ExchangeID: listing.ExchangeID,
			SecurityID: listing.SecurityID,
			ClientOID:  clientOID,
			Timestamp:  timestamp,
		}})

	case "dump":
		err = dump(*file, os.Stdout)

	default:
		log.Fatal().Str("action", *action).Msg("unknown action")
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("client failed")
	}
}

// parseQuantities splits a comma-separated string into a slice of uint64
func parseQuantities(input string) []uint64 {
	parts := strings.Split(input, ",")
	var result []uint64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Warn().Str("qty", p).Msg("invalid quantity, skipping")
		}
	}
	return result
}

func parseTimeInForce(s string) (common.TimeInForce, bool) {
	switch strings.ToLower(s) {
	case "gtc":
		return common.GoodTillCanceled, true
	case "ioc":
		return common.ImmediateOrCancel, true
	case "fok":
		return common.FillOrKill, true
	case "gtx":
		return common.GoodTillCrossing, true
	}
	return 0, false
}

// placeOrders builds one order per quantity. Timestamps step by 1ns so the
// orders replay in the order given.
func placeOrders(listing common.Listing, side common.Side, orderType common.OrderType, tif common.TimeInForce, price int64, quantities []uint64, ts uint64) []any {
	msgs := make([]any, 0, len(quantities))
	for i, q := range quantities {
		o := &common.Order{
			ExchangeID:  listing.ExchangeID,
			SecurityID:  listing.SecurityID,
			ClientOID:   uuid.New(),
			Side:        side,
			Price:       price,
			Size:        q,
			Type:        orderType,
			TimeInForce: tif,
			Timestamp:   ts + uint64(i),
		}
		if orderType == common.MarketOrder {
			o.Price = common.NullPrice
		}
		msgs = append(msgs, o)
	}
	return msgs
}

func appendFrames(path string, msgs []any) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := wire.NewWriter(f)
	for _, m := range msgs {
		if err := w.Write(m); err != nil {
			f.Close()
			return err
		}
		fmt.Printf("-> %v\n", m)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// dump prints every frame in path, one per line.
func dump(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := wire.NewReader(f)
	for {
		msg, h, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *common.ExecutionReport:
			fmt.Fprintf(out, "[EXECUTION] %v\n", *m)
		case *common.Order:
			fmt.Fprintf(out, "[ORDER] %v\n", *m)
		default:
			fmt.Fprintf(out, "[%s] %+v\n", strings.ToUpper(h.TemplateID.String()), m)
		}
	}
}
