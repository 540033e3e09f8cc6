package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"simex/internal/common"
	"simex/internal/config"
	"simex/internal/engine"
	"simex/internal/metrics"
	"simex/internal/replay"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (SIMEX_* env vars override it)")
	input := flag.String("input", "", "Replay input: market data and order entry frames (compulsory)")
	output := flag.String("output", "reports.bin", "File the execution report frames are written to")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	log.Logger = cfg.Log.Logger(os.Stderr)

	if *input == "" {
		flag.Usage()
		log.Fatal().Msg("-input is compulsory")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	if err := run(ctx, cfg, *input, *output, *metricsAddr); err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}
}

func run(ctx context.Context, cfg *config.Config, input, output, metricsAddr string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close output")
		}
	}()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("unable to stop metrics server")
			}
		}()
	}

	router := replay.NewRouter(func(listing common.Listing) (*engine.Exchange, error) {
		return cfg.ExchangeFor(listing, log.Logger)
	})
	ex, err := cfg.Exchange(log.Logger)
	if err != nil {
		return err
	}
	router.Add(ex)

	sink := replay.NewReportWriter(out)
	pipeline := replay.NewPipeline(router, sink, recorder)

	log.Info().
		Str("input", input).
		Str("output", output).
		Str("queue", cfg.Queue.Model).
		Msg("replay running")
	start := time.Now()

	err = pipeline.Run(ctx, in)
	if flushErr := sink.Flush(); flushErr != nil {
		err = errors.Join(err, flushErr)
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("replay interrupted")
		err = nil
	}

	for _, listing := range router.Listings() {
		dumpBook(router, listing)
	}
	log.Info().
		Uint64("frames", pipeline.Frames()).
		Dur("elapsed", time.Since(start)).
		Msg("replay finished")
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("address", addr).Msg("serving metrics")
	return srv
}

func dumpBook(router *replay.Router, listing common.Listing) {
	if log.Logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	ex, err := router.Exchange(listing)
	if err != nil {
		return
	}
	book := ex.Book()
	log.Debug().
		Stringer("listing", listing).
		Int("orders", book.Len()).
		Interface("bids", engine.FlattenLevels(book.Bids())).
		Interface("asks", engine.FlattenLevels(book.Asks())).
		Msg("final book")
}
