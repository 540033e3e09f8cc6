// Package config loads the simulator settings from YAML and SIMEX_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"simex/internal/common"
	"simex/internal/engine"
	"simex/internal/fee"
	"simex/internal/latency"
	"simex/internal/queue"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	QueueFIFO      = "fifo"
	QueueSimple    = "simple"
	QueueRealistic = "realistic"
)

type Config struct {
	Listing ListingConfig `mapstructure:"listing"`
	Fees    FeeConfig     `mapstructure:"fees"`
	Latency LatencyConfig `mapstructure:"latency"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Log     LogConfig     `mapstructure:"log"`
}

type ListingConfig struct {
	ExchangeID uint32 `mapstructure:"exchange_id"`
	SecurityID uint32 `mapstructure:"security_id"`
}

func (l ListingConfig) Listing() common.Listing {
	return common.Listing{ExchangeID: l.ExchangeID, SecurityID: l.SecurityID}
}

// FeeConfig rates are decimal strings so they parse exactly.
type FeeConfig struct {
	Maker string `mapstructure:"maker"`
	Taker string `mapstructure:"taker"`
}

type Distribution struct {
	Mean   time.Duration `mapstructure:"mean"`
	StdDev time.Duration `mapstructure:"stddev"`
}

type LatencyConfig struct {
	Network    Distribution `mapstructure:"network"`
	Processing Distribution `mapstructure:"processing"`
}

type QueueConfig struct {
	Model         string  `mapstructure:"model"`
	Base          float64 `mapstructure:"base"`
	SizeAdvantage float64 `mapstructure:"size_advantage"`
	Noise         float64 `mapstructure:"noise"`
	Seed          uint64  `mapstructure:"seed"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listing.exchange_id", 1)
	v.SetDefault("listing.security_id", 1)
	v.SetDefault("fees.maker", "0")
	v.SetDefault("fees.taker", "0")
	v.SetDefault("latency.network.mean", "0s")
	v.SetDefault("latency.network.stddev", "0s")
	v.SetDefault("latency.processing.mean", "0s")
	v.SetDefault("latency.processing.stddev", "0s")
	v.SetDefault("queue.model", QueueFIFO)
	v.SetDefault("queue.base", 0.8)
	v.SetDefault("queue.size_advantage", 0.2)
	v.SetDefault("queue.noise", 0.1)
	v.SetDefault("queue.seed", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the YAML file at path, if any, applies environment overrides
// (SIMEX_QUEUE_MODEL overrides queue.model) and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SIMEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := fee.NewSchedule(c.Fees.Maker, c.Fees.Taker); err != nil {
		errs = append(errs, fmt.Errorf("fees: %w", err))
	}
	for _, l := range []struct {
		name string
		d    Distribution
	}{
		{"network", c.Latency.Network},
		{"processing", c.Latency.Processing},
	} {
		if l.d.Mean < 0 || l.d.StdDev < 0 {
			errs = append(errs, fmt.Errorf("latency.%s must not be negative", l.name))
		}
	}
	switch c.Queue.Model {
	case QueueFIFO, QueueSimple, QueueRealistic:
	default:
		errs = append(errs, fmt.Errorf("queue.model %q", c.Queue.Model))
	}
	if c.Queue.Base < 0 || c.Queue.Base > 1 {
		errs = append(errs, fmt.Errorf("queue.base %v outside [0, 1]", c.Queue.Base))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

func (d Distribution) model(seed uint64) latency.Model {
	switch {
	case d.StdDev > 0:
		return latency.NewGaussian(d.Mean, d.StdDev, latency.NewSource(seed))
	case d.Mean > 0:
		return latency.Constant(d.Mean)
	}
	return latency.Zero{}
}

func (q QueueConfig) model() queue.Model {
	switch q.Model {
	case QueueSimple:
		return queue.NewSimple(q.Base, latency.NewSource(q.Seed))
	case QueueRealistic:
		return queue.NewRealistic(q.Base, q.SizeAdvantage, q.Noise, latency.NewSource(q.Seed))
	}
	return queue.FIFO{}
}

// Exchange builds the exchange for the configured listing.
func (c *Config) Exchange(logger zerolog.Logger) (*engine.Exchange, error) {
	return c.ExchangeFor(c.Listing.Listing(), logger)
}

// ExchangeFor builds an exchange for listing from the configured models. Each
// random model draws from its own stream derived from the seed.
func (c *Config) ExchangeFor(listing common.Listing, logger zerolog.Logger) (*engine.Exchange, error) {
	fees, err := fee.NewSchedule(c.Fees.Maker, c.Fees.Taker)
	if err != nil {
		return nil, err
	}
	seed := c.Queue.Seed
	return engine.New(
		fees,
		c.Latency.Network.model(seed+1),
		c.Latency.Processing.model(seed+2),
		c.Queue.model(),
		engine.WithListing(listing),
		engine.WithLogger(logger),
	), nil
}

// Logger builds the process logger.
func (l LogConfig) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if l.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
