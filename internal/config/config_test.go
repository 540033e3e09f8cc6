package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simex/internal/common"
	"simex/internal/queue"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, common.Listing{ExchangeID: 1, SecurityID: 1}, cfg.Listing.Listing())
	assert.Equal(t, QueueFIFO, cfg.Queue.Model)
	assert.Equal(t, "0", cfg.Fees.Maker)
	assert.Equal(t, time.Duration(0), cfg.Latency.Network.Mean)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listing:
  exchange_id: 2
  security_id: 42
fees:
  maker: "0.0005"
  taker: "0.001"
latency:
  network:
    mean: 300us
    stddev: 50us
  processing:
    mean: 200ns
queue:
  model: realistic
  base: 0.7
  seed: 99
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, common.Listing{ExchangeID: 2, SecurityID: 42}, cfg.Listing.Listing())
	assert.Equal(t, "0.001", cfg.Fees.Taker)
	assert.Equal(t, 300*time.Microsecond, cfg.Latency.Network.Mean)
	assert.Equal(t, 50*time.Microsecond, cfg.Latency.Network.StdDev)
	assert.Equal(t, 200*time.Nanosecond, cfg.Latency.Processing.Mean)
	assert.Equal(t, QueueRealistic, cfg.Queue.Model)
	assert.Equal(t, 0.7, cfg.Queue.Base)
	assert.Equal(t, 0.2, cfg.Queue.SizeAdvantage, "default kept")
	assert.Equal(t, uint64(99), cfg.Queue.Seed)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "queue:\n  model: realistic\n")
	t.Setenv("SIMEX_QUEUE_MODEL", "simple")
	t.Setenv("SIMEX_FEES_TAKER", "0.002")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, QueueSimple, cfg.Queue.Model)
	assert.Equal(t, "0.002", cfg.Fees.Taker)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := map[string]string{
		"queue model": "queue:\n  model: lifo\n",
		"queue base":  "queue:\n  base: 1.5\n",
		"fee":         "fees:\n  maker: abc\n",
		"log level":   "log:\n  level: loud\n",
		"log format":  "log:\n  format: xml\n",
		"latency":     "latency:\n  network:\n    mean: -1s\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate_ErrorOrder(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Latency.Processing.StdDev = -time.Microsecond
	cfg.Latency.Network.Mean = -time.Microsecond
	cfg.Queue.Model = "lifo"

	want := strings.Join([]string{
		ErrInvalidConfig.Error(),
		"latency.network must not be negative",
		"latency.processing must not be negative",
		`queue.model "lifo"`,
	}, "\n")
	for range 20 {
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Equal(t, want, err.Error())
	}
}

func TestExchange(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
listing:
  security_id: 5
fees:
  taker: "0.001"
latency:
  network:
    mean: 300ns
  processing:
    mean: 200ns
`))
	require.NoError(t, err)

	ex, err := cfg.Exchange(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, common.Listing{ExchangeID: 1, SecurityID: 5}, ex.Listing())

	reports := ex.SubmitOrder(common.Order{
		ExchangeID: 1, SecurityID: 5, Side: common.Bid, Price: 100, Size: 10,
		Type: common.LimitOrder, TimeInForce: common.GoodTillCanceled, Timestamp: 1000,
	})
	require.Len(t, reports, 1)
	assert.Equal(t, uint64(1200), reports[0].TimestampEvent)
	assert.Equal(t, uint64(1500), reports[0].TimestampRecv)
}

func TestQueueModel(t *testing.T) {
	assert.IsType(t, queue.FIFO{}, QueueConfig{Model: QueueFIFO}.model())
	assert.IsType(t, &queue.Simple{}, QueueConfig{Model: QueueSimple, Base: 0.5}.model())
	assert.IsType(t, &queue.Realistic{}, QueueConfig{Model: QueueRealistic, Base: 0.5}.model())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}
