// Package metrics exposes replay counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"simex/internal/common"
)

type Recorder struct {
	reports  *prometheus.CounterVec
	filled   *prometheus.CounterVec
	frames   *prometheus.CounterVec
	depth    *prometheus.GaugeVec
	bookSize *prometheus.GaugeVec
}

// NewRecorder registers the simulator's collectors with reg. A nil reg uses
// the default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simex_execution_reports_total",
				Help: "Execution reports emitted, by exec type",
			},
			[]string{"exec_type"},
		),
		filled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simex_filled_quantity_total",
				Help: "Filled quantity, by order side and liquidity role",
			},
			[]string{"side", "liquidity"},
		),
		frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simex_frames_total",
				Help: "Frames decoded from the replay input, by template",
			},
			[]string{"template"},
		),
		depth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "simex_book_depth",
				Help: "Price levels resting in the simulated book, by side",
			},
			[]string{"listing", "side"},
		),
		bookSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "simex_resting_orders",
				Help: "Orders resting in the simulated book",
			},
			[]string{"listing"},
		),
	}
}

func (r *Recorder) Reports(reports []common.ExecutionReport) {
	for _, rep := range reports {
		r.reports.WithLabelValues(rep.ExecType.String()).Inc()
		if rep.IsFill() {
			r.filled.WithLabelValues(rep.Side.String(), rep.Liquidity.String()).Add(float64(rep.FilledQty))
		}
	}
}

func (r *Recorder) Frame(template string) {
	r.frames.WithLabelValues(template).Inc()
}

// Book records the shape of a listing's book.
func (r *Recorder) Book(listing common.Listing, bidLevels, askLevels, orders int) {
	l := listing.String()
	r.depth.WithLabelValues(l, common.Bid.String()).Set(float64(bidLevels))
	r.depth.WithLabelValues(l, common.Ask.String()).Set(float64(askLevels))
	r.bookSize.WithLabelValues(l).Set(float64(orders))
}
