package replay

import (
	"io"

	"simex/internal/common"
	"simex/internal/wire"
)

// Sink receives the reports produced by each routed message, in order.
type Sink interface {
	Send(reports []common.ExecutionReport) error
}

// ReportWriter encodes reports as execution report frames.
type ReportWriter struct {
	w *wire.Writer
}

func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: wire.NewWriter(w)}
}

func (rw *ReportWriter) Send(reports []common.ExecutionReport) error {
	for i := range reports {
		if err := rw.w.Write(&reports[i]); err != nil {
			return err
		}
	}
	return nil
}

func (rw *ReportWriter) Flush() error {
	return rw.w.Flush()
}

// Collector keeps reports in memory.
type Collector struct {
	Reports []common.ExecutionReport
}

func (c *Collector) Send(reports []common.ExecutionReport) error {
	c.Reports = append(c.Reports, reports...)
	return nil
}
