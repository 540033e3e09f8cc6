// Package replay drives exchanges from a recorded stream of market data and
// order entry frames.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"simex/internal/common"
	"simex/internal/metrics"
	"simex/internal/wire"
)

const (
	FRAME_CHAN_SIZE = 100
)

type frame struct {
	msg    any
	header wire.Header
}

// Pipeline decodes frames on one goroutine and applies them on another.
// Matching stays single threaded.
type Pipeline struct {
	router   *Router
	sink     Sink
	recorder *metrics.Recorder
	frames   uint64
}

// NewPipeline wires a router to a sink. recorder may be nil.
func NewPipeline(router *Router, sink Sink, recorder *metrics.Recorder) *Pipeline {
	return &Pipeline{router: router, sink: sink, recorder: recorder}
}

// Frames returns the number of frames applied so far. Only valid after Run.
func (p *Pipeline) Frames() uint64 { return p.frames }

// Run replays r until EOF, a malformed frame or ctx cancellation. The first
// error stops both goroutines and is returned.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	t, _ := tomb.WithContext(ctx)
	frames := make(chan frame, FRAME_CHAN_SIZE)

	t.Go(func() error {
		return p.decode(t, wire.NewReader(r), frames)
	})
	t.Go(func() error {
		return p.consume(t, frames)
	})

	err := t.Wait()
	p.recordBooks()
	return err
}

func (p *Pipeline) decode(t *tomb.Tomb, r *wire.Reader, frames chan<- frame) error {
	defer close(frames)
	var n uint64
	for {
		msg, h, err := r.Next()
		if errors.Is(err, io.EOF) {
			log.Debug().Uint64("frames", n).Msg("replay input exhausted")
			return nil
		}
		if err != nil {
			log.Error().Err(err).Uint64("frame", n).Msg("malformed frame")
			return fmt.Errorf("frame %d: %w", n, err)
		}
		n++
		select {
		case frames <- frame{msg: msg, header: h}:
		case <-t.Dying():
			return nil
		}
	}
}

func (p *Pipeline) consume(t *tomb.Tomb, frames <-chan frame) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := p.apply(f); err != nil {
				log.Error().Err(err).Uint64("frame", p.frames).Msg("replay stopped")
				return err
			}
		}
	}
}

func (p *Pipeline) apply(f frame) error {
	if p.recorder != nil {
		p.recorder.Frame(f.header.TemplateID.String())
	}
	reports, err := p.router.Route(f.msg)
	if err != nil {
		return fmt.Errorf("frame %d %v: %w", p.frames, f.header.TemplateID, err)
	}
	p.frames++
	if len(reports) == 0 {
		return nil
	}
	if p.recorder != nil {
		p.recorder.Reports(reports)
	}
	if err := p.sink.Send(reports); err != nil {
		return fmt.Errorf("send reports: %w", err)
	}
	return nil
}

func (p *Pipeline) recordBooks() {
	if p.recorder == nil {
		return
	}
	for _, listing := range p.router.Listings() {
		ex, err := p.router.Exchange(listing)
		if err != nil {
			continue
		}
		book := ex.Book()
		p.recorder.Book(listing, book.Depth(common.Bid), book.Depth(common.Ask), book.Len())
	}
}
