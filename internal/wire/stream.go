package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Reader decodes a stream of back to back frames.
type Reader struct {
	r      *bufio.Reader
	header [HeaderLen]byte
	block  []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next message. It returns io.EOF at a clean frame boundary
// and io.ErrUnexpectedEOF for a truncated frame.
func (r *Reader) Next() (any, Header, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		return nil, Header{}, err
	}
	h, err := ParseHeader(r.header[:])
	if err != nil {
		// A bad header leaves the stream out of sync.
		return nil, h, err
	}
	if cap(r.block) < int(h.BlockLength) {
		r.block = make([]byte, h.BlockLength)
	}
	block := r.block[:h.BlockLength]
	if _, err := io.ReadFull(r.r, block); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, h, fmt.Errorf("%v body: %w", h.TemplateID, err)
	}
	return decodeBlock(h, block), h, nil
}

// Writer encodes messages onto a stream. Call Flush when done.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(msg any) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.w.Write(frame)
	return err
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}
