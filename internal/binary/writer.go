package binary

import (
	"fmt"
	"io"
)

// Writer writes blocks encoded with a Buffer to a file.
type Writer struct {
	codec
	w io.WriterAt
}

// NewWriter returns a Writer over w.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{codec: newCodec(cfg), w: w}
}

// Write stores b at addr.
func (w *Writer) Write(addr uint64, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := w.w.WriteAt(b, int64(addr)); err != nil {
		return fmt.Errorf("writing %d bytes at 0x%x: %w", len(b), addr, err)
	}
	return nil
}
