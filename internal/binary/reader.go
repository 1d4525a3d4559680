package binary

import (
	"fmt"
	"io"
)

// Reader reads blocks of a file. Structures are read whole with Block and
// decoded with a Cursor.
type Reader struct {
	codec
	r io.ReaderAt
}

// NewReader returns a Reader over r.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{codec: newCodec(cfg), r: r}
}

// Block reads n bytes at addr.
func (r *Reader) Block(addr uint64, n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, int64(addr))
	if got == n {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("reading %d bytes at 0x%x: %w", n, addr, err)
}
