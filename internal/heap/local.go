// Package heap reads local heaps, which hold the member names of
// symbol-table groups, and global heap collections, which hold
// variable-length strings.
package heap

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// Local is a local heap's data segment.
type Local struct {
	data []byte
}

// ReadLocal reads the local heap whose header is at addr.
func ReadLocal(r *binary.Reader, addr uint64) (*Local, error) {
	hdr, err := r.Block(addr, 8+2*r.LengthSize()+r.OffsetSize())
	if err != nil {
		return nil, fmt.Errorf("reading local heap at 0x%x: %w", addr, err)
	}
	c := r.Cursor(hdr)
	if sig := c.String(4); sig != "HEAP" {
		return nil, fmt.Errorf("local heap at 0x%x: bad signature %q", addr, sig)
	}
	if v := c.Uint8(); v != 0 {
		return nil, fmt.Errorf("local heap at 0x%x: unsupported version %d", addr, v)
	}
	c.Skip(3)
	size := c.Length()
	c.Length() // free list head
	dataAddr := c.Offset()
	if err := c.Err(); err != nil {
		return nil, err
	}

	data, err := r.Block(dataAddr, int(size))
	if err != nil {
		return nil, fmt.Errorf("reading local heap data at 0x%x: %w", dataAddr, err)
	}
	return &Local{data: data}, nil
}

// String returns the NUL-terminated string at off, or "" when off is
// outside the segment.
func (h *Local) String(off uint64) string {
	if off >= uint64(len(h.data)) {
		return ""
	}
	return cstring(h.data[off:])
}

func cstring(b []byte) string {
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
