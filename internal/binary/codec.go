// Package binary reads and writes the fixed- and variable-width integers of
// HDF5 metadata at explicit file positions.
package binary

import "encoding/binary"

// Config holds the byte order and the width of addresses (offsets) and
// lengths in a file, as declared by its superblock. Widths are 2, 4 or 8.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// codec decodes and encodes integers for one Config. Reader and Writer
// embed it.
type codec struct {
	order      binary.ByteOrder
	offsetSize int
	lengthSize int
}

func newCodec(cfg Config) codec {
	return codec{order: cfg.ByteOrder, offsetSize: cfg.OffsetSize, lengthSize: cfg.LengthSize}
}

// OffsetSize returns the width of an address in bytes.
func (c codec) OffsetSize() int { return c.offsetSize }

// LengthSize returns the width of a length in bytes.
func (c codec) LengthSize() int { return c.lengthSize }

// ByteOrder returns the configured byte order.
func (c codec) ByteOrder() binary.ByteOrder { return c.order }

// undefined is the all-ones address HDF5 uses for "not allocated".
func (c codec) undefined() uint64 {
	if c.offsetSize >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*c.offsetSize) - 1
}

// IsUndefined reports whether addr is the undefined address.
func (c codec) IsUndefined(addr uint64) bool { return addr == c.undefined() }

// UndefinedAddress returns the all-ones address for this width.
func (c codec) UndefinedAddress() uint64 { return c.undefined() }

// get decodes len(b) bytes. Widths other than 1, 2, 4 and 8 are read
// little-endian.
func (c codec) get(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(c.order.Uint16(b))
	case 4:
		return uint64(c.order.Uint32(b))
	case 8:
		return c.order.Uint64(b)
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// put encodes v into all of b.
func (c codec) put(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		c.order.PutUint16(b, uint16(v))
	case 4:
		c.order.PutUint32(b, uint32(v))
	case 8:
		c.order.PutUint64(b, v)
	default:
		for i := range b {
			b[i] = byte(v >> (8 * i))
		}
	}
}

func align(pos, alignment int64) int64 {
	if alignment <= 1 {
		return pos
	}
	if rem := pos % alignment; rem != 0 {
		pos += alignment - rem
	}
	return pos
}

// Cursor returns a Cursor over b using this codec's widths.
func (c codec) Cursor(b []byte) *Cursor { return &Cursor{codec: c, b: b} }

// Buffer returns an empty Buffer using this codec's widths.
func (c codec) Buffer() *Buffer { return &Buffer{codec: c} }
