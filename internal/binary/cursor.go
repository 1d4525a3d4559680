package binary

import "fmt"

// Cursor decodes a structure already held in memory. The first read past
// the end records an error; later reads return zero values, so callers
// check Err once after decoding a whole structure.
type Cursor struct {
	codec
	b   []byte
	pos int
	err error
}

// NewCursor returns a Cursor over b.
func NewCursor(b []byte, cfg Config) *Cursor {
	return newCodec(cfg).Cursor(b)
}

// Err returns the first short-read error.
func (c *Cursor) Err() error { return c.err }

// Pos returns the offset of the next unread byte.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.b) - c.pos }

func (c *Cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.b) {
		c.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, c.pos, len(c.b)-c.pos)
		return nil
	}
	p := c.b[c.pos : c.pos+n]
	c.pos += n
	return p
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) []byte { return c.take(n) }

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) { c.take(n) }

// AlignTo advances to the next multiple of n from the start of the buffer.
func (c *Cursor) AlignTo(n int) {
	c.Skip(int(align(int64(c.pos), int64(n))) - c.pos)
}

// UintN decodes an n-byte unsigned integer.
func (c *Cursor) UintN(n int) uint64 {
	p := c.take(n)
	if p == nil {
		return 0
	}
	return c.get(p)
}

func (c *Cursor) Uint8() uint8   { return uint8(c.UintN(1)) }
func (c *Cursor) Uint16() uint16 { return uint16(c.UintN(2)) }
func (c *Cursor) Uint32() uint32 { return uint32(c.UintN(4)) }
func (c *Cursor) Uint64() uint64 { return c.UintN(8) }

// Offset decodes a file address.
func (c *Cursor) Offset() uint64 { return c.UintN(c.offsetSize) }

// Length decodes a file length.
func (c *Cursor) Length() uint64 { return c.UintN(c.lengthSize) }

// String decodes an n-byte field and cuts it at the first NUL.
func (c *Cursor) String(n int) string {
	p := c.take(n)
	for i, ch := range p {
		if ch == 0 {
			return string(p[:i])
		}
	}
	return string(p)
}

// CString decodes a NUL-terminated string and consumes the terminator.
func (c *Cursor) CString() string {
	if c.err != nil {
		return ""
	}
	for i := c.pos; i < len(c.b); i++ {
		if c.b[i] == 0 {
			s := string(c.b[c.pos:i])
			c.pos = i + 1
			return s
		}
	}
	c.err = fmt.Errorf("unterminated string at offset %d", c.pos)
	return ""
}
