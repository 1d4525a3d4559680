package binary

// Buffer encodes a structure in memory before it is written in one piece,
// which lets checksums and size prefixes be computed first.
type Buffer struct {
	codec
	b []byte
}

// NewBuffer returns an empty Buffer.
func NewBuffer(cfg Config) *Buffer {
	return newCodec(cfg).Buffer()
}

// Bytes returns the encoded bytes.
func (b *Buffer) Bytes() []byte { return b.b }

// Len returns the number of encoded bytes.
func (b *Buffer) Len() int { return len(b.b) }

// UintN appends v as an n-byte unsigned integer.
func (b *Buffer) UintN(v uint64, n int) {
	start := len(b.b)
	b.b = append(b.b, make([]byte, n)...)
	b.put(b.b[start:], v)
}

func (b *Buffer) Uint8(v uint8)   { b.b = append(b.b, v) }
func (b *Buffer) Uint16(v uint16) { b.UintN(uint64(v), 2) }
func (b *Buffer) Uint32(v uint32) { b.UintN(uint64(v), 4) }
func (b *Buffer) Uint64(v uint64) { b.UintN(v, 8) }

// Offset appends a file address.
func (b *Buffer) Offset(v uint64) { b.UintN(v, b.offsetSize) }

// Length appends a file length.
func (b *Buffer) Length(v uint64) { b.UintN(v, b.lengthSize) }

// Undefined appends the undefined address.
func (b *Buffer) Undefined() { b.Offset(b.undefined()) }

// Raw appends p unchanged.
func (b *Buffer) Raw(p []byte) { b.b = append(b.b, p...) }

// String appends s followed by a NUL.
func (b *Buffer) String(s string) {
	b.b = append(b.b, s...)
	b.b = append(b.b, 0)
}

// Zeros appends n zero bytes.
func (b *Buffer) Zeros(n int) { b.b = append(b.b, make([]byte, n)...) }

// Checksum appends the lookup3 checksum of everything encoded so far.
func (b *Buffer) Checksum() { b.Uint32(Lookup3Checksum(b.b)) }
