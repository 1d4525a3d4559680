package object

import (
	"fmt"
	"math"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

// MinGroupChunk is the smallest first chunk written for a group header,
// which leaves room for links added by other writers.
const MinGroupChunk = 120

// Encode appends a version 2 object header holding msgs to b. A NIL
// message pads the chunk to at least minChunk bytes.
func Encode(b *binary.Buffer, msgs []message.Encoder, minChunk int) error {
	bodies := make([][]byte, len(msgs))
	chunk := 0
	for i, m := range msgs {
		mb := b.Buffer()
		if err := m.Encode(mb); err != nil {
			return fmt.Errorf("encoding message 0x%04x: %w", uint16(m.Type()), err)
		}
		if mb.Len() > math.MaxUint16 {
			return fmt.Errorf("message 0x%04x is %d bytes, over the %d byte limit", uint16(m.Type()), mb.Len(), math.MaxUint16)
		}
		bodies[i] = mb.Bytes()
		chunk += 4 + mb.Len()
	}
	pad := 0
	if chunk < minChunk {
		// A NIL message needs room for its own 4-byte header.
		pad = max(minChunk-chunk, 4)
		chunk += pad
	}

	width, flags := 1, uint8(0)
	for uint64(chunk) >= 1<<(8*width) {
		width *= 2
		flags++
	}

	start := b.Len()
	b.Raw([]byte("OHDR"))
	b.Uint8(2)
	b.Uint8(flags)
	b.UintN(uint64(chunk), width)
	for i, m := range msgs {
		b.Uint8(uint8(m.Type()))
		b.Uint16(uint16(len(bodies[i])))
		b.Uint8(0)
		b.Raw(bodies[i])
	}
	if pad > 0 {
		b.Uint8(uint8(message.TypeNIL))
		b.Uint16(uint16(pad - 4))
		b.Uint8(0)
		b.Zeros(pad - 4)
	}
	b.Uint32(binary.Lookup3Checksum(b.Bytes()[start:]))
	return nil
}
