package filter

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	binpkg "github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

// Fletcher32 appends a 4-byte checksum to each chunk and verifies it on
// read.
type Fletcher32 struct{}

// NewFletcher32 returns the checksum filter. It takes no client data.
func NewFletcher32([]uint32) *Fletcher32 { return &Fletcher32{} }

func (f *Fletcher32) ID() uint16 { return message.FilterFletcher32 }

// Encode appends the checksum of input.
func (f *Fletcher32) Encode(input []byte) ([]byte, error) {
	out := make([]byte, len(input), len(input)+4)
	copy(out, input)
	return binary.LittleEndian.AppendUint32(out, binpkg.Fletcher32(input)), nil
}

// Decode also accepts the byte-swapped checksum written by HDF5 1.6.
func (f *Fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("chunk of %d bytes has no checksum", len(input))
	}
	data := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	sum := binpkg.Fletcher32(data)
	if stored != sum && stored != bits.ReverseBytes32(sum) {
		return nil, fmt.Errorf("checksum mismatch: stored 0x%08x, computed 0x%08x", stored, sum)
	}
	return data, nil
}
