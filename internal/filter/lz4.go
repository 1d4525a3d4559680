package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/l1ktools/l1kio/internal/message"
)

// lz4HeaderSize is the decoded size (8 bytes) and block size (4 bytes),
// both big-endian.
const lz4HeaderSize = 12

// DefaultLZ4BlockSize is the plugin's default block size.
const DefaultLZ4BlockSize = 1 << 30

// LZ4 is the HDF5 LZ4 plugin format: a header, then blocks each prefixed
// by its big-endian compressed size. A block whose compressed size equals
// its decoded size is stored raw.
type LZ4 struct {
	blockSize uint32
}

// NewLZ4 reads the block size from client data.
func NewLZ4(clientData []uint32) *LZ4 {
	f := &LZ4{blockSize: DefaultLZ4BlockSize}
	if len(clientData) > 0 && clientData[0] > 0 {
		f.blockSize = clientData[0]
	}
	return f
}

func (f *LZ4) ID() uint16 { return message.FilterLZ4 }

// Encode compresses input into length-prefixed LZ4 blocks.
func (f *LZ4) Encode(input []byte) ([]byte, error) {
	out := binary.BigEndian.AppendUint64(nil, uint64(len(input)))
	out = binary.BigEndian.AppendUint32(out, f.blockSize)
	var c lz4.Compressor
	for src := input; len(src) > 0; {
		block := src[:min(len(src), int(f.blockSize))]
		src = src[len(block):]
		dst := make([]byte, lz4.CompressBlockBound(len(block)))
		n, err := c.CompressBlock(block, dst)
		if err != nil {
			return nil, err
		}
		// Incompressible blocks come back with n == 0.
		if n == 0 || n >= len(block) {
			dst, n = block, len(block)
		}
		out = binary.BigEndian.AppendUint32(out, uint32(n))
		out = append(out, dst[:n]...)
	}
	return out, nil
}

// Decode expands the blocks written by Encode or by the HDF5 LZ4 plugin.
func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < lz4HeaderSize {
		return nil, fmt.Errorf("chunk too short: %d bytes", len(input))
	}
	total := binary.BigEndian.Uint64(input[0:8])
	blockSize := uint64(binary.BigEndian.Uint32(input[8:12]))
	if blockSize == 0 {
		return nil, fmt.Errorf("zero block size")
	}
	if total > uint64(len(input))*255 {
		return nil, fmt.Errorf("chunk claims %d bytes from %d compressed", total, len(input))
	}

	out := make([]byte, total)
	src := input[lz4HeaderSize:]
	var done uint64
	for done < total {
		if len(src) < 4 {
			return nil, fmt.Errorf("block header truncated at offset %d", done)
		}
		n := uint64(binary.BigEndian.Uint32(src[0:4]))
		src = src[4:]
		if n > uint64(len(src)) {
			return nil, fmt.Errorf("block of %d bytes exceeds remaining %d", n, len(src))
		}
		want := min(blockSize, total-done)
		dst := out[done : done+want]
		if n == want {
			copy(dst, src[:n])
		} else {
			got, err := lz4.UncompressBlock(src[:n], dst)
			if err != nil {
				return nil, err
			}
			if uint64(got) != want {
				return nil, fmt.Errorf("block decoded to %d bytes, expected %d", got, want)
			}
		}
		src = src[n:]
		done += want
	}
	return out, nil
}
