package layout

import (
	"fmt"
	"math/bits"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/filter"
	"github.com/l1ktools/l1kio/internal/message"
)

// SplitIntoChunks cuts row-major data into chunks in row-major chunk order.
// Every chunk is full size; cells past the dataset edge are zero.
func SplitIntoChunks(data []byte, dims []uint64, chunkDims []uint32, elemSize uint32) [][]byte {
	if len(dims) == 0 {
		return [][]byte{data}
	}
	g := newGrid(dims, chunkDims, uint64(elemSize))
	chunks := make([][]byte, g.count)
	for i := range chunks {
		chunks[i] = g.gather(data, g.origin(uint64(i)))
	}
	return chunks
}

// WriteChunked stores data in chunks of chunkDims, passing each through
// pipeline when it is not empty, and returns the layout message locating
// them. A lone chunk is addressed directly; more chunks get a fixed array
// index.
func WriteChunked(w *binary.Writer, alloc func(size int64) uint64, data []byte, dims []uint64, chunkDims []uint32, elemSize uint32, pipeline *filter.Pipeline) (*message.DataLayout, error) {
	filtered := pipeline != nil && !pipeline.Empty()
	chunks := SplitIntoChunks(data, dims, chunkDims, elemSize)
	addrs := make([]uint64, len(chunks))
	sizes := make([]uint64, len(chunks))
	for i, chunk := range chunks {
		if filtered {
			var err error
			if chunk, err = pipeline.Encode(chunk); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
		}
		addrs[i], sizes[i] = alloc(int64(len(chunk))), uint64(len(chunk))
		if err := w.Write(addrs[i], chunk); err != nil {
			return nil, fmt.Errorf("writing chunk %d: %w", i, err)
		}
	}

	if len(chunks) == 1 {
		msg := message.NewChunkedLayout(chunkDims, elemSize, message.ChunkIndexSingleChunk)
		msg.ChunkIndexAddr = addrs[0]
		if filtered {
			msg.SingleChunkSize = sizes[0]
		}
		return msg, nil
	}

	msg := message.NewChunkedLayout(chunkDims, elemSize, message.ChunkIndexFixedArray)
	msg.PageBits = pageBits(len(addrs))
	fa := fixedArray{addrs: addrs}
	if filtered {
		fa.sizes = sizes
		fa.sizeBytes = chunkSizeBytes(uint64(len(chunks[0])))
	}
	addr, err := fa.write(w, alloc, msg.PageBits)
	if err != nil {
		return nil, fmt.Errorf("writing chunk index: %w", err)
	}
	msg.ChunkIndexAddr = addr
	return msg, nil
}

// pageBits sizes the fixed array page so the whole index fits in one
// unpaged data block.
func pageBits(n int) uint8 {
	return uint8(max(int(message.DefaultPageBits), bits.Len(uint(n-1))))
}

// chunkSizeBytes is the width of a filtered chunk's stored size in a fixed
// array entry, derived from the unfiltered chunk size.
func chunkSizeBytes(chunkBytes uint64) int {
	return min(1+(bits.Len64(chunkBytes)-1+8)/8, 8)
}

type fixedArray struct {
	addrs     []uint64
	sizes     []uint64 // set for filtered chunks
	sizeBytes int
}

// write stores the header ("FAHD") and unpaged data block ("FADB") and
// returns the header address.
func (fa fixedArray) write(w *binary.Writer, alloc func(size int64) uint64, page uint8) (uint64, error) {
	client, entrySize := uint8(0), w.OffsetSize()
	if fa.sizes != nil {
		client, entrySize = 1, w.OffsetSize()+fa.sizeBytes+4
	}
	headerAddr := alloc(int64(12 + w.LengthSize() + w.OffsetSize()))
	blockAddr := alloc(int64(10 + w.OffsetSize() + entrySize*len(fa.addrs)))

	block := w.Buffer()
	block.Raw([]byte("FADB"))
	block.Uint8(0)
	block.Uint8(client)
	block.Offset(headerAddr)
	for i, a := range fa.addrs {
		block.Offset(a)
		if fa.sizes != nil {
			block.UintN(fa.sizes[i], fa.sizeBytes)
			block.Uint32(0)
		}
	}
	block.Checksum()
	if err := w.Write(blockAddr, block.Bytes()); err != nil {
		return 0, err
	}

	header := w.Buffer()
	header.Raw([]byte("FAHD"))
	header.Uint8(0)
	header.Uint8(client)
	header.Uint8(uint8(entrySize))
	header.Uint8(page)
	header.Length(uint64(len(fa.addrs)))
	header.Offset(blockAddr)
	header.Checksum()
	if err := w.Write(headerAddr, header.Bytes()); err != nil {
		return 0, err
	}
	return headerAddr, nil
}
