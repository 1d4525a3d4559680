package layout

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/btree"
	"github.com/l1ktools/l1kio/internal/filter"
	"github.com/l1ktools/l1kio/internal/message"
)

// Chunked reads data stored as equally sized chunks through a version 1
// B-tree, single chunk, implicit or fixed array index. Extensible array
// and version 2 B-tree indexes, used only by resizable datasets, are not
// supported.
type Chunked struct {
	layout    *message.DataLayout
	dataspace *message.Dataspace
	datatype  *message.Datatype
	pipeline  *filter.Pipeline
	reader    *binary.Reader
}

// NewChunked builds the chunk reader and its filter pipeline.
func NewChunked(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	filters *message.FilterPipeline,
	reader *binary.Reader,
) (*Chunked, error) {
	p, err := filter.NewPipeline(filters)
	if err != nil {
		return nil, fmt.Errorf("filter pipeline: %w", err)
	}
	return &Chunked{layout: layout, dataspace: dataspace, datatype: datatype, pipeline: p, reader: reader}, nil
}

func (c *Chunked) Class() message.LayoutClass {
	return message.LayoutChunked
}

// Read decodes every stored chunk and assembles the dataset in row-major
// order. Chunks never written read as zeros.
func (c *Chunked) Read() ([]byte, error) {
	dims := c.dataspace.Dimensions
	if len(dims) == 0 {
		dims = []uint64{1}
	}
	// The stored chunk dimensions carry the element size as an extra entry.
	if len(c.layout.ChunkDims) < len(dims) {
		return nil, fmt.Errorf("chunk rank %d is below dataset rank %d", len(c.layout.ChunkDims), len(dims))
	}
	for _, d := range c.layout.ChunkDims[:len(dims)] {
		if d == 0 {
			return nil, fmt.Errorf("zero chunk dimension in %v", c.layout.ChunkDims)
		}
	}
	total := dataSize(c.dataspace, c.datatype)
	if total == 0 {
		return nil, nil
	}

	g := newGrid(dims, c.layout.ChunkDims[:len(dims)], uint64(c.datatype.Size))
	entries, err := c.index(g)
	if err != nil {
		return nil, fmt.Errorf("%s chunk index: %w", c.layout.ChunkIndexType, err)
	}

	out := make([]byte, total)
	for _, e := range entries {
		chunk, err := c.reader.Block(e.Address, int(e.Size))
		if err != nil {
			return nil, fmt.Errorf("reading chunk at %v: %w", e.Offset, err)
		}
		if chunk, err = c.pipeline.Decode(chunk, e.FilterMask); err != nil {
			return nil, fmt.Errorf("decoding chunk at %v: %w", e.Offset, err)
		}
		g.place(out, chunk, e.Offset)
	}
	return out, nil
}

// index lists the stored chunks. Chunks that were never written are left
// out and read back as zeros.
func (c *Chunked) index(g grid) ([]btree.ChunkEntry, error) {
	addr := c.layout.ChunkIndexAddr
	if !allocated(addr) {
		return nil, nil
	}

	switch c.layout.ChunkIndexType {
	case message.ChunkIndexBTreeV1:
		return btree.ReadChunks(c.reader, addr, len(g.dims))
	case message.ChunkIndexSingleChunk:
		e := btree.ChunkEntry{Offset: make([]uint64, len(g.dims)), Size: uint32(g.chunkBytes), Address: addr}
		if c.layout.SingleChunkSize > 0 {
			e.Size = uint32(c.layout.SingleChunkSize)
			e.FilterMask = c.layout.SingleChunkMask
		}
		return []btree.ChunkEntry{e}, nil
	case message.ChunkIndexImplicit:
		entries := make([]btree.ChunkEntry, g.count)
		for i := range entries {
			entries[i] = btree.ChunkEntry{
				Offset:  g.origin(uint64(i)),
				Size:    uint32(g.chunkBytes),
				Address: addr + uint64(i)*g.chunkBytes,
			}
		}
		return entries, nil
	case message.ChunkIndexFixedArray:
		return c.fixedArray(g)
	}
	return nil, fmt.Errorf("index type not supported")
}

// fixedArray reads a fixed array header ("FAHD") and its data block
// ("FADB"), which is split into pages when it holds more than 2^pageBits
// entries. Each entry is a chunk address, followed for filtered chunks by
// the stored size and a filter mask.
func (c *Chunked) fixedArray(g grid) ([]btree.ChunkEntry, error) {
	r := c.reader
	hdr, err := r.Block(c.layout.ChunkIndexAddr, 12+r.LengthSize()+r.OffsetSize())
	if err != nil {
		return nil, err
	}
	hc := r.Cursor(hdr)
	if sig := hc.String(4); sig != "FAHD" {
		return nil, fmt.Errorf("bad header signature %q", sig)
	}
	if v := hc.Uint8(); v != 0 {
		return nil, fmt.Errorf("unsupported version %d", v)
	}
	hc.Skip(1) // client ID
	entrySize := int(hc.Uint8())
	pageBits := hc.Uint8()
	count := int(hc.Length())
	blockAddr := hc.Offset()
	if err := hc.Err(); err != nil {
		return nil, err
	}
	sizeBytes := entrySize - r.OffsetSize() - 4
	if sizeBytes < 0 {
		sizeBytes = 0
	}

	pageLen := count
	var bitmap []byte
	prefix := 6 + r.OffsetSize()
	if pageBits < 32 && count > 1<<pageBits {
		pageLen = 1 << pageBits
		pages := (count + pageLen - 1) / pageLen
		if bitmap, err = r.Block(blockAddr+uint64(prefix), (pages+7)/8); err != nil {
			return nil, err
		}
		prefix += len(bitmap) + 4 // the prefix has its own checksum when paged
	}

	var entries []btree.ChunkEntry
	pos := blockAddr + uint64(prefix)
	for start, page := 0, 0; start < count; start, page = start+pageLen, page+1 {
		n := min(pageLen, count-start)
		size := n * entrySize
		if bitmap != nil && bitmap[page/8]&(0x80>>(page%8)) == 0 {
			pos += uint64(size + 4)
			continue
		}
		raw, err := r.Block(pos, size)
		if err != nil {
			return nil, err
		}
		pc := r.Cursor(raw)
		for i := start; i < start+n; i++ {
			e := btree.ChunkEntry{Offset: g.origin(uint64(i)), Size: uint32(g.chunkBytes), Address: pc.Offset()}
			if sizeBytes > 0 {
				e.Size = uint32(pc.UintN(sizeBytes))
				e.FilterMask = pc.Uint32()
			}
			if allocated(e.Address) {
				entries = append(entries, e)
			}
		}
		if err := pc.Err(); err != nil {
			return nil, err
		}
		pos += uint64(size)
		if bitmap != nil {
			pos += 4
		}
	}
	return entries, nil
}
