package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndexType is the chunk index named by a version 4 layout. Older
// layouts always index chunks with a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

func (t ChunkIndexType) String() string {
	switch t {
	case ChunkIndexBTreeV1:
		return "v1 B-tree"
	case ChunkIndexSingleChunk:
		return "single chunk"
	case ChunkIndexImplicit:
		return "implicit"
	case ChunkIndexFixedArray:
		return "fixed array"
	case ChunkIndexExtensibleArray:
		return "extensible array"
	case ChunkIndexBTreeV2:
		return "v2 B-tree"
	}
	return fmt.Sprintf("chunk index %d", uint8(t))
}

// Set in the flags of a version 4 chunked layout whose single chunk is
// filtered; the layout then records the stored size and filter mask.
const singleChunkFiltered = 0x02

// DataLayout is the data layout message (0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	// Contiguous storage.
	Address uint64
	Size    uint64

	// Chunked storage. ChunkDims has one entry more than the dataset rank:
	// the element size.
	ChunkDims      []uint32
	ChunkIndexType ChunkIndexType
	ChunkIndexAddr uint64

	// PageBits is log2 of the entries per fixed array page.
	PageBits uint8

	// Stored size and filter mask of a filtered single chunk.
	SingleChunkSize uint64
	SingleChunkMask uint32
}

// DefaultPageBits is the smallest fixed array page HDF5 writes.
const DefaultPageBits = 10

func (m *DataLayout) Type() Type { return TypeDataLayout }

func decodeLayout(c *binary.Cursor) (*DataLayout, error) {
	m := &DataLayout{Version: c.Uint8()}
	switch m.Version {
	case 1, 2:
		return m, m.decodeV1(c)
	case 3, 4:
		return m, m.decodeV3(c)
	}
	return nil, fmt.Errorf("unsupported data layout version %d", m.Version)
}

func (m *DataLayout) decodeV1(c *binary.Cursor) error {
	ndims := int(c.Uint8())
	m.Class = LayoutClass(c.Uint8())
	c.Skip(5)

	if m.Class != LayoutCompact {
		m.Address = c.Offset()
		m.ChunkIndexAddr = m.Address
	}
	dims := make([]uint32, ndims)
	for i := range dims {
		dims[i] = c.Uint32()
	}

	switch m.Class {
	case LayoutCompact:
		m.CompactData = cloneBytes(c.Bytes(int(c.Uint32())))
	case LayoutContiguous:
		// The last dimension is the element size.
		m.Size = 1
		for _, d := range dims {
			m.Size *= uint64(d)
		}
	case LayoutChunked:
		m.ChunkDims = dims
		c.Skip(4)
	}
	return nil
}

func (m *DataLayout) decodeV3(c *binary.Cursor) error {
	m.Class = LayoutClass(c.Uint8())
	switch m.Class {
	case LayoutCompact:
		m.CompactData = cloneBytes(c.Bytes(int(c.Uint16())))
	case LayoutContiguous:
		m.Address = c.Offset()
		m.Size = c.Length()
	case LayoutChunked:
		if m.Version == 3 {
			ndims := int(c.Uint8())
			m.ChunkIndexAddr = c.Offset()
			m.ChunkDims = make([]uint32, ndims)
			for i := range m.ChunkDims {
				m.ChunkDims[i] = c.Uint32()
			}
			return nil
		}
		return m.decodeV4Chunked(c)
	case LayoutVirtual:
		return fmt.Errorf("virtual datasets are not supported")
	default:
		return fmt.Errorf("unknown layout class %d", m.Class)
	}
	return nil
}

func (m *DataLayout) decodeV4Chunked(c *binary.Cursor) error {
	flags := c.Uint8()
	ndims := int(c.Uint8())
	width := int(c.Uint8())
	m.ChunkDims = make([]uint32, ndims)
	for i := range m.ChunkDims {
		m.ChunkDims[i] = uint32(c.UintN(width))
	}

	m.ChunkIndexType = ChunkIndexType(c.Uint8())
	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if flags&singleChunkFiltered != 0 {
			m.SingleChunkSize = c.Length()
			m.SingleChunkMask = c.Uint32()
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		m.PageBits = c.Uint8()
	case ChunkIndexExtensibleArray:
		c.Skip(5)
	case ChunkIndexBTreeV2:
		c.Skip(6)
	default:
		return fmt.Errorf("unknown chunk index type %d", m.ChunkIndexType)
	}
	m.ChunkIndexAddr = c.Offset()
	return nil
}

// Encode writes version 3 compact and contiguous layouts and version 4
// chunked layouts.
func (m *DataLayout) Encode(b *binary.Buffer) error {
	if m.Class != LayoutChunked {
		b.Uint8(3)
		b.Uint8(uint8(m.Class))
		switch m.Class {
		case LayoutCompact:
			b.Uint16(uint16(len(m.CompactData)))
			b.Raw(m.CompactData)
		case LayoutContiguous:
			b.Offset(m.Address)
			b.Length(m.Size)
		default:
			return fmt.Errorf("cannot write layout class %d", m.Class)
		}
		return nil
	}

	var flags uint8
	if m.ChunkIndexType == ChunkIndexSingleChunk && m.SingleChunkSize > 0 {
		flags = singleChunkFiltered
	}
	width := dimWidth(m.ChunkDims)
	b.Uint8(4)
	b.Uint8(uint8(LayoutChunked))
	b.Uint8(flags)
	b.Uint8(uint8(len(m.ChunkDims)))
	b.Uint8(uint8(width))
	for _, d := range m.ChunkDims {
		b.UintN(uint64(d), width)
	}
	b.Uint8(uint8(m.ChunkIndexType))
	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if flags != 0 {
			b.Length(m.SingleChunkSize)
			b.Uint32(m.SingleChunkMask)
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		page := m.PageBits
		if page == 0 {
			page = DefaultPageBits
		}
		b.Uint8(page)
	default:
		return fmt.Errorf("cannot write %s index", m.ChunkIndexType)
	}
	b.Offset(m.ChunkIndexAddr)
	return nil
}

// dimWidth is the fewest bytes that hold every chunk dimension.
func dimWidth(dims []uint32) int {
	width := 1
	for _, d := range dims {
		switch {
		case d > 0xffff:
			width = 4
		case d > 0xff && width < 2:
			width = 2
		}
	}
	return width
}

// NewContiguousLayout returns a layout for size bytes stored at address.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: address, Size: size}
}

// NewChunkedLayout returns a chunked layout for the dataset-rank chunkDims;
// the element size is appended as the extra last dimension.
func NewChunkedLayout(chunkDims []uint32, elementSize uint32, index ChunkIndexType) *DataLayout {
	dims := append(append([]uint32(nil), chunkDims...), elementSize)
	return &DataLayout{Version: 4, Class: LayoutChunked, ChunkDims: dims, ChunkIndexType: index}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
