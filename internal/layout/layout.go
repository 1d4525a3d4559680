// Package layout reads the raw bytes of a dataset from compact, contiguous
// or chunked storage and writes chunked storage. Bytes are always returned
// in row-major element order.
package layout

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

// Layout reads a whole dataset.
type Layout interface {
	Read() ([]byte, error)
	Class() message.LayoutClass
}

// New returns the reader for a data layout message.
func New(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	filters *message.FilterPipeline,
	reader *binary.Reader,
) (Layout, error) {
	if layout == nil {
		return nil, fmt.Errorf("nil layout message")
	}

	switch layout.Class {
	case message.LayoutCompact:
		return NewCompact(layout), nil
	case message.LayoutContiguous:
		return NewContiguous(layout, dataspace, datatype, reader), nil
	case message.LayoutChunked:
		return NewChunked(layout, dataspace, datatype, filters, reader)
	default:
		return nil, fmt.Errorf("unsupported layout class: %d", layout.Class)
	}
}

// dataSize is the byte size implied by the dataspace and datatype.
func dataSize(dataspace *message.Dataspace, datatype *message.Datatype) uint64 {
	if dataspace == nil || datatype == nil {
		return 0
	}
	return dataspace.NumElements() * uint64(datatype.Size)
}

// allocated reports whether addr points at stored data. Zero and all-ones
// both mean nothing was written.
func allocated(addr uint64) bool {
	return addr != 0 && addr != ^uint64(0)
}
