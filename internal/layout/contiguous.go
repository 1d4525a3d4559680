package layout

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

// Contiguous reads data stored as one block of the file.
type Contiguous struct {
	address uint64
	size    uint64
	reader  *binary.Reader
}

// NewContiguous reads layout.Size bytes, or the size implied by the
// dataspace and datatype when the message leaves it at zero.
func NewContiguous(layout *message.DataLayout, dataspace *message.Dataspace, datatype *message.Datatype, reader *binary.Reader) *Contiguous {
	size := layout.Size
	if size == 0 {
		size = dataSize(dataspace, datatype)
	}
	return &Contiguous{address: layout.Address, size: size, reader: reader}
}

func (c *Contiguous) Class() message.LayoutClass {
	return message.LayoutContiguous
}

// Read reads all data from contiguous storage. Empty datasets read as an
// empty slice; an unallocated block is an error.
func (c *Contiguous) Read() ([]byte, error) {
	if c.reader.IsUndefined(c.address) {
		return nil, fmt.Errorf("contiguous data not allocated")
	}
	if c.size == 0 {
		return []byte{}, nil
	}
	data, err := c.reader.Block(c.address, int(c.size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}
