package layout

import (
	"bytes"

	"github.com/l1ktools/l1kio/internal/message"
)

// Compact holds data stored inside the object header.
type Compact struct {
	data []byte
}

// NewCompact wraps the bytes carried by the layout message.
func NewCompact(layout *message.DataLayout) *Compact {
	return &Compact{data: layout.CompactData}
}

func (c *Compact) Class() message.LayoutClass {
	return message.LayoutCompact
}

// Read returns a copy of the stored bytes.
func (c *Compact) Read() ([]byte, error) {
	return bytes.Clone(c.data), nil
}
