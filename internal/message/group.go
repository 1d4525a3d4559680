package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// LinkInfo is the link info message (0x0002) of a new-style group. Only the
// compact form, with links stored as messages, is written.
type LinkInfo struct {
	// FractalHeapAddress is defined when links are kept in dense storage.
	FractalHeapAddress uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

func decodeLinkInfo(c *binary.Cursor) (*LinkInfo, error) {
	if v := c.Uint8(); v != 0 {
		return nil, fmt.Errorf("unsupported link info version %d", v)
	}
	if flags := c.Uint8(); flags&0x01 != 0 {
		c.Skip(8) // maximum creation index
	}
	return &LinkInfo{FractalHeapAddress: c.Offset()}, nil
}

// Encode writes version 0 with no creation order and undefined fractal
// heap and name index addresses.
func (m *LinkInfo) Encode(b *binary.Buffer) error {
	b.Uint8(0)
	b.Uint8(0)
	b.Undefined()
	b.Undefined()
	return nil
}

// NewLinkInfo returns link info for a group with compact link storage.
func NewLinkInfo() *LinkInfo { return &LinkInfo{} }

// GroupInfo is the group info message (0x000A). The writer keeps the
// library defaults, so it carries no fields.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Encode writes a version 0 message with no optional fields.
func (m *GroupInfo) Encode(b *binary.Buffer) error {
	b.Uint8(0)
	b.Uint8(0)
	return nil
}

// NewGroupInfo returns an empty group info message.
func NewGroupInfo() *GroupInfo { return &GroupInfo{} }
