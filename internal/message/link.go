package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// LinkType distinguishes hard, soft and external links.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link flag bits.
const (
	linkNameWidth  = 0x03
	linkHasOrder   = 0x04
	linkHasType    = 0x08
	linkHasCharset = 0x10
)

// Link is the link message (0x0006) of a new-style group.
type Link struct {
	LinkType      LinkType
	Name          string
	ObjectAddress uint64 // hard links
	SoftLinkValue string // soft links
	ExternalFile  string // external links
	ExternalPath  string
}

func (m *Link) Type() Type { return TypeLink }

// IsExternal reports whether the link points into another file.
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

func decodeLink(c *binary.Cursor) (*Link, error) {
	if v := c.Uint8(); v != 1 {
		return nil, fmt.Errorf("unsupported link version %d", v)
	}
	flags := c.Uint8()
	l := &Link{}
	if flags&linkHasType != 0 {
		l.LinkType = LinkType(c.Uint8())
	}
	if flags&linkHasOrder != 0 {
		c.Skip(8)
	}
	if flags&linkHasCharset != 0 {
		c.Skip(1)
	}
	l.Name = string(c.Bytes(int(c.UintN(1 << (flags & linkNameWidth)))))

	switch l.LinkType {
	case LinkTypeHard:
		l.ObjectAddress = c.Offset()
	case LinkTypeSoft:
		l.SoftLinkValue = string(c.Bytes(int(c.Uint16())))
	case LinkTypeExternal:
		// A version/flags byte, then file and object path, NUL-terminated.
		ext := binary.NewCursor(c.Bytes(int(c.Uint16())), binary.Config{})
		ext.Skip(1)
		l.ExternalFile = ext.CString()
		l.ExternalPath = ext.CString()
		if ext.Err() != nil {
			return nil, fmt.Errorf("external link %q: %w", l.Name, ext.Err())
		}
	default:
		return nil, fmt.Errorf("link %q has unknown type %d", l.Name, l.LinkType)
	}
	return l, nil
}

// Encode writes a version 1 link without creation order or charset.
func (m *Link) Encode(b *binary.Buffer) error {
	var flags uint8
	width := 1
	switch n := uint64(len(m.Name)); {
	case n > 0xffffffff:
		flags, width = 3, 8
	case n > 0xffff:
		flags, width = 2, 4
	case n > 0xff:
		flags, width = 1, 2
	}
	if m.LinkType != LinkTypeHard {
		flags |= linkHasType
	}

	b.Uint8(1)
	b.Uint8(flags)
	if m.LinkType != LinkTypeHard {
		b.Uint8(uint8(m.LinkType))
	}
	b.UintN(uint64(len(m.Name)), width)
	b.Raw([]byte(m.Name))

	switch m.LinkType {
	case LinkTypeHard:
		b.Offset(m.ObjectAddress)
	case LinkTypeSoft:
		b.Uint16(uint16(len(m.SoftLinkValue)))
		b.Raw([]byte(m.SoftLinkValue))
	case LinkTypeExternal:
		b.Uint16(uint16(len(m.ExternalFile) + len(m.ExternalPath) + 3))
		b.Uint8(0)
		b.String(m.ExternalFile)
		b.String(m.ExternalPath)
	default:
		return fmt.Errorf("cannot write link type %d", m.LinkType)
	}
	return nil
}

// NewHardLink returns a link to the object header at objectAddress.
func NewHardLink(name string, objectAddress uint64) *Link {
	return &Link{LinkType: LinkTypeHard, Name: name, ObjectAddress: objectAddress}
}
