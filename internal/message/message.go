// Package message decodes and encodes the header messages stored in HDF5
// object headers.
package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// Type is a header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
)

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Encoder is implemented by the messages the writer emits.
type Encoder interface {
	Message
	Encode(b *binary.Buffer) error
}

// Parse decodes the body of one header message. Types the reader has no
// use for come back as *Unknown.
func Parse(typ Type, data []byte, r *binary.Reader) (Message, error) {
	c := r.Cursor(data)
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = decodeDataspace(c)
	case TypeDatatype:
		msg, err = parseDatatype(data)
	case TypeDataLayout:
		msg, err = decodeLayout(c)
	case TypeFilterPipeline:
		msg, err = decodeFilterPipeline(c)
	case TypeAttribute:
		msg, err = decodeAttribute(c, r)
	case TypeLink:
		msg, err = decodeLink(c)
	case TypeLinkInfo:
		msg, err = decodeLinkInfo(c)
	case TypeSymbolTable:
		msg = &SymbolTable{BTreeAddress: c.Offset(), LocalHeapAddress: c.Offset()}
	case TypeObjectHeaderContinuation:
		msg = &Continuation{Offset: c.Offset(), Length: c.Length()}
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err == nil {
		err = c.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return msg, nil
}

// Unknown holds the raw body of a message type that is not decoded.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type { return m.typ }

// Continuation points at the next block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// SymbolTable locates the v1 B-tree and local heap of an old-style group.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }
