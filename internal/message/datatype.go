package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/l1ktools/l1kio/internal/binary"
)

// DatatypeClass is the low nibble of a datatype message.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

// ByteOrder is the byte order bit of a numeric datatype.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding says how fixed-length strings are terminated.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet is the encoding of string data.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype is the datatype message (0x0003). Only the properties of
// numbers and strings are decoded; other classes keep their class and size
// so callers can report them.
type Datatype struct {
	Class DatatypeClass
	Size  uint32

	ByteOrder ByteOrder
	Signed    bool

	StringPadding  StringPadding
	CharSet        CharacterSet
	IsVarLenString bool
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsString reports whether elements decode to Go strings.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.IsVarLenString)
}

func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("datatype message too short: %d bytes", len(data))
	}
	bits := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16
	dt := &Datatype{
		Class: DatatypeClass(data[0] & 0x0f),
		Size:  binary.LittleEndian.Uint32(data[4:8]),
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(bits & 1)
		dt.Signed = bits&0x08 != 0
	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(bits & 1)
	case ClassString:
		dt.StringPadding = StringPadding(bits & 0x0f)
		dt.CharSet = CharacterSet(bits >> 4 & 0x0f)
	case ClassVarLen:
		dt.IsVarLenString = bits&0x0f == 1
		dt.StringPadding = StringPadding(bits >> 4 & 0x0f)
		dt.CharSet = CharacterSet(bits >> 8 & 0x0f)
	}
	return dt, nil
}

// classBits returns the 24-bit class field written after the class byte.
func (m *Datatype) classBits() uint32 {
	switch m.Class {
	case ClassFixedPoint:
		b := uint32(m.ByteOrder)
		if m.Signed {
			b |= 0x08
		}
		return b
	case ClassFloatPoint:
		// Normalized mantissa, sign in the top bit.
		return uint32(m.ByteOrder) | 1<<5 | (m.Size*8-1)<<8
	case ClassString:
		return uint32(m.StringPadding) | uint32(m.CharSet)<<4
	case ClassVarLen:
		return 1 | uint32(m.StringPadding)<<4 | uint32(m.CharSet)<<8
	}
	return 0
}

// properties returns the class properties following the size field.
func (m *Datatype) properties() ([]byte, error) {
	switch m.Class {
	case ClassFixedPoint:
		p := make([]byte, 4)
		binary.LittleEndian.PutUint16(p[2:], uint16(m.Size*8))
		return p, nil
	case ClassFloatPoint:
		// bit offset, precision, exponent location and size, mantissa
		// location and size, exponent bias
		switch m.Size {
		case 4:
			return []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}, nil
		case 8:
			return []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xff, 0x03, 0, 0}, nil
		}
		return nil, fmt.Errorf("cannot write %d-byte float datatype", m.Size)
	case ClassString:
		return nil, nil
	case ClassVarLen:
		if !m.IsVarLenString {
			return nil, fmt.Errorf("cannot write variable-length sequence datatype")
		}
		// Base type: a one-byte string in the same character set.
		base := &Datatype{Class: ClassString, Size: 1, CharSet: m.CharSet}
		return base.encode()
	}
	return nil, fmt.Errorf("cannot write datatype class %d", m.Class)
}

func (m *Datatype) encode() ([]byte, error) {
	props, err := m.properties()
	if err != nil {
		return nil, err
	}
	bits := m.classBits()
	buf := make([]byte, 8, 8+len(props))
	buf[0] = byte(m.Class) | 1<<4
	buf[1], buf[2], buf[3] = byte(bits), byte(bits>>8), byte(bits>>16)
	binary.LittleEndian.PutUint32(buf[4:], m.Size)
	return append(buf, props...), nil
}

// Encode writes the version 1 encoding of the datatype.
func (m *Datatype) Encode(b *binpkg.Buffer) error {
	buf, err := m.encode()
	if err != nil {
		return err
	}
	b.Raw(buf)
	return nil
}

// NewFixedPointDatatype returns an integer type of size bytes.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	return &Datatype{Class: ClassFixedPoint, Size: size, ByteOrder: order, Signed: signed}
}

// NewFloatDatatype returns an IEEE 754 type of four or eight bytes.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	return &Datatype{Class: ClassFloatPoint, Size: size, ByteOrder: order}
}

// NewStringDatatype returns a fixed-length string type.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{Class: ClassString, Size: size, StringPadding: padding, CharSet: charset}
}

// NewVarLenStringDatatype returns a variable-length string type. Elements
// are 16-byte references into the global heap.
func NewVarLenStringDatatype(charset CharacterSet) *Datatype {
	return &Datatype{Class: ClassVarLen, Size: 16, CharSet: charset, IsVarLenString: true}
}
