package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// Attribute is the attribute message (0x000C). Datatype or Dataspace is
// nil when it is shared or could not be decoded; Err holds the decode
// failure.
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
	Err       error
}

func (m *Attribute) Type() Type { return TypeAttribute }

const (
	attrSharedDatatype  = 0x01
	attrSharedDataspace = 0x02
)

func decodeAttribute(c *binary.Cursor, r *binary.Reader) (*Attribute, error) {
	version := c.Uint8()
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("unsupported attribute version %d", version)
	}
	flags := c.Uint8()
	nameLen := int(c.Uint16())
	dtLen := int(c.Uint16())
	dsLen := int(c.Uint16())
	if version == 3 {
		c.Skip(1) // name character set
	}

	// Version 1 pads each part to eight bytes.
	pad := func() {
		if version == 1 && c.Remaining() > 0 {
			c.AlignTo(8)
		}
	}

	a := &Attribute{Name: c.String(nameLen)}
	pad()
	dtRaw := c.Bytes(dtLen)
	pad()
	dsRaw := c.Bytes(dsLen)
	pad()
	if c.Err() != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, c.Err())
	}
	a.Data = cloneBytes(c.Bytes(c.Remaining()))

	var err error
	if flags&attrSharedDatatype == 0 {
		if a.Datatype, err = parseDatatype(dtRaw); err != nil {
			a.Err = fmt.Errorf("datatype: %w", err)
		}
	}
	if flags&attrSharedDataspace == 0 && a.Err == nil {
		dc := r.Cursor(dsRaw)
		if a.Dataspace, err = decodeDataspace(dc); err == nil {
			err = dc.Err()
		}
		if err != nil {
			a.Dataspace = nil
			a.Err = fmt.Errorf("dataspace: %w", err)
		}
	}
	return a, nil
}

// Encode writes a version 3 attribute with an ASCII name.
func (m *Attribute) Encode(b *binary.Buffer) error {
	dt, ds := b.Buffer(), b.Buffer()
	if err := m.Datatype.Encode(dt); err != nil {
		return fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	if err := m.Dataspace.Encode(ds); err != nil {
		return fmt.Errorf("attribute %q: %w", m.Name, err)
	}

	b.Uint8(3)
	b.Uint8(0)
	b.Uint16(uint16(len(m.Name) + 1))
	b.Uint16(uint16(dt.Len()))
	b.Uint16(uint16(ds.Len()))
	b.Uint8(uint8(CharsetASCII))
	b.String(m.Name)
	b.Raw(dt.Bytes())
	b.Raw(ds.Bytes())
	b.Raw(m.Data)
	return nil
}

// NewAttribute returns an attribute message holding raw encoded data.
func NewAttribute(name string, datatype *Datatype, dataspace *Dataspace, data []byte) *Attribute {
	return &Attribute{Name: name, Datatype: datatype, Dataspace: dataspace, Data: data}
}
