package hdf5

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/dtype"
	"github.com/l1ktools/l1kio/internal/message"
	"github.com/l1ktools/l1kio/internal/object"
)

// Attribute is a small named value attached to a group or dataset.
type Attribute struct {
	msg    *message.Attribute
	reader *binary.Reader // resolves variable-length strings
}

func attrNames(h *object.Header) []string {
	var names []string
	for _, a := range object.All[*message.Attribute](h) {
		names = append(names, a.Name)
	}
	return names
}

// attrByName returns the attribute of h called name, or nil.
func attrByName(f *File, h *object.Header, name string) *Attribute {
	for _, a := range object.All[*message.Attribute](h) {
		if a.Name == name {
			return &Attribute{msg: a, reader: f.reader}
		}
	}
	return nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the value, nil for a scalar.
func (a *Attribute) Shape() []uint64 {
	if a.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// IsScalar reports whether the value is a single element.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

func (a *Attribute) numElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// Read decodes the value into dest, a pointer to a slice or, for string
// values, to a string.
func (a *Attribute) Read(dest interface{}) error {
	if err := a.decodable(); err != nil {
		return err
	}
	return dtype.ConvertWithReader(a.msg.Datatype, a.msg.Data, a.numElements(), dest, a.reader)
}

// Value decodes the value as int64, uint64, float64 or string for a scalar
// and as a slice of one of those otherwise.
func (a *Attribute) Value() (interface{}, error) {
	if err := a.decodable(); err != nil {
		return nil, err
	}
	dt := a.msg.Datatype
	switch {
	case dt.Class == message.ClassFixedPoint && dt.Signed:
		return readValue[int64](a)
	case dt.Class == message.ClassFixedPoint:
		return readValue[uint64](a)
	case dt.Class == message.ClassFloatPoint:
		return readValue[float64](a)
	case dt.IsString():
		return readValue[string](a)
	default:
		return nil, fmt.Errorf("attribute %s: datatype class %d: %w", a.msg.Name, dt.Class, ErrUnsupported)
	}
}

// decodable reports why the value cannot be read: a malformed type or
// shape, or one stored as a shared message.
func (a *Attribute) decodable() error {
	switch {
	case a.msg.Err != nil:
		return fmt.Errorf("attribute %s: %w", a.msg.Name, a.msg.Err)
	case a.msg.Datatype == nil || a.msg.Dataspace == nil:
		return fmt.Errorf("attribute %s: shared datatype or dataspace: %w", a.msg.Name, ErrUnsupported)
	}
	return nil
}

func readValue[T any](a *Attribute) (interface{}, error) {
	var vals []T
	if err := a.Read(&vals); err != nil {
		return nil, err
	}
	if a.IsScalar() && len(vals) == 1 {
		return vals[0], nil
	}
	return vals, nil
}
