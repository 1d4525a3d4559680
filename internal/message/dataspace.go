package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

// DataspaceType is scalar, simple or null.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace is the dataspace message (0x0001).
type Dataspace struct {
	Rank       int
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the element count: one for a scalar, zero for null.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

// IsScalar reports whether the dataspace holds a single element.
func (m *Dataspace) IsScalar() bool { return m.SpaceType == DataspaceScalar }

func decodeDataspace(c *binary.Cursor) (*Dataspace, error) {
	version := c.Uint8()
	ds := &Dataspace{Rank: int(c.Uint8())}
	flags := c.Uint8()

	switch version {
	case 1:
		// Version 1 has no type byte; rank zero means scalar.
		c.Skip(5)
		ds.SpaceType = DataspaceSimple
		if ds.Rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	case 2:
		ds.SpaceType = DataspaceType(c.Uint8())
	default:
		return nil, fmt.Errorf("unsupported dataspace version %d", version)
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	ds.Dimensions = make([]uint64, ds.Rank)
	for i := range ds.Dimensions {
		ds.Dimensions[i] = c.Length()
	}
	if flags&1 != 0 {
		ds.MaxDims = make([]uint64, ds.Rank)
		for i := range ds.MaxDims {
			ds.MaxDims[i] = c.Length()
		}
	}
	return ds, nil
}

// Encode writes a version 2 dataspace.
func (m *Dataspace) Encode(b *binary.Buffer) error {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 1
	}
	b.Uint8(2)
	b.Uint8(uint8(m.Rank))
	b.Uint8(flags)
	b.Uint8(uint8(m.SpaceType))
	for _, d := range m.Dimensions {
		b.Length(d)
	}
	for _, d := range m.MaxDims {
		b.Length(d)
	}
	return nil
}

// NewDataspace returns a simple dataspace; maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{Rank: len(dims), SpaceType: DataspaceSimple, Dimensions: dims, MaxDims: maxDims}
}

// NewScalarDataspace returns a dataspace of one element.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{SpaceType: DataspaceScalar}
}
