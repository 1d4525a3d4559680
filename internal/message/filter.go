package message

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
)

const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6

	// Registered plugin filters.
	FilterLZ4  uint16 = 32004
	FilterZstd uint16 = 32015
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether a reader may skip the filter when it is not
// available.
func (f *FilterInfo) IsOptional() bool { return f.Flags&1 != 0 }

// FilterPipeline is the filter pipeline message (0x000B), listing filters
// in the order they were applied when writing.
type FilterPipeline struct {
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func decodeFilterPipeline(c *binary.Cursor) (*FilterPipeline, error) {
	version := c.Uint8()
	n := int(c.Uint8())
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("unsupported filter pipeline version %d", version)
	}
	if version == 1 {
		c.Skip(6)
	}

	fp := &FilterPipeline{Filters: make([]FilterInfo, n)}
	for i := range fp.Filters {
		f := &fp.Filters[i]
		f.ID = c.Uint16()
		// Version 2 drops the name of predefined filters.
		var nameLen int
		if version == 1 || f.ID >= 256 {
			nameLen = int(c.Uint16())
		}
		f.Flags = c.Uint16()
		f.ClientData = make([]uint32, c.Uint16())
		if nameLen > 0 {
			f.Name = c.String(nameLen)
			if version == 1 {
				c.AlignTo(8)
			}
		}
		for j := range f.ClientData {
			f.ClientData[j] = c.Uint32()
		}
		if version == 1 && len(f.ClientData)%2 == 1 {
			c.Skip(4)
		}
		if c.Err() != nil {
			return nil, fmt.Errorf("filter %d: %w", i, c.Err())
		}
	}
	return fp, nil
}

// Encode writes a version 2 pipeline. Plugin filters get an empty name.
func (m *FilterPipeline) Encode(b *binary.Buffer) error {
	b.Uint8(2)
	b.Uint8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		b.Uint16(f.ID)
		if f.ID >= 256 {
			b.Uint16(0)
		}
		b.Uint16(f.Flags)
		b.Uint16(uint16(len(f.ClientData)))
		for _, v := range f.ClientData {
			b.Uint32(v)
		}
	}
	return nil
}
