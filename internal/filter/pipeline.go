package filter

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/message"
)

// Pipeline applies a dataset's filters in message order on write and in
// reverse order on read.
type Pipeline struct {
	filters []Filter
	// position of each filter in the message, which the chunk filter mask
	// refers to
	index []int
}

// NewPipeline builds the pipeline described by fp. A nil fp gives an empty
// pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for i, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		if f != nil {
			p.filters = append(p.filters, f)
			p.index = append(p.index, i)
		}
	}
	return p, nil
}

// Encode runs every filter over a chunk.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("%s encode: %w", Name(f.ID()), err)
		}
	}
	return data, nil
}

// Decode undoes the filters of a chunk, skipping those whose bit is set in
// mask.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(p.index[i])) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(p.filters[i].ID()), err)
		}
	}
	return data, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool { return len(p.filters) == 0 }

// Len returns the number of filters.
func (p *Pipeline) Len() int { return len(p.filters) }
