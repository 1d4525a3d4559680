package gctx

import (
	"fmt"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Metadata maps a field name to its values, one per row or column.
type Metadata map[string]Vector

// Names returns the field names in sorted order.
func (m Metadata) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named field.
func (m Metadata) Get(name string) (Vector, bool) {
	v, ok := m[name]
	return v, ok
}

// pick selects idx from every field whose length is extent. Other fields
// do not line up with the axis and are dropped.
func (m Metadata) pick(idx []uint32, extent int) Metadata {
	out := make(Metadata, len(m))
	for name, v := range m {
		if v.Len() == extent {
			out[name] = v.pick(idx)
		}
	}
	return out
}

// DecodeGroup reads every dataset in g into a Metadata. Datasets whose
// element type is not text, float32, float64 or int32 are skipped. When two
// datasets share a name the later one wins.
func DecodeGroup(g Group, logger log.Logger) (Metadata, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	items, err := g.Items()
	if err != nil {
		return nil, err
	}
	m := make(Metadata, len(items))
	for _, item := range items {
		name := item.Name()
		raw, err := item.Read()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		v, ok := Classify(raw)
		if !ok {
			level.Debug(logger).Log("msg", "dropping metadata field", "name", name, "type", fmt.Sprintf("%T", raw))
			continue
		}
		if _, dup := m[name]; dup {
			level.Debug(logger).Log("msg", "duplicate metadata field", "name", name)
		}
		m[name] = v
	}
	return m, nil
}
