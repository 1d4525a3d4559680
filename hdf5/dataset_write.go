package hdf5

import (
	"fmt"
	"path"
	"reflect"

	"github.com/l1ktools/l1kio/internal/dtype"
	"github.com/l1ktools/l1kio/internal/filter"
	"github.com/l1ktools/l1kio/internal/layout"
	"github.com/l1ktools/l1kio/internal/message"
)

// CreateDataset writes data as a new dataset in g. data is a number, a
// string, or a slice (possibly nested) of either; strings are stored
// fixed-length, as wide as the longest one.
func (g *Group) CreateDataset(name string, data interface{}, opts ...DatasetOption) (*Dataset, error) {
	if err := g.checkNewMember(name); err != nil {
		return nil, err
	}

	o := defaultDatasetOptions()
	for _, opt := range opts {
		opt(o)
	}

	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	dims, elemType := inferShape(val)
	if o.shape != nil {
		if product(o.shape) != product(dims) {
			return nil, fmt.Errorf("shape %v does not hold %d elements", o.shape, product(dims))
		}
		dims = o.shape
	}

	datatype, err := datatypeFor(elemType, val, message.PadNullPad)
	if err != nil {
		return nil, err
	}
	raw, err := dtype.Encode(datatype, flatten(val))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}

	f := g.file
	var (
		dataLayout *message.DataLayout
		pipeline   *message.FilterPipeline
	)
	chunks := o.chunks
	if chunks == nil && len(o.filters) > 0 {
		chunks = dims
	}
	if chunks != nil {
		if len(chunks) != len(dims) {
			return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(chunks), len(dims))
		}
		chunkDims := make([]uint32, len(chunks))
		for i, c := range chunks {
			if c == 0 {
				return nil, fmt.Errorf("chunk dimension %d is zero", i)
			}
			chunkDims[i] = uint32(c)
		}
		if len(o.filters) > 0 {
			pipeline = &message.FilterPipeline{Filters: o.filters}
			for i := range pipeline.Filters {
				if pipeline.Filters[i].ID == message.FilterShuffle {
					pipeline.Filters[i].ClientData = []uint32{datatype.Size}
				}
			}
		}
		p, err := filter.NewPipeline(pipeline)
		if err != nil {
			return nil, err
		}
		dataLayout, err = layout.WriteChunked(f.writer, f.allocate, raw, dims, chunkDims, datatype.Size, p)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	} else {
		addr := f.writer.UndefinedAddress()
		if len(raw) > 0 {
			addr = f.allocate(int64(len(raw)))
			if err := f.writer.Write(addr, raw); err != nil {
				return nil, fmt.Errorf("writing %s: %w", name, err)
			}
		}
		dataLayout = message.NewContiguousLayout(addr, uint64(len(raw)))
	}

	dataspace := message.NewDataspace(dims, nil)
	msgs := []message.Encoder{dataspace, datatype}
	if pipeline != nil {
		msgs = append(msgs, pipeline)
	}
	msgs = append(msgs, dataLayout)
	for _, a := range o.attrs {
		attr, err := newAttribute(a.name, a.value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.name, err)
		}
		msgs = append(msgs, attr)
	}

	dsPath := path.Join(g.path, name)
	addr, err := f.writeHeader(dsPath, msgs, 0)
	if err != nil {
		return nil, err
	}
	g.links = append(g.links, message.NewHardLink(name, addr))

	return &Dataset{
		file:      f,
		path:      dsPath,
		dataspace: dataspace,
		datatype:  datatype,
		filters:   pipeline,
	}, nil
}

// datatypeFor returns the stored type of elem. Strings become fixed-length
// with the given padding, wide enough for every string in val.
func datatypeFor(elem reflect.Type, val reflect.Value, pad message.StringPadding) (*message.Datatype, error) {
	if elem.Kind() != reflect.String {
		return dtype.GoTypeToDatatype(elem)
	}
	width := 0
	forEachString(val, func(s string) { width = max(width, len(s)) })
	if pad == message.PadNullTerm {
		width++
	}
	return message.NewStringDatatype(uint32(max(width, 1)), pad, message.CharsetASCII), nil
}

// forEachString calls fn for every string in a possibly nested slice.
func forEachString(val reflect.Value, fn func(string)) {
	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			forEachString(val.Index(i), fn)
		}
	case reflect.String:
		fn(val.String())
	}
}

// flatten returns nested slices as one flat slice in row-major order.
func flatten(val reflect.Value) interface{} {
	if k := val.Kind(); (k != reflect.Slice && k != reflect.Array) || !isList(val.Type().Elem()) {
		return val.Interface()
	}
	out := reflect.MakeSlice(reflect.SliceOf(leafType(val.Type())), 0, 0)
	var add func(v reflect.Value)
	add = func(v reflect.Value) {
		if !isList(v.Type()) {
			out = reflect.Append(out, v)
			return
		}
		for i := 0; i < v.Len(); i++ {
			add(v.Index(i))
		}
	}
	add(val)
	return out.Interface()
}

func isList(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

func leafType(t reflect.Type) reflect.Type {
	for isList(t) {
		t = t.Elem()
	}
	return t
}

func product(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// inferShape returns the dimensions of nested slices, taken from their
// first elements, and the element type. A scalar has shape [1].
func inferShape(val reflect.Value) ([]uint64, reflect.Type) {
	var dims []uint64
	for isList(val.Type()) {
		dims = append(dims, uint64(val.Len()))
		if val.Len() == 0 {
			return dims, leafType(val.Type())
		}
		val = val.Index(0)
	}
	if len(dims) == 0 {
		dims = []uint64{1}
	}
	return dims, val.Type()
}

// newAttribute builds an attribute message. Strings are stored
// null-terminated.
func newAttribute(name string, value interface{}) (*message.Attribute, error) {
	val := reflect.ValueOf(value)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	var dataspace *message.Dataspace
	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		if isList(val.Type().Elem()) {
			return nil, fmt.Errorf("nested slices are not supported")
		}
		dataspace = message.NewDataspace([]uint64{uint64(val.Len())}, nil)
	default:
		dataspace = message.NewScalarDataspace()
	}

	datatype, err := datatypeFor(leafType(val.Type()), val, message.PadNullTerm)
	if err != nil {
		return nil, err
	}
	data, err := dtype.Encode(datatype, val.Interface())
	if err != nil {
		return nil, err
	}
	return message.NewAttribute(name, datatype, dataspace, data), nil
}
