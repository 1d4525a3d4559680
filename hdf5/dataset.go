package hdf5

import (
	"fmt"
	"path"
	"reflect"

	"github.com/l1ktools/l1kio/internal/dtype"
	"github.com/l1ktools/l1kio/internal/filter"
	"github.com/l1ktools/l1kio/internal/layout"
	"github.com/l1ktools/l1kio/internal/message"
	"github.com/l1ktools/l1kio/internal/object"
)

// Dataset is an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	header    *object.Header // nil for a dataset just written
	dataspace *message.Dataspace
	datatype  *message.Datatype
	filters   *message.FilterPipeline
	layout    layout.Layout
}

// newDataset binds the messages of a dataset header and its storage layout.
func newDataset(f *File, path string, h *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:      f,
		path:      path,
		header:    h,
		dataspace: h.Dataspace(),
		datatype:  h.Datatype(),
		filters:   h.FilterPipeline(),
	}
	if ds.dataspace == nil {
		return nil, fmt.Errorf("dataset %s has no dataspace", path)
	}

	var err error
	ds.layout, err = layout.New(h.DataLayout(), ds.dataspace, ds.datatype, ds.filters, f.reader)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Name returns the last component of the dataset path.
func (d *Dataset) Name() string {
	return path.Base(d.path)
}

// Path returns the absolute path of the dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dimensions, slowest-varying first; nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() {
		return nil
	}
	return d.dataspace.Dimensions
}

// Dims is Shape.
func (d *Dataset) Dims() []uint64 {
	return d.Shape()
}

// NumElements returns the number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.dataspace.NumElements()
}

// Filters returns the names of the filters chunks pass through when
// written, in order.
func (d *Dataset) Filters() []string {
	if d.filters == nil {
		return nil
	}
	names := make([]string, len(d.filters.Filters))
	for i, f := range d.filters.Filters {
		names[i] = filter.Name(f.ID)
	}
	return names
}

// GoType returns the Go element type that Read and ReadNative decode to.
func (d *Dataset) GoType() (reflect.Type, error) {
	return dtype.GoType(d.datatype)
}

// Read decodes every element into dest, a pointer to a slice.
func (d *Dataset) Read(dest interface{}) error {
	if d.layout == nil {
		return fmt.Errorf("dataset %s: %w", d.path, ErrUnsupported)
	}
	raw, err := d.layout.Read()
	if err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}
	return dtype.ConvertWithReader(d.datatype, raw, d.dataspace.NumElements(), dest, d.file.reader)
}

// ReadNative decodes the dataset into a slice of its natural Go type, such
// as []float32 for 4-byte floats or []string for either string class.
func (d *Dataset) ReadNative() (interface{}, error) {
	elem, err := d.GoType()
	if err != nil {
		return nil, err
	}
	dest := reflect.New(reflect.SliceOf(elem))
	if err := d.Read(dest.Interface()); err != nil {
		return nil, err
	}
	return dest.Elem().Interface(), nil
}

// ReadFloat32 reads the dataset as float32 values.
func (d *Dataset) ReadFloat32() ([]float32, error) {
	var v []float32
	err := d.Read(&v)
	return v, err
}

// ReadFloat64 reads the dataset as float64 values.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	var v []float64
	err := d.Read(&v)
	return v, err
}

// ReadInt32 reads the dataset as int32 values.
func (d *Dataset) ReadInt32() ([]int32, error) {
	var v []int32
	err := d.Read(&v)
	return v, err
}

// ReadString reads the dataset as strings.
func (d *Dataset) ReadString() ([]string, error) {
	var v []string
	err := d.Read(&v)
	return v, err
}

// Attrs returns the attribute names of the dataset.
func (d *Dataset) Attrs() []string {
	if d.header == nil {
		return nil
	}
	return attrNames(d.header)
}

// Attr returns the named attribute, or nil.
func (d *Dataset) Attr(name string) *Attribute {
	if d.header == nil {
		return nil
	}
	return attrByName(d.file, d.header, name)
}
