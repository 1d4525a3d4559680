package gctx

import (
	"errors"
	"fmt"

	"github.com/l1ktools/l1kio/hdf5"
)

// Container is the hierarchical store a Reader decodes from.
type Container interface {
	Dataset(path string) (Item, error)
	Group(path string) (Group, error)
	// Attr returns the named attribute of the object at path.
	Attr(path, name string) (any, bool)
	Close() error
}

// Group enumerates the datasets directly below one container group.
type Group interface {
	// Items returns member datasets in container order. Subgroups are
	// not included.
	Items() ([]Item, error)
}

// Item is a named typed array.
type Item interface {
	Name() string
	Dims() []uint64
	// Read returns the array as a typed slice such as []float32 or []string.
	Read() (any, error)
}

// FromHDF5 adapts an open HDF5 file. Closing the Container closes f.
func FromHDF5(f *hdf5.File) Container {
	return hdf5Container{f: f}
}

type hdf5Container struct {
	f *hdf5.File
}

func (c hdf5Container) Dataset(path string) (Item, error) {
	ds, err := c.f.OpenDataset(path)
	if err != nil {
		return nil, err
	}
	return hdf5Item{ds: ds}, nil
}

func (c hdf5Container) Group(path string) (Group, error) {
	g, err := c.f.OpenGroup(path)
	if err != nil {
		return nil, err
	}
	return hdf5Group{g: g}, nil
}

func (c hdf5Container) Attr(path, name string) (any, bool) {
	v, err := c.f.ReadAttr(hdf5.JoinAttrPath(path, name))
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c hdf5Container) Close() error {
	return c.f.Close()
}

type hdf5Group struct {
	g *hdf5.Group
}

func (g hdf5Group) Items() ([]Item, error) {
	names, err := g.g.Members()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", g.g.Path(), err)
	}
	items := make([]Item, 0, len(names))
	for _, name := range names {
		ds, err := g.g.OpenDataset(name)
		if errors.Is(err, hdf5.ErrNotDataset) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("opening %s/%s: %w", g.g.Path(), name, err)
		}
		items = append(items, hdf5Item{ds: ds})
	}
	return items, nil
}

type hdf5Item struct {
	ds *hdf5.Dataset
}

func (i hdf5Item) Name() string   { return i.ds.Name() }
func (i hdf5Item) Dims() []uint64 { return i.ds.Dims() }

// Read returns nil for element types with no Go mapping so that decoders
// drop the item instead of failing.
func (i hdf5Item) Read() (any, error) {
	if _, err := i.ds.GoType(); err != nil {
		return nil, nil
	}
	return i.ds.ReadNative()
}
