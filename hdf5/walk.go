package hdf5

import (
	"errors"
	"path"
)

// ErrStopWalk ends Walk or WalkAttrs early without an error.
var ErrStopWalk = errors.New("walk stopped")

// WalkFunc is called for every object Walk visits. obj is a *Group or a
// *Dataset, or nil when err reports that the object could not be opened.
type WalkFunc func(path string, obj interface{}, err error) error

// Walk visits g and every object below it, parents before children.
//
//	err := hdf5.Walk(f.Root(), func(p string, obj interface{}, err error) error {
//		if ds, ok := obj.(*hdf5.Dataset); ok {
//			fmt.Println(p, ds.Shape())
//		}
//		return err
//	})
func Walk(g *Group, fn WalkFunc) error {
	err := walk(g, fn)
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walk(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	names, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, name := range names {
		obj, err := g.open(name)
		if err != nil {
			if err := fn(path.Join(g.Path(), name), nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			err = walk(o, fn)
		case *Dataset:
			err = fn(o.Path(), o, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AttrInfo describes one attribute visited by WalkAttrs.
type AttrInfo struct {
	Path       string // attribute path, "/object@name"
	ObjectPath string
	ObjectType string // "group" or "dataset"
	Name       string
	Attr       *Attribute
	Value      interface{} // nil when Err is set
	Err        error
}

// WalkAttrsFunc is called for every attribute WalkAttrs visits.
type WalkAttrsFunc func(info AttrInfo) error

// WalkAttrs visits every attribute of every group and dataset in the file.
// Objects that cannot be opened are skipped.
func (f *File) WalkAttrs(fn WalkAttrsFunc) error {
	if f.closed {
		return ErrClosed
	}
	return Walk(f.root, func(p string, obj interface{}, err error) error {
		if err != nil {
			return nil
		}
		var (
			kind  string
			names []string
			get   func(string) *Attribute
		)
		switch o := obj.(type) {
		case *Group:
			kind, names, get = "group", o.Attrs(), o.Attr
		case *Dataset:
			kind, names, get = "dataset", o.Attrs(), o.Attr
		}
		for _, name := range names {
			info := AttrInfo{
				Path:       JoinAttrPath(p, name),
				ObjectPath: p,
				ObjectType: kind,
				Name:       name,
				Attr:       get(name),
			}
			info.Value, info.Err = info.Attr.Value()
			if err := fn(info); err != nil {
				return err
			}
		}
		return nil
	})
}
