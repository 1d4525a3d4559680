package hdf5

import (
	"fmt"
	"io"
	"os"

	"github.com/l1ktools/l1kio/internal/alloc"
	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/object"
	"github.com/l1ktools/l1kio/internal/superblock"
)

// File is an open HDF5 file, either read from a byte source or being
// written by Create.
type File struct {
	path       string
	closer     io.Closer
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	// set by Create
	file      *os.File
	writer    *binary.Writer
	allocator *alloc.Allocator
}

// Open opens an HDF5 file on the local file system for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	hdf, err := OpenReader(f, path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return hdf, nil
}

// OpenReader opens an HDF5 file from any byte source, such as a memory
// mapping or a remote object. name is reported by Path. closer, if not nil,
// is closed by File.Close.
func OpenReader(r io.ReaderAt, name string, closer io.Closer) (*File, error) {
	sb, err := superblock.Read(r)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	// Addresses are relative to the superblock whatever its stored base
	// address says, so a user block shifts every read.
	if sb.FileOffset > 0 {
		r = io.NewSectionReader(r, sb.FileOffset, 1<<62)
	}

	f := &File{
		path:       name,
		closer:     closer,
		reader:     binary.NewReader(r, sb.Config()),
		superblock: sb,
	}

	header, err := object.Read(f.reader, sb.RootAddress)
	if err != nil {
		return nil, fmt.Errorf("reading root group: %w", err)
	}
	f.root = &Group{file: f, path: "/", header: header}
	return f, nil
}

// Close closes the file, first writing any pending groups of a file made
// by Create. Calling Close more than once is a no-op.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}

	var err error
	if f.writable() {
		err = f.Flush()
	}
	f.closed = true
	if f.closer != nil {
		if cerr := f.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Closed reports whether Close has been called.
func (f *File) Closed() bool {
	return f.closed
}

// Root returns the root group.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the name the file was opened or created with.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// GetAttr returns the attribute named by an attribute path of the form
// "/group/object@name"; "/@name" is an attribute of the root group.
func (f *File) GetAttr(path string) (*Attribute, error) {
	if f.closed {
		return nil, ErrClosed
	}

	objectPath, name, err := ParseAttrPath(path)
	if err != nil {
		return nil, err
	}
	h, _, err := f.root.lookup(objectPath, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", objectPath, err)
	}
	attr := attrByName(f, h, name)
	if attr == nil {
		return nil, fmt.Errorf("attribute %s: %w", path, ErrNotFound)
	}
	return attr, nil
}

// ReadAttr reads an attribute value by path, as Attribute.Value does.
//
//	v, err := f.ReadAttr("/@version")
func (f *File) ReadAttr(path string) (interface{}, error) {
	attr, err := f.GetAttr(path)
	if err != nil {
		return nil, err
	}
	return attr.Value()
}
