package hdf5

import (
	"fmt"
	"os"

	"github.com/l1ktools/l1kio/internal/alloc"
	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
	"github.com/l1ktools/l1kio/internal/object"
	"github.com/l1ktools/l1kio/internal/superblock"
)

// Create creates a file for writing, truncating any existing one. Dataset
// data is written as datasets are created; group headers and the
// superblock are written by Flush and Close.
func Create(path string, opts ...FileOption) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}

	osFile, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	sb := superblock.New(o.offsetSize, o.lengthSize)
	f := &File{
		path:       path,
		closer:     osFile,
		superblock: sb,
		file:       osFile,
		writer:     binary.NewWriter(osFile, sb.Config()),
		allocator:  alloc.New(uint64(sb.Size())),
	}
	f.root = &Group{file: f, path: "/"}
	return f, nil
}

func (f *File) writable() bool {
	return f.writer != nil
}

// allocate reserves size bytes at the end of the file.
func (f *File) allocate(size int64) uint64 {
	return f.allocator.Alloc(uint64(size))
}

// Flush writes every group header, children before parents, and then the
// superblock pointing at the root. Each call writes the groups anew.
func (f *File) Flush() error {
	if !f.writable() {
		return nil
	}
	if f.closed {
		return ErrClosed
	}

	root, err := f.writeGroup(f.root)
	if err != nil {
		return err
	}
	f.superblock.RootAddress = root
	f.superblock.EOFAddress = f.allocator.EOFAddr()

	b, err := f.superblock.Encode()
	if err != nil {
		return err
	}
	if err := f.writer.Write(0, b); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return f.file.Sync()
}

// writeGroup writes the headers of the groups below g and then g's own,
// returning its address.
func (f *File) writeGroup(g *Group) (uint64, error) {
	for _, child := range g.groups {
		addr, err := f.writeGroup(child)
		if err != nil {
			return 0, err
		}
		child.link.ObjectAddress = addr
	}

	msgs := []message.Encoder{message.NewLinkInfo(), message.NewGroupInfo()}
	for _, l := range g.links {
		msgs = append(msgs, l)
	}
	for _, a := range g.attrs {
		msgs = append(msgs, a)
	}
	return f.writeHeader(g.path, msgs, object.MinGroupChunk)
}

// writeHeader encodes msgs as a version 2 object header and returns its
// address.
func (f *File) writeHeader(objPath string, msgs []message.Encoder, minChunk int) (uint64, error) {
	b := f.writer.Buffer()
	if err := object.Encode(b, msgs, minChunk); err != nil {
		return 0, fmt.Errorf("%s: %w", objPath, err)
	}
	addr := f.allocate(int64(b.Len()))
	if err := f.writer.Write(addr, b.Bytes()); err != nil {
		return 0, fmt.Errorf("writing %s header: %w", objPath, err)
	}
	return addr, nil
}
