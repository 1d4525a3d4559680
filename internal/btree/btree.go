// Package btree reads version 1 B-trees ("TREE"), which index the members
// of symbol-table groups and the chunks of chunked datasets.
package btree

import (
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/heap"
)

const (
	groupNode = 0
	chunkNode = 1
)

// maxDepth bounds recursion on corrupt trees.
const maxDepth = 64

// node is one decoded B-tree node. keys has one more entry than children.
type node struct {
	level    uint8
	keys     [][]byte
	children []uint64
}

func readNode(r *binary.Reader, addr uint64, typ uint8, keySize int) (*node, error) {
	hdrSize := 8 + 2*r.OffsetSize()
	hdr, err := r.Block(addr, hdrSize)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree node at 0x%x: %w", addr, err)
	}
	c := r.Cursor(hdr)
	if sig := c.String(4); sig != "TREE" {
		return nil, fmt.Errorf("B-tree node at 0x%x: bad signature %q", addr, sig)
	}
	if t := c.Uint8(); t != typ {
		return nil, fmt.Errorf("B-tree node at 0x%x: type %d, want %d", addr, t, typ)
	}
	n := &node{level: c.Uint8()}
	used := int(c.Uint16())

	body, err := r.Block(addr+uint64(hdrSize), used*(keySize+r.OffsetSize())+keySize)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree node at 0x%x: %w", addr, err)
	}
	c = r.Cursor(body)
	for i := 0; i < used; i++ {
		n.keys = append(n.keys, c.Bytes(keySize))
		n.children = append(n.children, c.Offset())
	}
	n.keys = append(n.keys, c.Bytes(keySize))
	return n, c.Err()
}

// walk calls leaf with every child of the level-0 nodes below addr, in key
// order, passing the key that precedes it.
func walk(r *binary.Reader, addr uint64, typ uint8, keySize, depth int, leaf func(key []byte, child uint64) error) error {
	if depth > maxDepth {
		return fmt.Errorf("B-tree deeper than %d levels", maxDepth)
	}
	n, err := readNode(r, addr, typ, keySize)
	if err != nil {
		return err
	}
	for i, child := range n.children {
		if n.level > 0 {
			err = walk(r, child, typ, keySize, depth+1, leaf)
		} else {
			err = leaf(n.keys[i], child)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// GroupEntry is one member of a symbol-table group. SoftTarget is set for
// soft links, whose Address is meaningless.
type GroupEntry struct {
	Name       string
	Address    uint64
	SoftTarget string
}

// cache type of a symbol table entry holding a soft link
const cacheSoftLink = 2

// ReadGroup lists the members of the group whose B-tree is at addr. Names
// are resolved through the group's local heap.
func ReadGroup(r *binary.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	var entries []GroupEntry
	err := walk(r, addr, groupNode, r.LengthSize(), 0, func(_ []byte, snod uint64) error {
		e, err := readSymbolNode(r, snod, names)
		entries = append(entries, e...)
		return err
	})
	return entries, err
}

func readSymbolNode(r *binary.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	hdr, err := r.Block(addr, 8)
	if err != nil {
		return nil, fmt.Errorf("reading symbol node at 0x%x: %w", addr, err)
	}
	c := r.Cursor(hdr)
	if sig := c.String(4); sig != "SNOD" {
		return nil, fmt.Errorf("symbol node at 0x%x: bad signature %q", addr, sig)
	}
	if v := c.Uint8(); v != 1 {
		return nil, fmt.Errorf("symbol node at 0x%x: unsupported version %d", addr, v)
	}
	c.Skip(1)
	count := int(c.Uint16())

	body, err := r.Block(addr+8, count*(2*r.OffsetSize()+24))
	if err != nil {
		return nil, fmt.Errorf("reading symbol node at 0x%x: %w", addr, err)
	}
	c = r.Cursor(body)
	entries := make([]GroupEntry, 0, count)
	for i := 0; i < count; i++ {
		e := GroupEntry{Name: names.String(c.Offset()), Address: c.Offset()}
		cache := c.Uint32()
		c.Skip(4)
		scratch := r.Cursor(c.Bytes(16))
		if cache == cacheSoftLink {
			e.SoftTarget = names.String(uint64(scratch.Uint32()))
			e.Address = 0
		}
		if e.Name != "" {
			entries = append(entries, e)
		}
	}
	return entries, c.Err()
}

// ChunkEntry locates one stored chunk. Offset is the chunk's first element
// in dataset coordinates.
type ChunkEntry struct {
	Offset     []uint64
	FilterMask uint32
	Size       uint32
	Address    uint64
}

// ReadChunks lists the chunks of a dataset of rank ndims whose index is at
// addr. Keys carry one extra coordinate for the element size, which is
// dropped.
func ReadChunks(r *binary.Reader, addr uint64, ndims int) ([]ChunkEntry, error) {
	var entries []ChunkEntry
	keySize := 8 + 8*(ndims+1)
	err := walk(r, addr, chunkNode, keySize, 0, func(key []byte, child uint64) error {
		c := r.Cursor(key)
		e := ChunkEntry{Size: c.Uint32(), FilterMask: c.Uint32(), Address: child}
		e.Offset = make([]uint64, ndims)
		for d := range e.Offset {
			e.Offset[d] = c.Uint64()
		}
		if e.Size > 0 && !r.IsUndefined(child) {
			entries = append(entries, e)
		}
		return c.Err()
	})
	return entries, err
}
