package heap

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/l1ktools/l1kio/internal/binary"
)

// Global is one global heap collection.
type Global struct {
	objects map[uint16][]byte
}

// ID references an object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// ParseID decodes a heap ID: a collection address of offsetSize bytes
// followed by a 4-byte object index.
func ParseID(b []byte, offsetSize int) (ID, error) {
	c := binpkg.NewCursor(b, binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: offsetSize})
	id := ID{Collection: c.Offset(), Index: c.Uint32()}
	if err := c.Err(); err != nil {
		return ID{}, fmt.Errorf("global heap ID: %w", err)
	}
	return id, nil
}

// ReadGlobal reads the collection at addr.
func ReadGlobal(r *binpkg.Reader, addr uint64) (*Global, error) {
	if addr == 0 || r.IsUndefined(addr) {
		return nil, fmt.Errorf("invalid global heap address 0x%x", addr)
	}
	hdrSize := 8 + r.LengthSize()
	hdr, err := r.Block(addr, hdrSize)
	if err != nil {
		return nil, fmt.Errorf("reading global heap at 0x%x: %w", addr, err)
	}
	c := r.Cursor(hdr)
	if sig := c.String(4); sig != "GCOL" {
		return nil, fmt.Errorf("global heap at 0x%x: bad signature %q", addr, sig)
	}
	if v := c.Uint8(); v != 1 {
		return nil, fmt.Errorf("global heap at 0x%x: unsupported version %d", addr, v)
	}
	c.Skip(3)
	size := c.Length()
	if err := c.Err(); err != nil {
		return nil, err
	}
	if size < uint64(hdrSize) {
		return nil, fmt.Errorf("global heap at 0x%x: collection size %d too small", addr, size)
	}

	body, err := r.Block(addr+uint64(hdrSize), int(size)-hdrSize)
	if err != nil {
		return nil, fmt.Errorf("reading global heap at 0x%x: %w", addr, err)
	}
	h := &Global{objects: make(map[uint16][]byte)}
	c = r.Cursor(body)
	// Index 0 is the free-space object that ends the collection.
	for c.Remaining() >= 8+r.LengthSize() {
		index := c.Uint16()
		if index == 0 {
			break
		}
		c.Skip(6) // reference count and reserved
		n := int(c.Length())
		data := c.Bytes(n)
		c.Skip(min((8-n%8)%8, c.Remaining()))
		if c.Err() != nil {
			return nil, fmt.Errorf("global heap at 0x%x: object %d: %w", addr, index, c.Err())
		}
		h.objects[index] = data
	}
	return h, nil
}

// Object returns the bytes of object index.
func (h *Global) Object(index uint16) ([]byte, error) {
	data, ok := h.objects[index]
	if !ok {
		return nil, fmt.Errorf("global heap object %d not found", index)
	}
	return data, nil
}

// String returns object index up to its first NUL.
func (h *Global) String(index uint16) (string, error) {
	data, err := h.Object(index)
	if err != nil {
		return "", err
	}
	return cstring(data), nil
}
