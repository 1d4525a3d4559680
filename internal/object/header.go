// Package object reads and writes HDF5 object headers, the message lists
// that describe every group and dataset.
package object

import (
	"errors"
	"fmt"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

var (
	ErrInvalidHeader = errors.New("invalid object header")
	ErrChecksum      = errors.New("object header checksum mismatch")
)

// maxBlocks bounds continuation chains, which could otherwise loop on a
// corrupt file.
const maxBlocks = 1024

// Version 2 header flag bits.
const (
	flagSizeWidth   = 0x03
	flagTrackOrder  = 0x04
	flagPhaseValues = 0x10
	flagTimes       = 0x20
)

// Message flag marking a shared message, whose body is a reference to a
// message stored elsewhere.
const msgShared = 0x02

// Header is a decoded object header.
type Header struct {
	Address  uint64
	Version  uint8
	Messages []message.Message

	trackOrder bool
}

// Read decodes the object header at addr, following continuation blocks.
// Shared messages are skipped.
func Read(r *binary.Reader, addr uint64) (*Header, error) {
	sig, err := r.Block(addr, 4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", addr, err)
	}
	h := &Header{Address: addr}
	var first []byte
	switch {
	case string(sig) == "OHDR":
		h.Version = 2
		first, err = h.readPrefixV2(r)
	case sig[0] == 1:
		h.Version = 1
		first, err = readPrefixV1(r, addr)
	default:
		return nil, fmt.Errorf("%w at 0x%x", ErrInvalidHeader, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at 0x%x: %w", addr, err)
	}

	pending := [][]byte{first}
	for n := 0; len(pending) > 0; n++ {
		if n >= maxBlocks {
			return nil, fmt.Errorf("object header at 0x%x: more than %d continuation blocks", addr, maxBlocks)
		}
		conts, err := h.parseBlock(r, pending[0])
		if err != nil {
			return nil, fmt.Errorf("object header at 0x%x: %w", addr, err)
		}
		pending = pending[1:]
		for _, c := range conts {
			b, err := h.readContinuation(r, c)
			if err != nil {
				return nil, fmt.Errorf("object header at 0x%x: %w", addr, err)
			}
			pending = append(pending, b)
		}
	}
	return h, nil
}

// readPrefixV1 returns the first message block of a version 1 header: a
// 16-byte prefix, then the number of bytes the prefix declares.
func readPrefixV1(r *binary.Reader, addr uint64) ([]byte, error) {
	prefix, err := r.Block(addr, 16)
	if err != nil {
		return nil, err
	}
	c := r.Cursor(prefix)
	c.Skip(8) // version, reserved, message count, reference count
	size := c.Uint32()
	return r.Block(addr+16, int(size))
}

// readPrefixV2 returns the first chunk of a version 2 header after checking
// its checksum.
func (h *Header) readPrefixV2(r *binary.Reader) ([]byte, error) {
	start, err := r.Block(h.Address, 6)
	if err != nil {
		return nil, err
	}
	if start[4] != 2 {
		return nil, fmt.Errorf("unsupported object header version %d", start[4])
	}
	flags := start[5]
	h.trackOrder = flags&flagTrackOrder != 0
	width := 1 << (flags & flagSizeWidth)
	prefixLen := 6 + width
	if flags&flagTimes != 0 {
		prefixLen += 16
	}
	if flags&flagPhaseValues != 0 {
		prefixLen += 4
	}

	prefix, err := r.Block(h.Address, prefixLen)
	if err != nil {
		return nil, err
	}
	size := r.Cursor(prefix[prefixLen-width:]).UintN(width)
	whole, err := r.Block(h.Address, prefixLen+int(size)+4)
	if err != nil {
		return nil, err
	}
	return verify(r, whole, prefixLen)
}

func (h *Header) readContinuation(r *binary.Reader, cont *message.Continuation) ([]byte, error) {
	b, err := r.Block(cont.Offset, int(cont.Length))
	if err != nil {
		return nil, fmt.Errorf("reading continuation at 0x%x: %w", cont.Offset, err)
	}
	if h.Version == 1 {
		return b, nil
	}
	if len(b) < 8 || string(b[:4]) != "OCHK" {
		return nil, fmt.Errorf("%w: continuation at 0x%x lacks OCHK signature", ErrInvalidHeader, cont.Offset)
	}
	return verify(r, b, 4)
}

// verify checks the trailing lookup3 checksum of b and returns the bytes
// between skip and the checksum.
func verify(r *binary.Reader, b []byte, skip int) ([]byte, error) {
	end := len(b) - 4
	if end < skip {
		return nil, ErrInvalidHeader
	}
	if binary.Lookup3Checksum(b[:end]) != r.Cursor(b[end:]).Uint32() {
		return nil, ErrChecksum
	}
	return b[skip:end], nil
}

// parseBlock decodes the messages of one block and returns the
// continuations it names.
func (h *Header) parseBlock(r *binary.Reader, block []byte) ([]*message.Continuation, error) {
	c := r.Cursor(block)
	hdrLen := 4
	if h.Version == 1 {
		hdrLen = 8
	} else if h.trackOrder {
		hdrLen = 6
	}

	var conts []*message.Continuation
	for {
		if h.Version == 1 {
			c.AlignTo(8)
		}
		if c.Remaining() < hdrLen || c.Err() != nil {
			break
		}
		var typ message.Type
		var size int
		var flags uint8
		if h.Version == 1 {
			typ = message.Type(c.Uint16())
			size = int(c.Uint16())
			flags = c.Uint8()
			c.Skip(3)
		} else {
			typ = message.Type(c.Uint8())
			size = int(c.Uint16())
			flags = c.Uint8()
			if h.trackOrder {
				c.Skip(2)
			}
		}
		body := c.Bytes(size)
		if c.Err() != nil {
			return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), c.Err())
		}
		if typ == message.TypeNIL || flags&msgShared != 0 {
			continue
		}

		msg, err := message.Parse(typ, body, r)
		if err != nil {
			return nil, err
		}
		if cont, ok := msg.(*message.Continuation); ok {
			conts = append(conts, cont)
			continue
		}
		h.Messages = append(h.Messages, msg)
	}
	return conts, nil
}

// First returns the first message of type T.
func First[T message.Message](h *Header) (T, bool) {
	for _, m := range h.Messages {
		if t, ok := m.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// All returns every message of type T in header order.
func All[T message.Message](h *Header) []T {
	var out []T
	for _, m := range h.Messages {
		if t, ok := m.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Dataspace returns the dataspace message, or nil.
func (h *Header) Dataspace() *message.Dataspace {
	m, _ := First[*message.Dataspace](h)
	return m
}

// Datatype returns the datatype message, or nil.
func (h *Header) Datatype() *message.Datatype {
	m, _ := First[*message.Datatype](h)
	return m
}

// DataLayout returns the layout message, or nil.
func (h *Header) DataLayout() *message.DataLayout {
	m, _ := First[*message.DataLayout](h)
	return m
}

// FilterPipeline returns the filter pipeline message, or nil when the
// dataset is unfiltered.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := First[*message.FilterPipeline](h)
	return m
}

// SymbolTable returns the symbol table message of an old-style group, or nil.
func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := First[*message.SymbolTable](h)
	return m
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.DataLayout() != nil && h.Datatype() != nil
}

// IsGroup reports whether the header describes a group of either style.
func (h *Header) IsGroup() bool {
	_, linkInfo := First[*message.LinkInfo](h)
	_, link := First[*message.Link](h)
	return h.SymbolTable() != nil || linkInfo || link
}
