// Package superblock reads and writes the HDF5 superblock, the structure at
// the start of a file that fixes address widths and locates the root group.
package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/l1ktools/l1kio/internal/binary"
)

// Signature opens every HDF5 file.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// A user block may precede the superblock, so it is searched for at 0 and
// at each power of two from 512.
var searchOffsets = []int64{0, 512, 1024, 2048, 4096, 8192}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrChecksum           = errors.New("superblock checksum mismatch")
)

// maxSize covers every supported version with 8-byte addresses.
const maxSize = 96

// Superblock holds the fields of a superblock that the rest of the package
// needs. Version 0 and 1 free-space and driver addresses are skipped.
type Superblock struct {
	Version          uint8
	OffsetSize       uint8
	LengthSize       uint8
	Flags            uint8
	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootAddress      uint64

	// Position of the signature in the file.
	FileOffset int64
}

// New returns a version 2 superblock with the given address widths.
func New(offsetSize, lengthSize int) *Superblock {
	return &Superblock{Version: 2, OffsetSize: uint8(offsetSize), LengthSize: uint8(lengthSize)}
}

// Read locates and decodes the superblock of r.
func Read(r io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, maxSize)
	for _, off := range searchOffsets {
		n, err := r.ReadAt(buf, off)
		if n < len(Signature)+1 {
			if err != nil && err != io.EOF {
				return nil, err
			}
			break
		}
		if !bytes.Equal(buf[:len(Signature)], Signature) {
			continue
		}
		sb, err := decode(buf[:n])
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

func decode(b []byte) (*Superblock, error) {
	sb := &Superblock{Version: b[len(Signature)]}
	// Widths are needed before the cursor can read addresses.
	switch sb.Version {
	case 0, 1:
		if len(b) < 16 {
			return nil, io.ErrUnexpectedEOF
		}
		sb.OffsetSize, sb.LengthSize = b[13], b[14]
	case 2, 3:
		if len(b) < 12 {
			return nil, io.ErrUnexpectedEOF
		}
		sb.OffsetSize, sb.LengthSize = b[9], b[10]
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, sb.Version)
	}
	if !validWidth(sb.OffsetSize) || !validWidth(sb.LengthSize) {
		return nil, fmt.Errorf("invalid superblock address widths %d/%d", sb.OffsetSize, sb.LengthSize)
	}

	c := binpkg.NewCursor(b, sb.Config())
	if sb.Version <= 1 {
		c.Skip(20) // signature through group K values
		sb.Flags = uint8(c.Uint32())
		if sb.Version == 1 {
			c.Skip(4) // indexed storage K and reserved
		}
		sb.BaseAddress = c.Offset()
		c.Offset() // free-space info
		sb.EOFAddress = c.Offset()
		c.Offset() // driver info
		c.Offset() // root entry link name
		sb.RootAddress = c.Offset()
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("reading superblock: %w", err)
		}
		return sb, nil
	}

	c.Skip(11)
	sb.Flags = c.Uint8()
	sb.BaseAddress = c.Offset()
	sb.ExtensionAddress = c.Offset()
	sb.EOFAddress = c.Offset()
	sb.RootAddress = c.Offset()
	end := c.Pos()
	sum := c.Uint32()
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if binpkg.Lookup3Checksum(b[:end]) != sum {
		return nil, ErrChecksum
	}
	return sb, nil
}

func validWidth(w uint8) bool {
	return w == 2 || w == 4 || w == 8
}

// Config returns the codec settings the superblock declares. HDF5 metadata
// is always little-endian.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size returns the encoded size of a version 2 or 3 superblock.
func (sb *Superblock) Size() int {
	return len(Signature) + 4 + 4*int(sb.OffsetSize) + 4
}

// Encode returns a version 2 or 3 superblock. An unset extension address
// is written as undefined.
func (sb *Superblock) Encode() ([]byte, error) {
	if sb.Version < 2 {
		return nil, fmt.Errorf("%w for writing: %d", ErrUnsupportedVersion, sb.Version)
	}
	b := binpkg.NewBuffer(sb.Config())
	b.Raw(Signature)
	b.Uint8(sb.Version)
	b.Uint8(sb.OffsetSize)
	b.Uint8(sb.LengthSize)
	b.Uint8(sb.Flags)
	b.Offset(sb.BaseAddress)
	if sb.ExtensionAddress == 0 {
		b.Undefined()
	} else {
		b.Offset(sb.ExtensionAddress)
	}
	b.Offset(sb.EOFAddress)
	b.Offset(sb.RootAddress)
	b.Checksum()
	return b.Bytes(), nil
}
