// Package hdf5 reads HDF5 files in pure Go and writes the small subset of
// the format needed to build test containers: nested groups, attributes and
// contiguous or chunked, optionally compressed, datasets.
package hdf5

import (
	"errors"

	"github.com/l1ktools/l1kio/internal/superblock"
)

var (
	ErrNotHDF5     = superblock.ErrNotHDF5
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is not writable")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth bounds the soft links followed while resolving one path,
// which also ends link cycles.
const MaxLinkDepth = 100
