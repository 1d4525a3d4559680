package hdf5

import (
	"github.com/l1ktools/l1kio/internal/filter"
	"github.com/l1ktools/l1kio/internal/message"
)

// FileOption configures file creation.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		offsetSize: 8,
		lengthSize: 8,
	}
}

// WithOffsetSize sets the width of file addresses in bytes (2, 4 or 8).
func WithOffsetSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}

// WithLengthSize sets the width of lengths in bytes (2, 4 or 8).
func WithLengthSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.lengthSize = size
		}
	}
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks  []uint64
	shape   []uint64
	filters []message.FilterInfo
	attrs   []attrValue
}

type attrValue struct {
	name  string
	value interface{}
}

func defaultDatasetOptions() *datasetOptions {
	return &datasetOptions{}
}

// WithChunks stores the dataset in chunks of the given dimensions, one per
// dataset dimension.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithShape stores a flat slice under the given dimensions instead of the
// dimensions inferred from the slice nesting. The element count must match.
func WithShape(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.shape = dims
	}
}

// WithAttribute attaches an attribute to the dataset, as Group.SetAttr
// does for groups.
func WithAttribute(name string, value interface{}) DatasetOption {
	return func(o *datasetOptions) {
		o.attrs = append(o.attrs, attrValue{name, value})
	}
}

// Filters run in the order their options are given. Any filter makes the
// dataset chunked; without WithChunks the whole dataset is one chunk.

// WithShuffle byte-shuffles each chunk, which usually helps a compressor
// that follows it.
func WithShuffle() DatasetOption {
	return withFilter(message.FilterInfo{ID: message.FilterShuffle})
}

// WithDeflate compresses chunks with zlib at level 0 to 9, the gzip
// compression of h5py and cmapPy.
func WithDeflate(level int) DatasetOption {
	if level < 0 || level > 9 {
		level = filter.DefaultDeflateLevel
	}
	return withFilter(message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{uint32(level)}})
}

// WithLZ4 compresses chunks with the LZ4 filter plugin.
func WithLZ4() DatasetOption {
	return withFilter(message.FilterInfo{ID: message.FilterLZ4, ClientData: []uint32{filter.DefaultLZ4BlockSize}})
}

// WithZstd compresses chunks with the Zstandard filter plugin. Level 0
// picks the encoder default.
func WithZstd(level int) DatasetOption {
	return withFilter(message.FilterInfo{ID: message.FilterZstd, ClientData: []uint32{uint32(level)}})
}

// WithFletcher32 appends a checksum to every chunk.
func WithFletcher32() DatasetOption {
	return withFilter(message.FilterInfo{ID: message.FilterFletcher32})
}

func withFilter(info message.FilterInfo) DatasetOption {
	return func(o *datasetOptions) {
		o.filters = append(o.filters, info)
	}
}
