// Package filter encodes and decodes chunk data through an HDF5 filter
// pipeline.
//
// Writing runs the filters in message order; reading runs them in reverse,
// skipping those set in the chunk's filter mask. Supported filters:
//
//	ID     | Filter      | Implementation
//	-------|-------------|------------------------------
//	1      | deflate     | klauspost/compress/zlib
//	2      | shuffle     | byte transpose
//	3      | fletcher32  | appended checksum
//	32004  | LZ4         | pierrec/lz4 block framing
//	32015  | Zstandard   | klauspost/compress/zstd
//
// Other filters fail the read unless the pipeline marks them optional.
package filter
