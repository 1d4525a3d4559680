// Package dtype maps HDF5 datatypes to Go types.
//
//	HDF5 class        | Go type
//	------------------|------------------------------------------
//	Fixed-point       | int8..int64 or uint8..uint64 by size and sign
//	Floating-point    | float32 or float64
//	String            | string, fixed-size or through the global heap
//
// Other classes have no Go type; readers treat such data as unsupported.
// [ConvertWithReader] decodes raw dataset or attribute bytes into a slice of
// the matching Go type; [Encode] and [GoTypeToDatatype] go the other way for
// the writer.
package dtype
