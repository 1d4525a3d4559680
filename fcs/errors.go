package fcs

import "errors"

var (
	// ErrNotFCS is returned when the HEADER does not start with an FCS version.
	ErrNotFCS = errors.New("fcs: not an FCS file")
	// ErrTruncated is returned when a segment extends past the end of the file.
	ErrTruncated = errors.New("fcs: truncated file")
	// ErrMalformed is returned for unparseable HEADER or TEXT contents.
	ErrMalformed = errors.New("fcs: malformed segment")
	// ErrUnsupportedDataType is returned for data layouts this package cannot decode.
	ErrUnsupportedDataType = errors.New("fcs: unsupported data type")
	// ErrKeywordMissing is returned when a required keyword is absent.
	ErrKeywordMissing = errors.New("fcs: keyword missing")
	// ErrNotListMode is returned when reading events from histogram data.
	ErrNotListMode = errors.New("fcs: dataset is not list mode")
)
