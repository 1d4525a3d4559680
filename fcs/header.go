package fcs

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// headerSize is the fixed HEADER length: a 6-byte version, 4 blanks and six
// right-justified 8-digit ASCII offsets.
const headerSize = 58

// header holds the segment offsets of one dataset. Offsets are inclusive
// and relative to the dataset's first byte. A zero DATA range means the
// offsets did not fit in 8 digits and live in $BEGINDATA/$ENDDATA.
type header struct {
	version   string
	textBegin int64
	textEnd   int64
	dataBegin int64
	dataEnd   int64
}

func readHeader(r io.ReaderAt, base int64) (*header, error) {
	buf, err := readSegment(r, base, headerSize)
	if err != nil {
		return nil, fmt.Errorf("reading header at %d: %w", base, err)
	}

	version := string(buf[0:6])
	if !strings.HasPrefix(version, "FCS") {
		return nil, fmt.Errorf("%w: header starts with %q", ErrNotFCS, version)
	}

	var offsets [4]int64
	for i := range offsets {
		field := strings.TrimSpace(string(buf[10+8*i : 18+8*i]))
		if field == "" {
			continue
		}
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: header offset %q", ErrMalformed, field)
		}
		offsets[i] = v
	}

	return &header{
		version:   version,
		textBegin: offsets[0],
		textEnd:   offsets[1],
		dataBegin: offsets[2],
		dataEnd:   offsets[3],
	}, nil
}

// readSegment reads exactly n bytes at off.
func readSegment(r io.ReaderAt, off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	got, err := r.ReadAt(buf, off)
	if int64(got) == n {
		return buf, nil
	}
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, ErrTruncated
	}
	return nil, err
}
