package fcs

import (
	"fmt"
	"io"
)

// File is a parsed FCS file: one or more datasets.
type File struct {
	datasets []*DataSet
}

// Parse reads every dataset of the FCS file in r, following $NEXTDATA.
// size bounds the file and guards against offsets that point past the end.
// Event data is read lazily from r.
func Parse(r io.ReaderAt, size int64) (*File, error) {
	f := &File{}
	seen := make(map[int64]bool)

	for base := int64(0); ; {
		if seen[base] {
			return nil, fmt.Errorf("%w: $NEXTDATA loops back to %d", ErrMalformed, base)
		}
		seen[base] = true

		ds, next, err := parseDataSet(r, base, size)
		if err != nil {
			if base > 0 {
				return nil, fmt.Errorf("dataset %d at offset %d: %w", len(f.datasets)+1, base, err)
			}
			return nil, err
		}
		f.datasets = append(f.datasets, ds)

		if next <= 0 {
			break
		}
		base += next
	}
	return f, nil
}

func parseDataSet(r io.ReaderAt, base, size int64) (*DataSet, int64, error) {
	if base+headerSize > size {
		return nil, 0, fmt.Errorf("%w: header at %d beyond %d bytes", ErrTruncated, base, size)
	}
	h, err := readHeader(r, base)
	if err != nil {
		return nil, 0, err
	}
	if h.textEnd < h.textBegin || h.textBegin < headerSize {
		return nil, 0, fmt.Errorf("%w: TEXT segment [%d,%d]", ErrMalformed, h.textBegin, h.textEnd)
	}
	if base+h.textEnd >= size {
		return nil, 0, fmt.Errorf("%w: TEXT ends at %d beyond %d bytes", ErrTruncated, base+h.textEnd, size)
	}

	text, err := readSegment(r, base+h.textBegin, h.textEnd-h.textBegin+1)
	if err != nil {
		return nil, 0, fmt.Errorf("reading TEXT: %w", err)
	}
	kw, err := parseText(text)
	if err != nil {
		return nil, 0, err
	}

	ds, err := newDataSet(r, base, h, kw)
	if err != nil {
		return nil, 0, err
	}
	if need := ds.dataOffset + int64(ds.numEvents)*int64(ds.rowSize); ds.mode == ModeList && need > size {
		return nil, 0, fmt.Errorf("%w: DATA ends at %d beyond %d bytes", ErrTruncated, need, size)
	}

	var next int64
	if _, ok := kw.Get("$NEXTDATA"); ok {
		if next, err = kw.Int("$NEXTDATA"); err != nil {
			return nil, 0, err
		}
		if next < 0 || base+next >= size {
			return nil, 0, fmt.Errorf("%w: $NEXTDATA=%d", ErrMalformed, next)
		}
	}
	return ds, next, nil
}

// NumDataSets returns the number of datasets in the file.
func (f *File) NumDataSets() int {
	return len(f.datasets)
}

// DataSet returns the zero-based dataset i.
func (f *File) DataSet(i int) (*DataSet, error) {
	if i < 0 || i >= len(f.datasets) {
		return nil, fmt.Errorf("fcs: dataset %d out of range [0,%d)", i, len(f.datasets))
	}
	return f.datasets[i], nil
}
