package fcs

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	binpkg "github.com/l1ktools/l1kio/internal/binary"
)

// Mode is the $MODE of a dataset.
type Mode byte

const (
	ModeList         Mode = 'L'
	ModeCorrelated   Mode = 'C'
	ModeUncorrelated Mode = 'U'
)

func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeCorrelated:
		return "correlated histogram"
	case ModeUncorrelated:
		return "uncorrelated histogram"
	}
	return fmt.Sprintf("Mode(%q)", byte(m))
}

// Parameter describes one measured parameter ($Pn keywords).
type Parameter struct {
	// Name is $PnN, empty when absent.
	Name string
	// Label is $PnS, empty when absent.
	Label string
	// Bits is $PnB.
	Bits int
	// Range is $PnR.
	Range uint64

	mask uint64
}

// DataSet is one dataset of an FCS file. Events are decoded on demand from
// the underlying reader, which must stay open while the dataset is used.
type DataSet struct {
	version   string
	keywords  *Keywords
	mode      Mode
	dataType  byte
	params    []Parameter
	numEvents int
	rowSize   int

	dataOffset int64
	data       *binpkg.Reader
}

// Version returns the HEADER version, e.g. "FCS3.0".
func (d *DataSet) Version() string { return d.version }

// Keywords returns the TEXT keyword table.
func (d *DataSet) Keywords() *Keywords { return d.keywords }

// Mode returns $MODE.
func (d *DataSet) Mode() Mode { return d.mode }

// DataType returns $DATATYPE (I, F or D).
func (d *DataSet) DataType() byte { return d.dataType }

// NumParameters returns $PAR.
func (d *DataSet) NumParameters() int { return len(d.params) }

// NumEvents returns $TOT.
func (d *DataSet) NumEvents() int { return d.numEvents }

// Parameter returns the i-th parameter description.
func (d *DataSet) Parameter(i int) Parameter { return d.params[i] }

// ParameterName returns $PnN for the zero-based parameter i.
func (d *DataSet) ParameterName(i int) (string, error) {
	if i < 0 || i >= len(d.params) {
		return "", fmt.Errorf("fcs: parameter %d out of range [0,%d)", i, len(d.params))
	}
	if d.params[i].Name == "" {
		return "", fmt.Errorf("%w: $P%dN", ErrKeywordMissing, i+1)
	}
	return d.params[i].Name, nil
}

// Event decodes the zero-based event i into dst, which must hold at least
// NumParameters values.
func (d *DataSet) Event(i int, dst []float32) error {
	if d.mode != ModeList {
		return fmt.Errorf("%w: $MODE=%c", ErrNotListMode, byte(d.mode))
	}
	if i < 0 || i >= d.numEvents {
		return fmt.Errorf("fcs: event %d out of range [0,%d)", i, d.numEvents)
	}
	if len(dst) < len(d.params) {
		return fmt.Errorf("fcs: event buffer holds %d values, need %d", len(dst), len(d.params))
	}

	row, err := d.data.Block(uint64(i)*uint64(d.rowSize), d.rowSize)
	if err != nil {
		return fmt.Errorf("reading event %d: %w", i, err)
	}
	order := d.data.ByteOrder()

	off := 0
	for p := range d.params {
		param := &d.params[p]
		width := param.Bits / 8
		b := row[off : off+width]
		switch d.dataType {
		case 'I':
			v := decodeUint(order, b)
			if param.mask != 0 {
				v &= param.mask
			}
			dst[p] = float32(v)
		case 'F':
			dst[p] = math.Float32frombits(order.Uint32(b))
		case 'D':
			dst[p] = float32(math.Float64frombits(order.Uint64(b)))
		}
		off += width
	}
	return nil
}

func decodeUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

// newDataSet validates the TEXT keywords of a dataset and binds its DATA
// segment, which spans [dataBegin, dataEnd] relative to base.
func newDataSet(r io.ReaderAt, base int64, h *header, kw *Keywords) (*DataSet, error) {
	d := &DataSet{
		version:  h.version,
		keywords: kw,
		mode:     ModeList,
	}

	if m, ok := kw.Get("$MODE"); ok {
		m = strings.TrimSpace(strings.ToUpper(m))
		if len(m) != 1 || !strings.Contains("LCU", m) {
			return nil, fmt.Errorf("%w: $MODE=%q", ErrMalformed, m)
		}
		d.mode = Mode(m[0])
	}

	dt, ok := kw.Get("$DATATYPE")
	if !ok {
		return nil, fmt.Errorf("%w: $DATATYPE", ErrKeywordMissing)
	}
	dt = strings.TrimSpace(strings.ToUpper(dt))
	switch dt {
	case "I", "F", "D":
		d.dataType = dt[0]
	default:
		return nil, fmt.Errorf("%w: $DATATYPE=%q", ErrUnsupportedDataType, dt)
	}

	order, err := byteOrder(kw)
	if err != nil {
		return nil, err
	}

	npar, err := kw.Int("$PAR")
	if err != nil {
		return nil, err
	}
	if npar <= 0 {
		return nil, fmt.Errorf("%w: $PAR=%d", ErrMalformed, npar)
	}
	d.params = make([]Parameter, npar)
	for i := range d.params {
		if d.params[i], err = parameter(kw, i+1, d.dataType); err != nil {
			return nil, err
		}
		d.rowSize += d.params[i].Bits / 8
	}

	tot, err := kw.Int("$TOT")
	if err != nil {
		return nil, err
	}
	if tot < 0 {
		return nil, fmt.Errorf("%w: $TOT=%d", ErrMalformed, tot)
	}
	d.numEvents = int(tot)

	begin, end := h.dataBegin, h.dataEnd
	if begin == 0 && end == 0 {
		if begin, err = kw.Int("$BEGINDATA"); err != nil {
			return nil, err
		}
		if end, err = kw.Int("$ENDDATA"); err != nil {
			return nil, err
		}
	}
	length := int64(0)
	if end >= begin && (begin != 0 || end != 0) {
		length = end - begin + 1
	}
	// Histogram DATA holds bins, not $TOT rows, and is never decoded.
	if need := tot * int64(d.rowSize); d.mode == ModeList && need > length {
		return nil, fmt.Errorf("%w: DATA holds %d bytes, $TOT=%d needs %d", ErrTruncated, length, tot, need)
	}

	d.dataOffset = base + begin
	d.data = binpkg.NewReader(io.NewSectionReader(r, base+begin, length), binpkg.Config{
		ByteOrder:  order,
		OffsetSize: 8,
		LengthSize: 8,
	})
	return d, nil
}

func byteOrder(kw *Keywords) (binary.ByteOrder, error) {
	v, ok := kw.Get("$BYTEORD")
	if !ok {
		return nil, fmt.Errorf("%w: $BYTEORD", ErrKeywordMissing)
	}
	switch strings.ReplaceAll(strings.TrimSpace(v), " ", "") {
	case "1,2,3,4", "1,2", "1,2,3,4,5,6,7,8":
		return binary.LittleEndian, nil
	case "4,3,2,1", "2,1", "8,7,6,5,4,3,2,1":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: $BYTEORD=%q", ErrUnsupportedDataType, v)
}

func parameter(kw *Keywords, n int, dataType byte) (Parameter, error) {
	var p Parameter
	p.Name, _ = kw.Get(fmt.Sprintf("$P%dN", n))
	p.Name = strings.TrimSpace(p.Name)
	p.Label, _ = kw.Get(fmt.Sprintf("$P%dS", n))

	bits, err := kw.Int(fmt.Sprintf("$P%dB", n))
	if err != nil {
		return p, err
	}
	p.Bits = int(bits)
	switch {
	case dataType == 'F' && p.Bits != 32,
		dataType == 'D' && p.Bits != 64,
		dataType == 'I' && p.Bits != 8 && p.Bits != 16 && p.Bits != 32 && p.Bits != 64:
		return p, fmt.Errorf("%w: $P%dB=%d for $DATATYPE %c", ErrUnsupportedDataType, n, p.Bits, dataType)
	}

	if rv, ok := kw.Get(fmt.Sprintf("$P%dR", n)); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(rv), 64)
		if err != nil || f < 0 {
			return p, fmt.Errorf("%w: $P%dR=%q", ErrMalformed, n, rv)
		}
		p.Range = uint64(f)
	}
	if dataType == 'I' {
		p.mask = rangeMask(p.Range)
	}
	return p, nil
}

// rangeMask returns the mask of the smallest power of two that is at least
// r, or zero (no masking) when r is zero or too large.
func rangeMask(r uint64) uint64 {
	if r == 0 || r > 1<<63 {
		return 0
	}
	m := uint64(1)
	for m < r {
		m <<= 1
	}
	return m - 1
}
