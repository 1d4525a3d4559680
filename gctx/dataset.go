package gctx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// IDField is the metadata field holding row and column identifiers.
const IDField = "id"

// Dataset is a decoded matrix with row and column metadata. Values are
// stored column-major: the value at (row, col) is data[row+col*rows].
type Dataset struct {
	data    []float32
	rows    int
	cols    int
	rowMeta Metadata
	colMeta Metadata
	version string
}

// NewDataset assembles a Dataset. len(data) must equal rows*cols.
func NewDataset(data []float32, rows, cols int, rowMeta, colMeta Metadata) (*Dataset, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("negative dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("data has %d values, want %d for %dx%d", len(data), rows*cols, rows, cols)
	}
	if rowMeta == nil {
		rowMeta = Metadata{}
	}
	if colMeta == nil {
		colMeta = Metadata{}
	}
	return &Dataset{data: data, rows: rows, cols: cols, rowMeta: rowMeta, colMeta: colMeta}, nil
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int { return d.rows }

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int { return d.cols }

// RowMetadata returns the per-row fields.
func (d *Dataset) RowMetadata() Metadata { return d.rowMeta }

// ColumnMetadata returns the per-column fields.
func (d *Dataset) ColumnMetadata() Metadata { return d.colMeta }

// Data returns the column-major values. The slice must not be modified.
func (d *Dataset) Data() []float32 { return d.data }

// Version returns the container's version attribute, e.g. "GCTX1.0", or the
// header line of a text file such as "#1.3". It is empty when unknown.
func (d *Dataset) Version() string { return d.version }

// ValueAt returns the value at (row, col). It panics if either index is out
// of range.
func (d *Dataset) ValueAt(row, col int) float32 {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		panic(fmt.Sprintf("gctx: index (%d, %d) out of range for %dx%d matrix", row, col, d.rows, d.cols))
	}
	return d.data[row+col*d.rows]
}

// Column returns the values of column col. The slice must not be modified.
func (d *Dataset) Column(col int) []float32 {
	if col < 0 || col >= d.cols {
		panic(fmt.Sprintf("gctx: column %d out of range for %d columns", col, d.cols))
	}
	return d.data[col*d.rows : (col+1)*d.rows]
}

// RowIDs returns the row identifiers, or nil if rows have no id field.
func (d *Dataset) RowIDs() []string { return ids(d.rowMeta) }

// ColumnIDs returns the column identifiers, or nil if columns have no id field.
func (d *Dataset) ColumnIDs() []string { return ids(d.colMeta) }

func ids(m Metadata) []string {
	v, ok := m[IDField]
	if !ok {
		return nil
	}
	return v.Strings()
}

// Fingerprint hashes the dimensions, values and metadata. Equal
// datasets have equal fingerprints whatever the source format.
func (d *Dataset) Fingerprint() uint64 {
	h := xxhash.New()
	var buf []byte
	buf = binary.LittleEndian.AppendUint64(buf, uint64(d.rows))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(d.cols))
	for _, v := range d.data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	h.Write(buf)
	hashMetadata(h, 'R', d.rowMeta)
	hashMetadata(h, 'C', d.colMeta)
	return h.Sum64()
}

func hashMetadata(h *xxhash.Digest, axis byte, m Metadata) {
	for _, name := range m.Names() {
		v := m[name]
		h.Write([]byte{axis, byte(v.kind)})
		h.WriteString(name)
		h.Write([]byte{0})
		var buf []byte
		switch v.kind {
		case KindText:
			for _, s := range v.text {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
				buf = append(buf, s...)
			}
		case KindFloat32:
			for _, f := range v.f32 {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
			}
		case KindFloat64:
			for _, f := range v.f64 {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
			}
		case KindInt32:
			for _, n := range v.i32 {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
			}
		}
		h.Write(buf)
	}
}
