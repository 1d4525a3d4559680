package gctx

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// RowIndices returns the positions of the rows whose id is one of ids.
func (d *Dataset) RowIndices(ids ...string) *roaring.Bitmap {
	return indicesOf(d.rowMeta, ids)
}

// ColumnIndices returns the positions of the columns whose id is one of ids.
func (d *Dataset) ColumnIndices(ids ...string) *roaring.Bitmap {
	return indicesOf(d.colMeta, ids)
}

// RowsWhere returns the positions of the rows whose field, formatted as
// text, satisfies match. An unknown field selects nothing.
func (d *Dataset) RowsWhere(field string, match func(string) bool) *roaring.Bitmap {
	return where(d.rowMeta, field, match)
}

// ColumnsWhere is RowsWhere for column metadata.
func (d *Dataset) ColumnsWhere(field string, match func(string) bool) *roaring.Bitmap {
	return where(d.colMeta, field, match)
}

func indicesOf(m Metadata, ids []string) *roaring.Bitmap {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return where(m, IDField, func(s string) bool {
		_, ok := want[s]
		return ok
	})
}

func where(m Metadata, field string, match func(string) bool) *roaring.Bitmap {
	bm := roaring.New()
	v, ok := m[field]
	if !ok {
		return bm
	}
	for i := range v.Len() {
		if match(v.String(i)) {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Subset returns a new Dataset restricted to the selected rows and columns,
// in ascending index order. A nil selection keeps every row or column.
// Metadata fields whose length differs from the row or column count are
// left out of the result.
func (d *Dataset) Subset(rows, cols *roaring.Bitmap) (*Dataset, error) {
	rowIdx, err := selection(rows, d.rows, "row")
	if err != nil {
		return nil, err
	}
	colIdx, err := selection(cols, d.cols, "column")
	if err != nil {
		return nil, err
	}

	data := make([]float32, 0, len(rowIdx)*len(colIdx))
	for _, c := range colIdx {
		column := d.data[int(c)*d.rows:]
		for _, r := range rowIdx {
			data = append(data, column[r])
		}
	}
	return &Dataset{
		data:    data,
		rows:    len(rowIdx),
		cols:    len(colIdx),
		rowMeta: d.rowMeta.pick(rowIdx, d.rows),
		colMeta: d.colMeta.pick(colIdx, d.cols),
		version: d.version,
	}, nil
}

func selection(bm *roaring.Bitmap, n int, axis string) ([]uint32, error) {
	if bm == nil {
		idx := make([]uint32, n)
		for i := range idx {
			idx[i] = uint32(i)
		}
		return idx, nil
	}
	if !bm.IsEmpty() && int(bm.Maximum()) >= n {
		return nil, fmt.Errorf("%s %d out of range for %d %ss", axis, bm.Maximum(), n, axis)
	}
	return bm.ToArray(), nil
}
