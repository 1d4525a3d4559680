package gctx

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1ktools/l1kio/hdf5"
	"github.com/l1ktools/l1kio/internal/gctxtest"
	"github.com/l1ktools/l1kio/telemetry"
)

type fakeItem struct {
	name string
	dims []uint64
	raw  any
	err  error
}

func (i fakeItem) Name() string       { return i.name }
func (i fakeItem) Dims() []uint64     { return i.dims }
func (i fakeItem) Read() (any, error) { return i.raw, i.err }

type fakeGroup []Item

func (g fakeGroup) Items() ([]Item, error) { return g, nil }

type fakeContainer struct {
	items    map[string]Item
	groups   map[string]Group
	attrs    map[string]any
	closes   int
	closeErr error
}

func (c *fakeContainer) Dataset(path string) (Item, error) {
	if it, ok := c.items[path]; ok {
		return it, nil
	}
	return nil, hdf5.ErrNotFound
}

func (c *fakeContainer) Group(path string) (Group, error) {
	if g, ok := c.groups[path]; ok {
		return g, nil
	}
	return nil, hdf5.ErrNotFound
}

func (c *fakeContainer) Attr(path, name string) (any, bool) {
	v, ok := c.attrs[path+"@"+name]
	return v, ok
}

func (c *fakeContainer) Close() error {
	c.closes++
	return c.closeErr
}

// validContainer holds a 2x3 matrix stored as [cols, rows].
func validContainer() *fakeContainer {
	return &fakeContainer{
		items: map[string]Item{
			MatrixPath: fakeItem{name: "matrix", dims: []uint64{3, 2}, raw: []float32{1, 2, 3, 4, 5, 6}},
		},
		groups: map[string]Group{
			RowMetaPath: fakeGroup{fakeItem{name: "id", raw: []string{"r0", "r1"}}},
			ColumnMetaPath: fakeGroup{
				fakeItem{name: "id", raw: []string{"c0", "c1", "c2"}},
				fakeItem{name: "dose", raw: []float64{0.1, 1, 10}},
			},
		},
		attrs: map[string]any{"/@version": "GCTX1.0"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  any
		kind Kind
		ok   bool
	}{
		{[]string{"a"}, KindText, true},
		{[]float32{1}, KindFloat32, true},
		{[]float64{1}, KindFloat64, true},
		{[]int32{1}, KindInt32, true},
		{[]int64{1}, KindInvalid, false},
		{[]uint8{1}, KindInvalid, false},
		{"scalar", KindInvalid, false},
		{nil, KindInvalid, false},
	}
	for _, tt := range tests {
		v, ok := Classify(tt.raw)
		assert.Equal(t, tt.ok, ok, "%T", tt.raw)
		assert.Equal(t, tt.kind, v.Kind(), "%T", tt.raw)
	}
}

func TestVectorAccessors(t *testing.T) {
	v := Int32([]int32{-3, 7})
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []int32{-3, 7}, v.Int32s())
	assert.Nil(t, v.Texts())
	assert.Equal(t, []string{"-3", "7"}, v.Strings())

	f := Float32([]float32{1.5})
	assert.Equal(t, "1.5", f.String(0))
	assert.Equal(t, "float32", f.Kind().String())
	assert.Equal(t, 0, Vector{}.Len())
}

func TestDecodeGroup(t *testing.T) {
	g := fakeGroup{
		fakeItem{name: "id", raw: []string{"a", "b"}},
		fakeItem{name: "count", raw: []int32{1, 2}},
		fakeItem{name: "wide", raw: []int64{1, 2}},
		fakeItem{name: "count", raw: []float64{3, 4}},
	}
	m, err := DecodeGroup(g, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"count", "id"}, m.Names())
	count, ok := m.Get("count")
	require.True(t, ok)
	assert.Equal(t, KindFloat64, count.Kind(), "last duplicate wins")
	assert.Equal(t, []float64{3, 4}, count.Float64s())
	_, ok = m.Get("wide")
	assert.False(t, ok, "unsupported element types are dropped")
}

func TestDecodeGroupReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := DecodeGroup(fakeGroup{fakeItem{name: "id", err: boom}}, nil)
	require.ErrorIs(t, err, boom)
}

func TestReaderRead(t *testing.T) {
	c := validContainer()
	r := NewReader(c)
	ds, err := r.Read()
	require.NoError(t, err)

	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, 3, ds.ColumnCount())
	assert.Equal(t, "GCTX1.0", ds.Version())
	for row := range 2 {
		for col := range 3 {
			assert.Equal(t, float32(1+row+col*2), ds.ValueAt(row, col))
		}
	}
	assert.Equal(t, []string{"r0", "r1"}, ds.RowIDs())
	assert.Equal(t, []string{"c0", "c1", "c2"}, ds.ColumnIDs())
	assert.Equal(t, []float32{3, 4}, ds.Column(1))
	assert.Panics(t, func() { ds.ValueAt(2, 0) })
	assert.Panics(t, func() { ds.ValueAt(0, -1) })

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, c.closes)
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReaderStructureErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *fakeContainer)
		path   string
	}{
		{"missing matrix", func(c *fakeContainer) { delete(c.items, MatrixPath) }, MatrixPath},
		{"missing row metadata", func(c *fakeContainer) { delete(c.groups, RowMetaPath) }, RowMetaPath},
		{"missing column metadata", func(c *fakeContainer) { delete(c.groups, ColumnMetaPath) }, ColumnMetaPath},
		{"rank 3", func(c *fakeContainer) {
			c.items[MatrixPath] = fakeItem{dims: []uint64{1, 3, 2}, raw: []float32{1, 2, 3, 4, 5, 6}}
		}, MatrixPath},
		{"short data", func(c *fakeContainer) {
			c.items[MatrixPath] = fakeItem{dims: []uint64{3, 2}, raw: []float32{1, 2, 3}}
		}, MatrixPath},
		{"integer matrix", func(c *fakeContainer) {
			c.items[MatrixPath] = fakeItem{dims: []uint64{3, 2}, raw: []int32{1, 2, 3, 4, 5, 6}}
		}, MatrixPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContainer()
			tt.mutate(c)
			r := NewReader(c)
			_, err := r.Read()
			require.ErrorIs(t, err, ErrStructure)
			var se *StructureError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
			assert.NoError(t, r.Close())
			assert.Equal(t, 1, c.closes)
		})
	}
}

func TestReaderNarrowsFloat64Matrix(t *testing.T) {
	c := validContainer()
	c.items[MatrixPath] = fakeItem{dims: []uint64{3, 2}, raw: []float64{1, 2, 3, 4, 5, 6}}
	ds, err := NewReader(c).Read()
	require.NoError(t, err)
	assert.Equal(t, float32(6), ds.ValueAt(1, 2))
}

func TestReaderCloseErrorSuppressed(t *testing.T) {
	c := validContainer()
	c.closeErr = errors.New("release failed")
	r := NewReader(c)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Equal(t, 1, c.closes)

	var nilReader *Reader
	assert.NoError(t, nilReader.Close())
}

func TestReaderMetrics(t *testing.T) {
	m := telemetry.New(prometheus.NewRegistry())
	_, err := NewReader(validContainer(), WithMetrics(m)).Read()
	require.NoError(t, err)
	c := validContainer()
	delete(c.items, MatrixPath)
	_, err = NewReader(c, WithMetrics(m)).Read()
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decodes.WithLabelValues(telemetry.KindGCTX, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decodes.WithLabelValues(telemetry.KindGCTX, "error")))
}

func writeFixture(t *testing.T, m gctxtest.Matrix) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.gctx")
	require.NoError(t, gctxtest.Write(path, m))
	return path
}

func fixtureMatrix() gctxtest.Matrix {
	return gctxtest.Matrix{
		Rows: 3,
		Cols: 2,
		Data: []float32{1, 2, 3, 10, 20, 30},
		RowMeta: []gctxtest.Field{
			{Name: "id", Values: []string{"g1", "g2", "g3"}},
			{Name: "pr_gene_symbol", Values: []string{"TP53", "EGFR", "MYC"}},
		},
		ColMeta: []gctxtest.Field{
			{Name: "id", Values: []string{"s1", "s2"}},
			{Name: "pert_dose", Values: []float32{0.5, 10}},
			{Name: "pert_time", Values: []int32{6, 24}},
			{Name: "plate_idx", Values: []int64{1, 2}},
		},
		Version: "GCTX1.0",
	}
}

func TestOpenReadGCTX(t *testing.T) {
	path := writeFixture(t, fixtureMatrix())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	ds, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, 3, ds.RowCount())
	assert.Equal(t, 2, ds.ColumnCount())
	assert.Equal(t, "GCTX1.0", ds.Version())
	assert.Equal(t, float32(3), ds.ValueAt(2, 0))
	assert.Equal(t, float32(20), ds.ValueAt(1, 1))
	assert.Equal(t, []string{"g1", "g2", "g3"}, ds.RowIDs())
	assert.Equal(t, []string{"s1", "s2"}, ds.ColumnIDs())

	cm := ds.ColumnMetadata()
	assert.Equal(t, []string{"id", "pert_dose", "pert_time"}, cm.Names())
	assert.Equal(t, []float32{0.5, 10}, cm["pert_dose"].Float32s())
	assert.Equal(t, []int32{6, 24}, cm["pert_time"].Int32s())
	assert.Equal(t, []string{"TP53", "EGFR", "MYC"}, ds.RowMetadata()["pr_gene_symbol"].Texts())

	// Reading again re-reads the container.
	again, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, ds.Fingerprint(), again.Fingerprint())
}

func TestOpenChunkedMatrix(t *testing.T) {
	m := fixtureMatrix()
	m.Chunks = []uint64{1, 2}
	chunked, err := Load(context.Background(), writeFixture(t, m))
	require.NoError(t, err)

	plain, err := Load(context.Background(), writeFixture(t, fixtureMatrix()))
	require.NoError(t, err)
	assert.Equal(t, plain.Data(), chunked.Data())
	assert.Equal(t, plain.Fingerprint(), chunked.Fingerprint())
}

func TestOpenCompressedMatrix(t *testing.T) {
	plain, err := Load(context.Background(), writeFixture(t, fixtureMatrix()))
	require.NoError(t, err)

	tests := map[string][]hdf5.DatasetOption{
		"gzip":    {hdf5.WithShuffle(), hdf5.WithDeflate(6)},
		"lz4":     {hdf5.WithLZ4()},
		"zstd":    {hdf5.WithZstd(0)},
		"checked": {hdf5.WithDeflate(1), hdf5.WithFletcher32()},
	}
	for name, filters := range tests {
		t.Run(name, func(t *testing.T) {
			m := fixtureMatrix()
			m.Chunks = []uint64{1, 3}
			m.Filters = filters
			ds, err := Load(context.Background(), writeFixture(t, m))
			require.NoError(t, err)
			assert.Equal(t, plain.Data(), ds.Data())
			assert.Equal(t, plain.Fingerprint(), ds.Fingerprint())
		})
	}
}

func TestOpenMissingRowMetadata(t *testing.T) {
	m := fixtureMatrix()
	m.OmitRowMeta = true
	r, err := Open(writeFixture(t, m))
	require.NoError(t, err)

	_, err = r.Read()
	var se *StructureError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RowMetaPath, se.Path)
	assert.ErrorIs(t, err, hdf5.ErrNotFound)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func TestOpenSkipsMetadataSubgroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.gctx")
	f, err := hdf5.Create(path)
	require.NoError(t, err)
	data, err := f.Root().CreateGroupPath("/0/DATA/0")
	require.NoError(t, err)
	_, err = data.CreateDataset("matrix", []float32{1, 2}, hdf5.WithShape(1, 2))
	require.NoError(t, err)
	col, err := f.Root().CreateGroupPath("/0/META/COL")
	require.NoError(t, err)
	_, err = col.CreateDataset("id", []string{"s1"})
	require.NoError(t, err)
	row, err := f.Root().CreateGroupPath("/0/META/ROW/nested")
	require.NoError(t, err)
	_, err = row.CreateDataset("ignored", []int32{1, 2})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	ds, err := r.Read()
	require.NoError(t, err)
	assert.Empty(t, ds.RowMetadata())
	assert.Nil(t, ds.RowIDs())
	assert.Equal(t, "", ds.Version())
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.gctx"))
	assert.ErrorIs(t, err, ErrNotFound)

	junk := filepath.Join(dir, "junk.gctx")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte{0xAB}, 2048), 0o644))
	r, err := Open(junk)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Nil(t, r)
	assert.NoError(t, r.Close())
}

const gct13 = "#1.3\n" +
	"3\t2\t1\t2\n" +
	"id\tpr_gene_symbol\ts1\ts2\n" +
	"pert_dose\tna\t0.5\t10\n" +
	"pert_time\tna\t6\t24\n" +
	"g1\tTP53\t1\t10\n" +
	"g2\tEGFR\t2\t20\n" +
	"g3\tMYC\t3\t30\n"

func TestReadGCT13(t *testing.T) {
	ds, err := ReadGCT(strings.NewReader(gct13))
	require.NoError(t, err)
	assert.Equal(t, GCT13, ds.Version())
	assert.Equal(t, 3, ds.RowCount())
	assert.Equal(t, 2, ds.ColumnCount())
	assert.Equal(t, []float32{1, 2, 3, 10, 20, 30}, ds.Data())
	assert.Equal(t, []string{"g1", "g2", "g3"}, ds.RowIDs())
	assert.Equal(t, []string{"s1", "s2"}, ds.ColumnIDs())
	assert.Equal(t, []string{"0.5", "10"}, ds.ColumnMetadata()["pert_dose"].Texts())
	assert.Equal(t, []string{"TP53", "EGFR", "MYC"}, ds.RowMetadata()["pr_gene_symbol"].Texts())
}

func TestReadGCT12(t *testing.T) {
	in := "#1.2\r\n2\t3\r\nName\tDescription\tA\tB\tC\r\np1\tfirst\t1\tNA\t3\r\np2\tsecond\t4\t5\t\r\n"
	ds, err := ReadGCT(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, GCT12, ds.Version())
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, 3, ds.ColumnCount())
	assert.Equal(t, []string{"p1", "p2"}, ds.RowIDs())
	assert.Equal(t, []string{"first", "second"}, ds.RowMetadata()["Description"].Texts())
	assert.Equal(t, float32(4), ds.ValueAt(1, 0))
	assert.True(t, math.IsNaN(float64(ds.ValueAt(0, 1))))
	assert.True(t, math.IsNaN(float64(ds.ValueAt(1, 2))))
}

func TestReadGCTErrors(t *testing.T) {
	tests := map[string]string{
		"bad version":  "#2.0\n1\t1\n",
		"bad dims":     "#1.3\n1\tx\t0\t0\n",
		"few dims":     "#1.3\n1\t1\n",
		"short header": "#1.2\n1\t2\nName\tDescription\tA\n",
		"truncated":    "#1.2\n2\t1\nName\tDescription\tA\np1\td\t1\n",
		"bad value":    "#1.2\n1\t1\nName\tDescription\tA\np1\td\tabc\n",
		"empty":        "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadGCT(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestFingerprintAcrossFormats(t *testing.T) {
	text, err := ReadGCT(strings.NewReader(gct13))
	require.NoError(t, err)

	m := gctxtest.Matrix{
		Rows: 3,
		Cols: 2,
		Data: []float32{1, 2, 3, 10, 20, 30},
		RowMeta: []gctxtest.Field{
			{Name: "id", Values: []string{"g1", "g2", "g3"}},
			{Name: "pr_gene_symbol", Values: []string{"TP53", "EGFR", "MYC"}},
		},
		ColMeta: []gctxtest.Field{
			{Name: "id", Values: []string{"s1", "s2"}},
			{Name: "pert_dose", Values: []string{"0.5", "10"}},
			{Name: "pert_time", Values: []string{"6", "24"}},
		},
	}
	ds, err := Load(context.Background(), writeFixture(t, m))
	require.NoError(t, err)
	assert.Equal(t, text.Fingerprint(), ds.Fingerprint())

	m.Data[0] = 99
	changed, err := Load(context.Background(), writeFixture(t, m))
	require.NoError(t, err)
	assert.NotEqual(t, text.Fingerprint(), changed.Fingerprint())
}

func TestSelectionsAndSubset(t *testing.T) {
	ds, err := ReadGCT(strings.NewReader(gct13))
	require.NoError(t, err)

	rows := ds.RowIndices("g3", "g1", "unknown")
	assert.Equal(t, []uint32{0, 2}, rows.ToArray())
	cols := ds.ColumnsWhere("pert_time", func(s string) bool { return s == "24" })
	assert.Equal(t, []uint32{1}, cols.ToArray())
	assert.True(t, ds.RowsWhere("no_such_field", func(string) bool { return true }).IsEmpty())

	sub, err := ds.Subset(rows, cols)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.RowCount())
	assert.Equal(t, 1, sub.ColumnCount())
	assert.Equal(t, []float32{10, 30}, sub.Data())
	assert.Equal(t, []string{"g1", "g3"}, sub.RowIDs())
	assert.Equal(t, []string{"s2"}, sub.ColumnIDs())
	assert.Equal(t, []string{"TP53", "MYC"}, sub.RowMetadata()["pr_gene_symbol"].Texts())

	all, err := ds.Subset(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ds.Fingerprint(), all.Fingerprint())

	_, err = ds.Subset(roaring.BitmapOf(3), nil)
	assert.Error(t, err)
}

func TestSubsetShortMetadata(t *testing.T) {
	rowMeta := Metadata{
		"id":   Text([]string{"g1", "g2", "g3"}),
		"rank": Int32([]int32{7}),
	}
	ds, err := NewDataset([]float32{1, 2, 3, 4, 5, 6}, 3, 2, rowMeta, nil)
	require.NoError(t, err)

	sub, err := ds.Subset(roaring.BitmapOf(2), nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 6}, sub.Data())
	assert.Equal(t, []string{"g3"}, sub.RowIDs())
	_, ok := sub.RowMetadata().Get("rank")
	assert.False(t, ok)
}

func TestNewDataset(t *testing.T) {
	ds, err := NewDataset([]float32{1, 2}, 1, 2, nil, Metadata{IDField: Text([]string{"a", "b"})})
	require.NoError(t, err)
	assert.Equal(t, float32(2), ds.ValueAt(0, 1))
	assert.NotNil(t, ds.RowMetadata())

	_, err = NewDataset([]float32{1}, 1, 2, nil, nil)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	gctPath := filepath.Join(dir, "x.GCT")
	require.NoError(t, os.WriteFile(gctPath, []byte(gct13), 0o644))
	gctxPath := writeFixture(t, fixtureMatrix())

	text, err := Load(context.Background(), gctPath)
	require.NoError(t, err)
	assert.Equal(t, GCT13, text.Version())

	bin, err := Load(context.Background(), "file://"+gctxPath)
	require.NoError(t, err)
	assert.Equal(t, "GCTX1.0", bin.Version())

	_, err = Load(context.Background(), filepath.Join(dir, "missing.gctx"))
	assert.ErrorIs(t, err, ErrNotFound)
}
