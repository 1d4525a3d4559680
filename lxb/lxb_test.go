package lxb

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1ktools/l1kio/fcs"
	"github.com/l1ktools/l1kio/internal/fcstest"
	"github.com/l1ktools/l1kio/telemetry"
)

type fakeDataSet struct {
	mode     fcs.Mode
	keywords *fcs.Keywords
	names    []string
	events   [][]float32
	failAt   int
}

func (d *fakeDataSet) Mode() fcs.Mode          { return d.mode }
func (d *fakeDataSet) Keywords() *fcs.Keywords { return d.keywords }
func (d *fakeDataSet) NumParameters() int      { return len(d.names) }
func (d *fakeDataSet) NumEvents() int          { return len(d.events) }

func (d *fakeDataSet) ParameterName(i int) (string, error) {
	if d.names[i] == "" {
		return "", fcs.ErrKeywordMissing
	}
	return d.names[i], nil
}

func (d *fakeDataSet) Event(i int, dst []float32) error {
	if d.failAt > 0 && i == d.failAt {
		return errors.New("short read")
	}
	copy(dst, d.events[i])
	return nil
}

type fakeStream []DataSet

func (s fakeStream) NumDataSets() int               { return len(s) }
func (s fakeStream) DataSet(i int) (DataSet, error) { return s[i], nil }

func listMode(names []string, events ...[]float32) *fakeDataSet {
	return &fakeDataSet{
		mode:     fcs.ModeList,
		keywords: fcs.NewKeywords(),
		names:    names,
		events:   events,
	}
}

func TestResolve(t *testing.T) {
	names := []string{"FSC", "SSC", "RP1", "RP2"}
	tests := []struct {
		channel string
		want    int
		ok      bool
	}{
		{channel: "", want: 2, ok: true},
		{channel: "rp2", want: 3, ok: true},
		{channel: "Rp2", want: 3, ok: true},
		{channel: "RP9", want: -1, ok: false},
		{channel: "RP", want: -1, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			got, ok := Resolve(names, tt.channel)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}

	idx, ok := Resolve([]string{"rp1", "RP1"}, "")
	assert.True(t, ok)
	assert.Equal(t, 0, idx, "first match wins")
}

func TestExtract(t *testing.T) {
	ds := listMode([]string{"P1", "P2", "P3"},
		[]float32{5, 1.0, 2.0},
		[]float32{7.9, 3.0, 4.0},
		[]float32{5, 5.5, 6.0},
	)
	ds.keywords = fcs.NewKeywords(
		fcs.Keyword{Name: "$cytsn", Value: "LX100-7"},
		fcs.Keyword{Name: "$SMNO", Value: "C12"},
	)

	res, err := Extract(fakeStream{ds}, "P2")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Len())
	assert.Equal(t, []float32{1.0, 3.0, 5.5}, res.Values())
	assert.Equal(t, []int32{5, 7, 5}, res.Analytes())
	assert.Equal(t, "P2", res.Channel())
	assert.Same(t, ds.keywords, res.Keywords())

	scanner, ok := res.Scanner()
	assert.True(t, ok)
	assert.Equal(t, "LX100-7", scanner)
	well, ok := res.Well()
	assert.True(t, ok)
	assert.Equal(t, "C12", well)
	assert.Equal(t, "LXBData [scanner=LX100-7, well=C12]", res.String())
}

func TestExtractDefaultChannel(t *testing.T) {
	ds := listMode([]string{"RID", "CL1", "rp1"}, []float32{12, 0, 99})
	res, err := Extract(fakeStream{ds}, "")
	require.NoError(t, err)
	assert.Equal(t, []float32{99}, res.Values())
	assert.Equal(t, "rp1", res.Channel())

	_, ok := res.Scanner()
	assert.False(t, ok)
	assert.Equal(t, "LXBData [scanner=null, well=null]", res.String())
}

func TestExtractPositionalNames(t *testing.T) {
	ds := listMode([]string{"RID", "", "RP1"}, []float32{1, 42, 3})

	assert.Equal(t, []string{"RID", "2", "RP1"}, ParameterNames(ds))
	res, err := Extract(fakeStream{ds}, "2")
	require.NoError(t, err)
	assert.Equal(t, []float32{42}, res.Values())
}

func TestExtractErrors(t *testing.T) {
	good := listMode([]string{"RID", "RP1"}, []float32{1, 2})

	_, err := Extract(fakeStream{good, good}, "")
	assert.ErrorIs(t, err, ErrMultipleDatasets)

	_, err = Extract(fakeStream{}, "")
	assert.ErrorIs(t, err, ErrIO)

	hist := listMode([]string{"RID", "RP1"})
	hist.mode = fcs.ModeUncorrelated
	_, err = Extract(fakeStream{hist}, "")
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = Extract(fakeStream{good}, "RP9")
	assert.ErrorIs(t, err, ErrChannelNotFound)
	var chErr *ChannelError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "RP9", chErr.Requested)
	assert.Equal(t, []string{"RID", "RP1"}, chErr.Available)

	broken := listMode([]string{"RID", "RP1"}, []float32{1, 2}, []float32{3, 4})
	broken.failAt = 1
	_, err = Extract(fakeStream{broken}, "")
	assert.ErrorIs(t, err, ErrIO)
}

func TestExtractCountsEvents(t *testing.T) {
	m := telemetry.New(prometheus.NewRegistry())
	ds := listMode([]string{"RID", "RP1"}, []float32{1, 2}, []float32{3, 4})

	_, err := Extract(fakeStream{ds}, "", WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events))
}

func TestAnalyteID(t *testing.T) {
	tests := []struct {
		in   float32
		want int32
	}{
		{12.9, 12},
		{-3.5, -3},
		{float32(math.NaN()), 0},
		{1 << 32, math.MaxInt32},
		{float32(math.Inf(1)), math.MaxInt32},
		{-1 << 40, math.MinInt32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, analyteID(tt.in), "analyteID(%v)", tt.in)
	}
}

func TestExtractSaturatesAnalytes(t *testing.T) {
	ds := listMode([]string{"RID", "RP1"}, []float32{4294967295, 7}, []float32{float32(math.NaN()), 8})
	res, err := Extract(fakeStream{ds}, "")
	require.NoError(t, err)
	assert.Equal(t, []int32{math.MaxInt32, 0}, res.Analytes())
	assert.Equal(t, []float32{7, 8}, res.Values())
}

func TestByAnalyte(t *testing.T) {
	res := &Result{
		values:   []float32{10, 1, 30, 2, 20, 3, 6, 5},
		analytes: []int32{7, 8, 7, 8, 7, 8, 9, 9},
	}

	groups := res.ByAnalyte()
	assert.Equal(t, []float32{10, 30, 20}, groups[7])
	assert.Equal(t, []float32{1, 2, 3}, groups[8])
	assert.Equal(t, []float32{6, 5}, groups[9])

	medians := res.MedianByAnalyte()
	assert.Equal(t, map[int32]float32{7: 20, 8: 2, 9: 5.5}, medians)
	assert.Equal(t, []float32{10, 1, 30, 2, 20, 3, 6, 5}, res.Values(), "median must not reorder values")
}

func lxbBytes(well string, events ...[]float64) []byte {
	return fcstest.Build(fcstest.LXB(
		[]string{"RID", "CL1", "CL2", "DD", "RP1"},
		events,
		[2]string{"$CYTSN", "LX200"},
		[2]string{"$SMNO", well},
	))
}

func TestLoad(t *testing.T) {
	raw := lxbBytes("A01", []float64{12, 1, 2, 3, 450}, []float64{13, 1, 2, 3, 500})
	m := telemetry.New(prometheus.NewRegistry())

	res, err := Load(bytes.NewReader(raw), int64(len(raw)), "", WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, []float32{450, 500}, res.Values())
	assert.Equal(t, []int32{12, 13}, res.Analytes())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decodes.WithLabelValues(telemetry.KindLXB, "ok")))

	_, err = Load(bytes.NewReader(raw[:100]), 100, "", WithMetrics(m))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fcs.ErrTruncated)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decodes.WithLabelValues(telemetry.KindLXB, "error")))

	two := fcstest.Build(
		fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 2}}),
		fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{3, 4}}),
	)
	_, err = Load(bytes.NewReader(two), int64(len(two)), "")
	assert.ErrorIs(t, err, ErrMultipleDatasets)
}

func TestLoadHistogram(t *testing.T) {
	hist := fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 2}, {3, 4}})
	hist.Mode = 'U'
	hist.Total = 5000

	raw := fcstest.Build(hist)
	_, err := Load(bytes.NewReader(raw), int64(len(raw)), "")
	assert.ErrorIs(t, err, ErrWrongKind)
	assert.NotErrorIs(t, err, ErrIO)

	raw = fcstest.Build(fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 2}}), hist)
	_, err = Load(bytes.NewReader(raw), int64(len(raw)), "")
	assert.ErrorIs(t, err, ErrMultipleDatasets)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A01.lxb")
	require.NoError(t, os.WriteFile(path, lxbBytes("A01", []float64{5, 0, 0, 0, 1}), 0o644))

	res, err := LoadFile(path, "rp1")
	require.NoError(t, err)
	assert.Equal(t, path, res.Source())
	assert.Equal(t, []float32{1}, res.Values())

	_, err = LoadFile(filepath.Join(dir, "missing.lxb"), "")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPlate(t *testing.T) {
	dir := t.TempDir()
	wells := []string{"A01", "A02", "A03", "B01"}
	var paths []string
	for i, w := range wells {
		p := filepath.Join(dir, w+".lxb")
		require.NoError(t, os.WriteFile(p, lxbBytes(w, []float64{float64(i), 0, 0, 0, float64(100 * i)}), 0o644))
		paths = append(paths, p)
	}

	results, err := LoadPlate(context.Background(), paths, "", WithConcurrency(2))
	require.NoError(t, err)
	require.Len(t, results, len(wells))
	for i, res := range results {
		well, _ := res.Well()
		assert.Equal(t, wells[i], well)
		assert.Equal(t, paths[i], res.Source())
		assert.Equal(t, []float32{float32(100 * i)}, res.Values())
	}

	_, err = LoadPlate(context.Background(), append(paths, filepath.Join(dir, "Z99.lxb")), "")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = LoadPlate(ctx, paths, "")
	assert.ErrorIs(t, err, context.Canceled)
}
