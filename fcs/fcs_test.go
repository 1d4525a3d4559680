package fcs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1ktools/l1kio/internal/fcstest"
)

func parseBytes(t *testing.T, b []byte) (*File, error) {
	t.Helper()
	return Parse(bytes.NewReader(b), int64(len(b)))
}

func TestParseListMode(t *testing.T) {
	raw := fcstest.Build(fcstest.LXB(
		[]string{"RID", "CL1", "RP1"},
		[][]float64{{12, 100, 2000}, {45, 101, 3000}},
		[2]string{"$CYTSN", "LX100/12"},
		[2]string{"$SMNO", "A01"},
	))

	f, err := parseBytes(t, raw)
	require.NoError(t, err)
	require.Equal(t, 1, f.NumDataSets())

	ds, err := f.DataSet(0)
	require.NoError(t, err)
	assert.Equal(t, "FCS3.0", ds.Version())
	assert.Equal(t, ModeList, ds.Mode())
	assert.Equal(t, byte('I'), ds.DataType())
	assert.Equal(t, 3, ds.NumParameters())
	assert.Equal(t, 2, ds.NumEvents())

	name, err := ds.ParameterName(2)
	require.NoError(t, err)
	assert.Equal(t, "RP1", name)
	assert.Equal(t, 32, ds.Parameter(0).Bits)

	sn, ok := ds.Keywords().Get("$cytsn")
	require.True(t, ok)
	assert.Equal(t, "LX100/12", sn)

	row := make([]float32, 3)
	require.NoError(t, ds.Event(1, row))
	assert.Equal(t, []float32{45, 101, 3000}, row)

	assert.Error(t, ds.Event(2, row))
	assert.Error(t, ds.Event(0, make([]float32, 2)))
	_, err = f.DataSet(1)
	assert.Error(t, err)
}

func TestParseDataTypes(t *testing.T) {
	events := [][]float64{{1, 2.5}, {3, -4.25}}
	tests := []struct {
		name      string
		dataType  byte
		bits      int
		bigEndian bool
		want      []float32
	}{
		{name: "float", dataType: 'F', bits: 32, want: []float32{3, -4.25}},
		{name: "double big-endian", dataType: 'D', bits: 64, bigEndian: true, want: []float32{3, -4.25}},
		{name: "int16 big-endian", dataType: 'I', bits: 16, bigEndian: true, want: []float32{3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := events
			if tt.dataType == 'I' {
				ev = [][]float64{{1, 2}, {3, 0}}
			}
			raw := fcstest.Build(fcstest.DataSet{
				DataType:  tt.dataType,
				BigEndian: tt.bigEndian,
				Params: []fcstest.Param{
					{Name: "A", Bits: tt.bits, Range: 1024},
					{Name: "B", Bits: tt.bits, Range: 1024},
				},
				Events: ev,
			})
			f, err := parseBytes(t, raw)
			require.NoError(t, err)
			ds, err := f.DataSet(0)
			require.NoError(t, err)

			row := make([]float32, 2)
			require.NoError(t, ds.Event(1, row))
			assert.Equal(t, tt.want, row)
		})
	}
}

func TestIntegerRangeMask(t *testing.T) {
	raw := fcstest.Build(fcstest.DataSet{
		Params: []fcstest.Param{
			{Name: "A", Bits: 16, Range: 1000},
			{Name: "B", Bits: 16},
		},
		Events: [][]float64{{0x1400 + 7, 0x1400 + 7}},
	})
	f, err := parseBytes(t, raw)
	require.NoError(t, err)
	ds, err := f.DataSet(0)
	require.NoError(t, err)

	row := make([]float32, 2)
	require.NoError(t, ds.Event(0, row))
	assert.Equal(t, float32(7), row[0], "masked to 1023")
	assert.Equal(t, float32(0x1407), row[1], "no range, no mask")
}

func TestParseMultipleDataSets(t *testing.T) {
	first := fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 10}})
	second := fcstest.LXB([]string{"RID", "RP1", "RP2"}, [][]float64{{2, 20, 30}, {3, 21, 31}})
	second.LargeOffsets = true

	f, err := parseBytes(t, fcstest.Build(first, second))
	require.NoError(t, err)
	require.Equal(t, 2, f.NumDataSets())

	ds, err := f.DataSet(1)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumParameters())
	row := make([]float32, 3)
	require.NoError(t, ds.Event(1, row))
	assert.Equal(t, []float32{3, 21, 31}, row)
}

func TestParseHistogramMode(t *testing.T) {
	set := fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 10}})
	set.Mode = 'C'
	f, err := parseBytes(t, fcstest.Build(set))
	require.NoError(t, err)

	ds, err := f.DataSet(0)
	require.NoError(t, err)
	assert.Equal(t, ModeCorrelated, ds.Mode())
	assert.ErrorIs(t, ds.Event(0, make([]float32, 2)), ErrNotListMode)
}

func TestParseHistogramBins(t *testing.T) {
	// Two bins of a histogram that counted 5000 events.
	hist := fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 10}, {2, 20}})
	hist.Mode = 'U'
	hist.Total = 5000
	list := fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{3, 30}})

	f, err := parseBytes(t, fcstest.Build(hist, list))
	require.NoError(t, err)
	require.Equal(t, 2, f.NumDataSets())

	ds, err := f.DataSet(0)
	require.NoError(t, err)
	assert.Equal(t, ModeUncorrelated, ds.Mode())
	assert.Equal(t, 5000, ds.NumEvents())
	assert.ErrorIs(t, ds.Event(0, make([]float32, 2)), ErrNotListMode)

	ds, err = f.DataSet(1)
	require.NoError(t, err)
	row := make([]float32, 2)
	require.NoError(t, ds.Event(0, row))
	assert.Equal(t, []float32{3, 30}, row)
}

func TestParseListModeShortData(t *testing.T) {
	set := fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 10}})
	set.Total = 3
	_, err := parseBytes(t, fcstest.Build(set))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParameterNameMissing(t *testing.T) {
	set := fcstest.LXB([]string{"RID", "", "RP1"}, [][]float64{{1, 2, 3}})
	f, err := parseBytes(t, fcstest.Build(set))
	require.NoError(t, err)
	ds, err := f.DataSet(0)
	require.NoError(t, err)

	_, err = ds.ParameterName(1)
	assert.ErrorIs(t, err, ErrKeywordMissing)
	_, err = ds.ParameterName(3)
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	good := fcstest.Build(fcstest.LXB([]string{"RID", "RP1"}, [][]float64{{1, 10}, {2, 20}}))

	t.Run("not fcs", func(t *testing.T) {
		_, err := parseBytes(t, bytes.Repeat([]byte("x"), 100))
		assert.ErrorIs(t, err, ErrNotFCS)
	})
	t.Run("short", func(t *testing.T) {
		_, err := parseBytes(t, good[:20])
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("truncated data", func(t *testing.T) {
		_, err := parseBytes(t, good[:len(good)-3])
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("ascii data", func(t *testing.T) {
		set := fcstest.LXB([]string{"RID"}, nil)
		set.DataType = 'A'
		_, err := parseBytes(t, fcstest.Build(set))
		assert.ErrorIs(t, err, ErrUnsupportedDataType)
	})
	t.Run("packed bits", func(t *testing.T) {
		set := fcstest.DataSet{Params: []fcstest.Param{{Name: "A", Bits: 10}}}
		_, err := parseBytes(t, fcstest.Build(set))
		assert.ErrorIs(t, err, ErrUnsupportedDataType)
	})
}

func TestParseTextEscapes(t *testing.T) {
	kw, err := parseText([]byte("|$A|x||y|$B|2|"))
	require.NoError(t, err)
	require.Equal(t, 2, kw.Len())
	assert.Equal(t, Keyword{Name: "$A", Value: "x|y"}, kw.At(0))
	v, ok := kw.Get("$b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	kw, err = parseText([]byte("/K/V"))
	require.NoError(t, err)
	assert.Equal(t, 1, kw.Len())

	_, err = parseText([]byte("/K/V/K2/"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKeywords(t *testing.T) {
	kw := NewKeywords(
		Keyword{Name: "$CYTSN", Value: "S1"},
		Keyword{Name: "$SMNO", Value: "B07"},
		Keyword{Name: "$TOT", Value: " 42 "},
	)

	var names []string
	for name, value := range kw.All() {
		names = append(names, name+"="+value)
	}
	assert.Equal(t, []string{"$CYTSN=S1", "$SMNO=B07", "$TOT= 42 "}, names)

	n, err := kw.Int("$tot")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	_, err = kw.Int("$PAR")
	assert.ErrorIs(t, err, ErrKeywordMissing)
	_, err = kw.Int("$SMNO")
	assert.ErrorIs(t, err, ErrMalformed)

	trimmed := kw.Without("$smno")
	assert.Equal(t, 2, trimmed.Len())
	assert.Equal(t, 3, kw.Len())
	_, ok := trimmed.Get("$SMNO")
	assert.False(t, ok)

	var nilKw *Keywords
	assert.Zero(t, nilKw.Len())
	_, ok = nilKw.Get("$X")
	assert.False(t, ok)
	assert.Equal(t, "[$CYTSN=S1, $SMNO=B07, $TOT= 42 ]", kw.String())
}
