package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1ktools/l1kio/gctx"
	"github.com/l1ktools/l1kio/internal/fcstest"
	"github.com/l1ktools/l1kio/lxb"
)

func loadWell(t *testing.T, well string, events [][]float64) *lxb.Result {
	t.Helper()
	raw := fcstest.Build(fcstest.LXB(
		[]string{"RID", "RP1"}, events,
		[2]string{"$CYTSN", "LX100"}, [2]string{"$SMNO", well},
	))
	res, err := lxb.Load(bytes.NewReader(raw), int64(len(raw)), "")
	require.NoError(t, err)
	return res
}

func TestWriteEvents(t *testing.T) {
	results := []*lxb.Result{
		loadWell(t, "A1", [][]float64{{12, 100}, {13, 200}}),
		loadWell(t, "A2", [][]float64{{12, 50}}),
	}

	var buf bytes.Buffer
	n, err := WriteEvents(&buf, results)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := parquet.Read[Event](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Event{Scanner: "LX100", Well: "A1", Channel: "RP1", Index: 1, Analyte: 13, Value: 200}, rows[1])
	assert.Equal(t, "A2", rows[2].Well)
	assert.Equal(t, int32(0), rows[2].Index)
}

func TestWriteEventsManyBatches(t *testing.T) {
	events := make([][]float64, batchSize+10)
	for i := range events {
		events[i] = []float64{float64(i % 50), float64(i)}
	}
	var buf bytes.Buffer
	n, err := WriteEvents(&buf, []*lxb.Result{loadWell(t, "B7", events)}, WithSnappy())
	require.NoError(t, err)
	assert.Equal(t, len(events), n)

	rows, err := parquet.Read[Event](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, len(events))
	last := rows[len(rows)-1]
	assert.Equal(t, float32(len(events)-1), last.Value)
}

func TestWriteMatrix(t *testing.T) {
	const in = "#1.3\n2\t2\t0\t0\nid\ts1\ts2\ng1\t1\t3\ng2\t2\t4\n"
	ds, err := gctx.ReadGCT(strings.NewReader(in))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := WriteMatrix(&buf, ds)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rows, err := parquet.Read[Cell](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, []Cell{
		{RowID: "g1", ColumnID: "s1", Value: 1},
		{RowID: "g2", ColumnID: "s1", Value: 2},
		{RowID: "g1", ColumnID: "s2", Value: 3},
		{RowID: "g2", ColumnID: "s2", Value: 4},
	}, rows)
}

func TestWriteMatrixWithoutIDs(t *testing.T) {
	ds, err := gctx.NewDataset([]float32{5, 6}, 2, 1, nil, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = WriteMatrix(&buf, ds)
	require.NoError(t, err)

	rows, err := parquet.Read[Cell](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, []Cell{
		{RowID: "0", ColumnID: "0", Value: 5},
		{RowID: "1", ColumnID: "0", Value: 6},
	}, rows)
}
