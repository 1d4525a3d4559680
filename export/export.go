// Package export writes decoded events and matrices as Parquet tables.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/parquet-go/parquet-go"

	"github.com/l1ktools/l1kio/gctx"
	"github.com/l1ktools/l1kio/lxb"
)

// batchSize is the number of rows buffered per Write call.
const batchSize = 8192

// Event is one bead event of one well.
type Event struct {
	Source  string  `parquet:"source,dict"`
	Scanner string  `parquet:"scanner,dict"`
	Well    string  `parquet:"well,dict"`
	Channel string  `parquet:"channel,dict"`
	Index   int32   `parquet:"event"`
	Analyte int32   `parquet:"analyte"`
	Value   float32 `parquet:"value"`
}

// Cell is one matrix value in long form.
type Cell struct {
	RowID    string  `parquet:"row_id,dict"`
	ColumnID string  `parquet:"column_id,dict"`
	Value    float32 `parquet:"value"`
}

// Option configures a writer.
type Option func(*options)

type options struct {
	logger log.Logger
	codec  parquet.WriterOption
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: log.NewNopLogger(),
		codec:  parquet.Compression(&parquet.Zstd),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSnappy compresses pages with Snappy instead of Zstandard.
func WithSnappy() Option {
	return func(o *options) {
		o.codec = parquet.Compression(&parquet.Snappy)
	}
}

// WriteEvents writes every event of results to w and returns the number of
// rows written. Absent scanner and well keywords are written as empty
// strings.
func WriteEvents(w io.Writer, results []*lxb.Result, opts ...Option) (int, error) {
	o := newOptions(opts)
	pw := parquet.NewGenericWriter[Event](w, o.codec)

	total := 0
	batch := make([]Event, 0, batchSize)
	flush := func() error {
		n, err := pw.Write(batch)
		total += n
		batch = batch[:0]
		return err
	}
	for _, res := range results {
		scanner, _ := res.Scanner()
		well, _ := res.Well()
		values, analytes := res.Values(), res.Analytes()
		for i := range values {
			batch = append(batch, Event{
				Source:  res.Source(),
				Scanner: scanner,
				Well:    well,
				Channel: res.Channel(),
				Index:   int32(i),
				Analyte: analytes[i],
				Value:   values[i],
			})
			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return total, fmt.Errorf("writing events: %w", err)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("writing events: %w", err)
	}
	if err := pw.Close(); err != nil {
		return total, fmt.Errorf("closing event writer: %w", err)
	}
	level.Debug(o.logger).Log("msg", "exported events", "wells", len(results), "rows", total)
	return total, nil
}

// WriteMatrix writes ds to w in long form, one row per cell in column-major
// order. Rows and columns without an id are named by their zero-based index.
func WriteMatrix(w io.Writer, ds *gctx.Dataset, opts ...Option) (int, error) {
	o := newOptions(opts)
	pw := parquet.NewGenericWriter[Cell](w, o.codec)

	rowIDs := idsOrIndex(ds.RowIDs(), ds.RowCount())
	colIDs := idsOrIndex(ds.ColumnIDs(), ds.ColumnCount())

	total := 0
	batch := make([]Cell, 0, batchSize)
	flush := func() error {
		n, err := pw.Write(batch)
		total += n
		batch = batch[:0]
		return err
	}
	for c := range ds.ColumnCount() {
		for r, v := range ds.Column(c) {
			batch = append(batch, Cell{RowID: rowIDs[r], ColumnID: colIDs[c], Value: v})
			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return total, fmt.Errorf("writing cells: %w", err)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("writing cells: %w", err)
	}
	if err := pw.Close(); err != nil {
		return total, fmt.Errorf("closing cell writer: %w", err)
	}
	level.Debug(o.logger).Log("msg", "exported matrix", "rows", ds.RowCount(), "cols", ds.ColumnCount())
	return total, nil
}

func idsOrIndex(ids []string, n int) []string {
	if len(ids) == n {
		return ids
	}
	ids = make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids
}
