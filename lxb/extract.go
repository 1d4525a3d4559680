// Package lxb extracts per-event analyte and channel readings from Luminex
// LXB files, which are single-dataset FCS list-mode files.
package lxb

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-kit/log/level"

	"github.com/l1ktools/l1kio/fcs"
)

const (
	// DefaultChannel is used when no channel is requested.
	DefaultChannel = "RP1"

	// KeywordScanner holds the scanner serial number.
	KeywordScanner = "$CYTSN"
	// KeywordWell holds the sample well.
	KeywordWell = "$SMNO"
)

// Stream is a source of event datasets.
type Stream interface {
	NumDataSets() int
	DataSet(i int) (DataSet, error)
}

// DataSet is one dataset of an event stream.
type DataSet interface {
	Mode() fcs.Mode
	Keywords() *fcs.Keywords
	NumParameters() int
	// ParameterName returns the declared name of the zero-based parameter i,
	// or an error when it has none.
	ParameterName(i int) (string, error)
	NumEvents() int
	// Event decodes event i into dst, which holds NumParameters values.
	Event(i int, dst []float32) error
}

// FromFCS adapts a parsed FCS file to a Stream.
func FromFCS(f *fcs.File) Stream {
	return fcsStream{f}
}

type fcsStream struct {
	f *fcs.File
}

func (s fcsStream) NumDataSets() int {
	return s.f.NumDataSets()
}

func (s fcsStream) DataSet(i int) (DataSet, error) {
	ds, err := s.f.DataSet(i)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Resolve returns the index of the first name equal to channel, ignoring
// case. An empty channel means DefaultChannel. It returns -1, false when
// nothing matches.
func Resolve(names []string, channel string) (int, bool) {
	if channel == "" {
		channel = DefaultChannel
	}
	for i, name := range names {
		if strings.EqualFold(name, channel) {
			return i, true
		}
	}
	return -1, false
}

// ParameterNames lists the dataset's parameter names. Parameters without a
// usable name are called by their one-based position.
func ParameterNames(ds DataSet) []string {
	names := make([]string, ds.NumParameters())
	for i := range names {
		name, err := ds.ParameterName(i)
		if err != nil || name == "" {
			name = strconv.Itoa(i + 1)
		}
		names[i] = name
	}
	return names
}

// Extract reads every event of the stream's only dataset. The analyte of an
// event is its first parameter truncated to an integer; its value is the
// reading of channel (DefaultChannel when empty). The stream is not closed.
func Extract(stream Stream, channel string, opts ...Option) (*Result, error) {
	return extract(stream, channel, newOptions(opts))
}

func extract(stream Stream, channel string, o *options) (*Result, error) {
	switch n := stream.NumDataSets(); {
	case n > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleDatasets, n)
	case n < 1:
		return nil, fmt.Errorf("%w: no datasets", ErrIO)
	}

	ds, err := stream.DataSet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if mode := ds.Mode(); mode != fcs.ModeList {
		return nil, fmt.Errorf("%w: %s", ErrWrongKind, mode)
	}

	kw := ds.Keywords()
	res := &Result{keywords: kw}
	res.scanner, res.hasScanner = kw.Get(KeywordScanner)
	res.well, res.hasWell = kw.Get(KeywordWell)

	if channel == "" {
		channel = DefaultChannel
	}
	names := ParameterNames(ds)
	col, ok := Resolve(names, channel)
	if !ok {
		return nil, &ChannelError{Requested: channel, Available: names}
	}
	res.channel = names[col]
	level.Debug(o.logger).Log("msg", "resolved channel", "channel", channel, "index", col, "well", res.well)

	n := ds.NumEvents()
	res.values = make([]float32, n)
	res.analytes = make([]int32, n)
	row := make([]float32, len(names))
	for i := 0; i < n; i++ {
		if err := ds.Event(i, row); err != nil {
			return nil, fmt.Errorf("%w: event %d: %w", ErrIO, i, err)
		}
		res.analytes[i] = analyteID(row[0])
		res.values[i] = row[col]
	}
	o.metrics.AddEvents(n)
	return res, nil
}

// analyteID truncates v toward zero, saturating at the int32 bounds. NaN
// maps to 0.
func analyteID(v float32) int32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
