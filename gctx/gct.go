package gctx

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log/level"

	"github.com/l1ktools/l1kio/telemetry"
)

// Text GCT versions.
const (
	GCT12 = "#1.2"
	GCT13 = "#1.3"
)

// ReadGCT decodes a tab-separated GCT file. Both #1.2 and #1.3 are
// supported; all metadata is read as text. Empty and "NA" cells in the
// matrix decode to NaN.
func ReadGCT(r io.Reader, opts ...Option) (ds *Dataset, err error) {
	o := newOptions(opts)
	start := time.Now()
	defer func() {
		o.metrics.ObserveDecode(telemetry.KindGCT, start, err)
	}()

	p := &gctParser{sc: bufio.NewScanner(r)}
	p.sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	ds, err = p.parse()
	if err != nil {
		return nil, err
	}
	level.Debug(o.logger).Log("msg", "read gct", "version", ds.version, "rows", ds.rows, "cols", ds.cols)
	return ds, nil
}

type gctParser struct {
	sc   *bufio.Scanner
	line int
}

func (p *gctParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, p.line, fmt.Sprintf(format, args...))
}

func (p *gctParser) next() ([]string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return nil, fmt.Errorf("%w: unexpected end of file after line %d", ErrFormat, p.line)
	}
	p.line++
	return strings.Split(strings.TrimRight(p.sc.Text(), "\r"), "\t"), nil
}

func (p *gctParser) parse() (*Dataset, error) {
	head, err := p.next()
	if err != nil {
		return nil, err
	}
	version := strings.TrimSpace(head[0])
	if version != GCT12 && version != GCT13 {
		return nil, p.errorf("unknown version %q", version)
	}

	dimLine, err := p.next()
	if err != nil {
		return nil, err
	}
	dims, err := p.ints(dimLine)
	if err != nil {
		return nil, err
	}
	var rows, cols, nRowMeta, nColMeta int
	switch {
	case version == GCT12 && len(dims) >= 2:
		rows, cols, nRowMeta = dims[0], dims[1], 1
	case version == GCT13 && len(dims) >= 4:
		rows, cols, nRowMeta, nColMeta = dims[0], dims[1], dims[2], dims[3]
	default:
		return nil, p.errorf("%d dimensions for version %s", len(dims), version)
	}

	titles, err := p.next()
	if err != nil {
		return nil, err
	}
	if len(titles) != 1+nRowMeta+cols {
		return nil, p.errorf("%d header fields, want %d", len(titles), 1+nRowMeta+cols)
	}
	rowFields := make([]string, 1+nRowMeta)
	rowFields[0] = IDField
	copy(rowFields[1:], titles[1:1+nRowMeta])

	colMeta := Metadata{IDField: Text(titles[1+nRowMeta:])}
	for range nColMeta {
		fields, err := p.next()
		if err != nil {
			return nil, err
		}
		if len(fields) != 1+nRowMeta+cols {
			return nil, p.errorf("%d fields, want %d", len(fields), 1+nRowMeta+cols)
		}
		colMeta[fields[0]] = Text(fields[1+nRowMeta:])
	}

	rowValues := make([][]string, len(rowFields))
	for i := range rowValues {
		rowValues[i] = make([]string, rows)
	}
	data := make([]float32, rows*cols)
	for r := range rows {
		fields, err := p.next()
		if err != nil {
			return nil, err
		}
		if len(fields) != 1+nRowMeta+cols {
			return nil, p.errorf("%d fields, want %d", len(fields), 1+nRowMeta+cols)
		}
		for i := range rowFields {
			rowValues[i][r] = fields[i]
		}
		for c, cell := range fields[1+nRowMeta:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, p.errorf("column %d: %v", c+1, err)
			}
			data[r+c*rows] = v
		}
	}

	rowMeta := make(Metadata, len(rowFields))
	for i, name := range rowFields {
		rowMeta[name] = Text(rowValues[i])
	}
	return &Dataset{data: data, rows: rows, cols: cols, rowMeta: rowMeta, colMeta: colMeta, version: version}, nil
}

func (p *gctParser) ints(fields []string) ([]int, error) {
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, p.errorf("bad dimension %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseCell(s string) (float32, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "#n/a":
		return float32(math.NaN()), nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}
