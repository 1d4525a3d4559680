package gctx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-kit/log/level"

	"github.com/l1ktools/l1kio/hdf5"
	"github.com/l1ktools/l1kio/source"
	"github.com/l1ktools/l1kio/telemetry"
)

// Fixed container paths.
const (
	MatrixPath     = "/0/DATA/0/matrix"
	RowMetaPath    = "/0/META/ROW"
	ColumnMetaPath = "/0/META/COL"
	VersionAttr    = "version"
)

// Reader decodes one GCTX container. A Reader is not safe for concurrent
// use.
type Reader struct {
	container Container
	name      string
	o         *options
}

// Open opens the GCTX file at path.
func Open(path string, opts ...Option) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	blob, err := source.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	return OpenBlob(blob, path, opts...)
}

// OpenBlob opens a GCTX container held in blob. The Reader takes ownership
// of blob and closes it on Close, or immediately if opening fails.
func OpenBlob(blob source.Blob, name string, opts ...Option) (*Reader, error) {
	f, err := hdf5.OpenReader(blob, name, blob)
	if err != nil {
		blob.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, name, err)
	}
	r := NewReader(FromHDF5(f), opts...)
	r.name = name
	level.Debug(r.o.logger).Log("msg", "opened container", "path", name, "superblock", f.Version())
	return r, nil
}

// NewReader returns a Reader over an already open container.
func NewReader(c Container, opts ...Option) *Reader {
	return &Reader{container: c, o: newOptions(opts)}
}

// Read decodes the matrix and both metadata groups. Each call reads the
// container again.
func (r *Reader) Read() (ds *Dataset, err error) {
	if r == nil || r.container == nil {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() {
		r.o.metrics.ObserveDecode(telemetry.KindGCTX, start, err)
	}()

	item, err := r.container.Dataset(MatrixPath)
	if err != nil {
		return nil, &StructureError{Path: MatrixPath, Err: err}
	}
	dims := item.Dims()
	if len(dims) != 2 {
		return nil, &StructureError{Path: MatrixPath, Reason: fmt.Sprintf("rank %d, want 2", len(dims))}
	}
	raw, err := item.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFormat, MatrixPath, err)
	}
	data, err := matrixValues(raw)
	if err != nil {
		return nil, &StructureError{Path: MatrixPath, Reason: err.Error()}
	}

	// Dimensions are reported as [columns, rows].
	cols, rows := int(dims[0]), int(dims[1])
	if len(data) != rows*cols {
		return nil, &StructureError{
			Path:   MatrixPath,
			Reason: fmt.Sprintf("%d values for %d rows x %d columns", len(data), rows, cols),
		}
	}

	colMeta, err := r.readMetadata(ColumnMetaPath)
	if err != nil {
		return nil, err
	}
	rowMeta, err := r.readMetadata(RowMetaPath)
	if err != nil {
		return nil, err
	}

	ds = &Dataset{data: data, rows: rows, cols: cols, rowMeta: rowMeta, colMeta: colMeta}
	if v, ok := r.container.Attr("/", VersionAttr); ok {
		if s, ok := v.(string); ok {
			ds.version = s
		}
	}
	level.Debug(r.o.logger).Log("msg", "read matrix", "path", r.name, "rows", rows, "cols", cols,
		"row_fields", len(rowMeta), "col_fields", len(colMeta))
	return ds, nil
}

func (r *Reader) readMetadata(path string) (Metadata, error) {
	g, err := r.container.Group(path)
	if err != nil {
		return nil, &StructureError{Path: path, Err: err}
	}
	m, err := DecodeGroup(g, r.o.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrFormat, path, err)
	}
	return m, nil
}

// matrixValues accepts float32 data directly and narrows float64 data.
func matrixValues(raw any) ([]float32, error) {
	v, ok := Classify(raw)
	switch {
	case ok && v.Kind() == KindFloat32:
		return v.Float32s(), nil
	case ok && v.Kind() == KindFloat64:
		wide := v.Float64s()
		out := make([]float32, len(wide))
		for i, f := range wide {
			out[i] = float32(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("element type %T, want float32", raw)
}

// Close releases the container. It is safe to call more than once and on a
// nil Reader. A failure to release is logged, not returned.
func (r *Reader) Close() error {
	if r == nil || r.container == nil {
		return nil
	}
	c := r.container
	r.container = nil
	if err := c.Close(); err != nil {
		level.Warn(r.o.logger).Log("msg", "closing container", "path", r.name, "err", err)
	}
	return nil
}
