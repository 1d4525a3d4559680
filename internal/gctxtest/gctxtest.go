// Package gctxtest writes GCTX containers for tests.
package gctxtest

import (
	"fmt"

	"github.com/l1ktools/l1kio/hdf5"
)

// Field is one metadata dataset. Values is a typed slice such as []string,
// []float32, []float64, []int32 or any other type the writer accepts.
type Field struct {
	Name   string
	Values any
}

// Matrix describes a container to write.
type Matrix struct {
	Rows, Cols int
	// Data is column-major; nil writes a zero matrix of Rows x Cols.
	Data    []float32
	RowMeta []Field
	ColMeta []Field
	// Version is written as the root "version" attribute when set.
	Version string
	// Chunks stores the matrix chunked, as [columns, rows] per chunk.
	Chunks []uint64
	// Filters compress the matrix, for example hdf5.WithDeflate(6) as
	// cmapPy writes it.
	Filters []hdf5.DatasetOption

	// Omit* leave a required item out of the container.
	OmitMatrix  bool
	OmitRowMeta bool
	OmitColMeta bool
}

// Write creates the container at path.
func Write(path string, m Matrix) error {
	f, err := hdf5.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func write(f *hdf5.File, m Matrix) error {
	if m.Version != "" {
		if err := f.Root().SetAttr("version", m.Version); err != nil {
			return fmt.Errorf("version attribute: %w", err)
		}
	}
	if !m.OmitMatrix {
		data := m.Data
		if data == nil {
			data = make([]float32, m.Rows*m.Cols)
		}
		g, err := f.Root().CreateGroupPath("/0/DATA/0")
		if err != nil {
			return err
		}
		opts := []hdf5.DatasetOption{hdf5.WithShape(uint64(m.Cols), uint64(m.Rows))}
		if m.Chunks != nil {
			opts = append(opts, hdf5.WithChunks(m.Chunks...))
		}
		opts = append(opts, m.Filters...)
		if _, err := g.CreateDataset("matrix", data, opts...); err != nil {
			return fmt.Errorf("matrix: %w", err)
		}
	}
	if !m.OmitColMeta {
		if err := writeFields(f, "/0/META/COL", m.ColMeta); err != nil {
			return err
		}
	}
	if !m.OmitRowMeta {
		if err := writeFields(f, "/0/META/ROW", m.RowMeta); err != nil {
			return err
		}
	}
	return nil
}

func writeFields(f *hdf5.File, path string, fields []Field) error {
	g, err := f.Root().CreateGroupPath(path)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if _, err := g.CreateDataset(field.Name, field.Values); err != nil {
			return fmt.Errorf("%s/%s: %w", path, field.Name, err)
		}
	}
	return nil
}
