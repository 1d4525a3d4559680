// Command gctxinfo summarizes a GCTX or GCT matrix and can dump the HDF5
// object tree behind it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/l1ktools/l1kio/export"
	"github.com/l1ktools/l1kio/gctx"
	"github.com/l1ktools/l1kio/hdf5"
	"github.com/l1ktools/l1kio/source"
)

func main() {
	var (
		tree        bool
		attrs       bool
		parquetPath string
		endpoint    string
		region      string
		ranged      bool
		verbose     bool
	)
	flag.BoolVar(&tree, "tree", false, "Print every HDF5 group and dataset (local files only)")
	flag.BoolVar(&attrs, "attrs", false, "Print every HDF5 attribute (local files only)")
	flag.StringVar(&parquetPath, "parquet", "", "Write the matrix in long form to this Parquet file")
	flag.StringVar(&endpoint, "s3-endpoint", "", "S3-compatible endpoint for s3:// locators")
	flag.StringVar(&region, "s3-region", "", "AWS region for s3:// locators")
	flag.BoolVar(&ranged, "s3-ranged", false, "Read remote objects with ranged requests instead of downloading them")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: gctxinfo [flags] <file.gctx|file.gct|s3://bucket/key>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	locator := flag.Arg(0)

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	opener := source.NewOpener(source.Config{
		Endpoint: endpoint,
		Region:   region,
		Ranged:   ranged,
	}, source.WithLogger(logger))

	ds, err := gctx.Load(context.Background(), locator, gctx.WithLogger(logger), gctx.WithOpener(opener))
	if err != nil {
		level.Error(logger).Log("msg", "loading matrix", "locator", locator, "err", err)
		os.Exit(1)
	}
	summarize(os.Stdout, locator, ds)

	if tree || attrs {
		if err := dumpContainer(os.Stdout, locator, tree, attrs); err != nil {
			level.Error(logger).Log("msg", "walking container", "locator", locator, "err", err)
			os.Exit(1)
		}
	}

	if parquetPath != "" {
		if err := writeParquet(parquetPath, ds, logger); err != nil {
			level.Error(logger).Log("msg", "exporting matrix", "path", parquetPath, "err", err)
			os.Exit(1)
		}
	}
}

func summarize(w io.Writer, locator string, ds *gctx.Dataset) {
	fmt.Fprintf(w, "=== %s ===\n", locator)
	if v := ds.Version(); v != "" {
		fmt.Fprintf(w, "Version:     %s\n", v)
	}
	fmt.Fprintf(w, "Rows:        %d\n", ds.RowCount())
	fmt.Fprintf(w, "Columns:     %d\n", ds.ColumnCount())
	fmt.Fprintf(w, "Fingerprint: %016x\n", ds.Fingerprint())
	printFields(w, "Row metadata", ds.RowMetadata())
	printFields(w, "Column metadata", ds.ColumnMetadata())
}

func printFields(w io.Writer, title string, m gctx.Metadata) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(m))
	for _, name := range m.Names() {
		v := m[name]
		fmt.Fprintf(w, "  %-24s %-8s %s\n", name, v.Kind(), preview(v, 3))
	}
}

func preview(v gctx.Vector, n int) string {
	n = min(n, v.Len())
	parts := make([]string, n)
	for i := range n {
		parts[i] = v.String(i)
	}
	s := strings.Join(parts, ", ")
	if v.Len() > n {
		s += ", ..."
	}
	return "[" + s + "]"
}

// dumpContainer prints the HDF5 layout of a local GCTX file.
func dumpContainer(w io.Writer, locator string, tree, attrs bool) error {
	loc, err := source.Parse(locator)
	if err != nil {
		return err
	}
	if loc.Scheme != source.SchemeFile || loc.Ext() == ".gct" {
		return fmt.Errorf("%s is not a local GCTX file", locator)
	}
	f, err := hdf5.Open(loc.Key)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "Superblock:  v%d\n", f.Version())
	if tree {
		err := hdf5.Walk(f.Root(), func(p string, obj interface{}, err error) error {
			if err != nil {
				fmt.Fprintf(w, "  %s: ERROR %v\n", p, err)
				return nil
			}
			switch o := obj.(type) {
			case *hdf5.Group:
				fmt.Fprintf(w, "  %s/\n", strings.TrimSuffix(p, "/"))
			case *hdf5.Dataset:
				typ := "unsupported"
				if t, err := o.GoType(); err == nil {
					typ = t.String()
				}
				fmt.Fprintf(w, "  %s %v %s", p, o.Shape(), typ)
				if filters := o.Filters(); len(filters) > 0 {
					fmt.Fprintf(w, " [%s]", strings.Join(filters, ","))
				}
				fmt.Fprintln(w)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if attrs {
		return f.WalkAttrs(func(info hdf5.AttrInfo) error {
			if info.Err != nil {
				fmt.Fprintf(w, "  %s: ERROR %v\n", info.Path, info.Err)
				return nil
			}
			fmt.Fprintf(w, "  %s = %v\n", info.Path, info.Value)
			return nil
		})
	}
	return nil
}

func writeParquet(path string, ds *gctx.Dataset, logger log.Logger) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := export.WriteMatrix(out, ds, export.WithLogger(logger))
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "wrote parquet", "path", path, "cells", n)
	return nil
}
