// Package fcs reads Flow Cytometry Standard (FCS 2.0, 3.0 and 3.1) files,
// the container Luminex instruments use for LXB list-mode output.
//
// A file holds one or more datasets chained through $NEXTDATA. Each dataset
// has a fixed 58-byte HEADER with segment offsets, a TEXT segment of
// delimiter-separated keyword/value pairs, and a DATA segment of events.
//
//	f, err := fcs.Parse(r, size)
//	ds, err := f.DataSet(0)
//	row := make([]float32, ds.NumParameters())
//	for i := 0; i < ds.NumEvents(); i++ {
//	    if err := ds.Event(i, row); err != nil { ... }
//	}
//
// Binary integer ($DATATYPE I, widths of 8, 16, 32 or 64 bits), float (F)
// and double (D) list-mode data are supported. Integer values are masked to
// the power of two covering $PnR. ASCII data and packed integer widths are
// rejected with [ErrUnsupportedDataType].
package fcs
