// Package fcstest builds FCS byte streams for tests.
package fcstest

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Param describes one parameter column.
type Param struct {
	// Name is written as $PnN; empty omits the keyword.
	Name  string
	Bits  int
	Range uint64
}

// DataSet describes one dataset to encode.
type DataSet struct {
	// Mode is written as $MODE; zero writes "L".
	Mode byte
	// DataType is written as $DATATYPE; zero writes "I".
	DataType  byte
	BigEndian bool
	Params    []Param
	Events    [][]float64
	// Total is written as $TOT; zero writes len(Events).
	Total int
	// Keywords are appended after the required keywords, in order.
	Keywords [][2]string
	// LargeOffsets leaves the HEADER DATA offsets blank so readers must use
	// $BEGINDATA and $ENDDATA.
	LargeOffsets bool
}

// LXB returns a Luminex-style dataset: 32-bit little-endian integers with
// the region id as the first parameter.
func LXB(names []string, events [][]float64, keywords ...[2]string) DataSet {
	params := make([]Param, len(names))
	for i, n := range names {
		params[i] = Param{Name: n, Bits: 32, Range: 1 << 31}
	}
	return DataSet{Params: params, Events: events, Keywords: keywords}
}

// Build encodes the datasets back to back, chained with $NEXTDATA.
func Build(sets ...DataSet) []byte {
	var out []byte
	for i, ds := range sets {
		last := i == len(sets)-1
		out = append(out, encode(ds, last)...)
	}
	return out
}

const (
	headerSize = 58
	// Offsets in TEXT are zero-padded so TEXT length is known before they are.
	offsetWidth = 12
)

func encode(ds DataSet, last bool) []byte {
	data := encodeData(ds)

	text := func(begin, end, next int) string {
		var sb strings.Builder
		kv := func(k, v string) {
			sb.WriteString(escape(k))
			sb.WriteByte('/')
			sb.WriteString(escape(v))
			sb.WriteByte('/')
		}
		sb.WriteByte('/')
		kv("$BEGINANALYSIS", "0")
		kv("$ENDANALYSIS", "0")
		kv("$BEGINSTEXT", "0")
		kv("$ENDSTEXT", "0")
		kv("$BEGINDATA", fmt.Sprintf("%0*d", offsetWidth, begin))
		kv("$ENDDATA", fmt.Sprintf("%0*d", offsetWidth, end))
		kv("$NEXTDATA", fmt.Sprintf("%0*d", offsetWidth, next))
		kv("$BYTEORD", byteOrd(ds))
		kv("$DATATYPE", string(orDefault(ds.DataType, 'I')))
		kv("$MODE", string(orDefault(ds.Mode, 'L')))
		kv("$PAR", fmt.Sprint(len(ds.Params)))
		tot := ds.Total
		if tot == 0 {
			tot = len(ds.Events)
		}
		kv("$TOT", fmt.Sprint(tot))
		for i, p := range ds.Params {
			n := i + 1
			if p.Name != "" {
				kv(fmt.Sprintf("$P%dN", n), p.Name)
			}
			kv(fmt.Sprintf("$P%dB", n), fmt.Sprint(p.Bits))
			kv(fmt.Sprintf("$P%dE", n), "0,0")
			kv(fmt.Sprintf("$P%dR", n), fmt.Sprint(p.Range))
		}
		for _, k := range ds.Keywords {
			kv(k[0], k[1])
		}
		return sb.String()
	}

	textLen := len(text(0, 0, 0))
	textBegin := headerSize
	textEnd := textBegin + textLen - 1
	dataBegin := textEnd + 1
	dataEnd := dataBegin + len(data) - 1
	if len(data) == 0 {
		dataBegin, dataEnd = 0, 0
	}
	next := 0
	if !last {
		next = dataBegin + len(data)
		if len(data) == 0 {
			next = textEnd + 1
		}
	}

	hdrData := [2]int{dataBegin, dataEnd}
	if ds.LargeOffsets {
		hdrData = [2]int{0, 0}
	}
	hdr := fmt.Sprintf("FCS3.0    %8d%8d%8d%8d%8d%8d", textBegin, textEnd, hdrData[0], hdrData[1], 0, 0)

	out := []byte(hdr)
	out = append(out, text(dataBegin, dataEnd, next)...)
	out = append(out, data...)
	return out
}

func encodeData(ds DataSet) []byte {
	var order binary.AppendByteOrder = binary.LittleEndian
	if ds.BigEndian {
		order = binary.BigEndian
	}
	var out []byte
	for _, ev := range ds.Events {
		for p, param := range ds.Params {
			v := ev[p]
			switch orDefault(ds.DataType, 'I') {
			case 'F':
				out = order.AppendUint32(out, math.Float32bits(float32(v)))
			case 'D':
				out = order.AppendUint64(out, math.Float64bits(v))
			default:
				u := uint64(v)
				switch param.Bits {
				case 8:
					out = append(out, byte(u))
				case 16:
					out = order.AppendUint16(out, uint16(u))
				case 32:
					out = order.AppendUint32(out, uint32(u))
				default:
					out = order.AppendUint64(out, u)
				}
			}
		}
	}
	return out
}

func byteOrd(ds DataSet) string {
	if ds.BigEndian {
		return "4,3,2,1"
	}
	return "1,2,3,4"
}

func orDefault(b, def byte) byte {
	if b == 0 {
		return def
	}
	return b
}

func escape(s string) string {
	return strings.ReplaceAll(s, "/", "//")
}
