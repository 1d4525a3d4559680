package filter

import (
	"bytes"
	stdbinary "encoding/binary"
	"math"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/l1ktools/l1kio/internal/binary"
	"github.com/l1ktools/l1kio/internal/message"
)

// matrixBytes is a small float32 matrix, the shape of data these filters
// usually see.
func matrixBytes(n int) []byte {
	out := make([]byte, 0, 4*n)
	for i := 0; i < n; i++ {
		out = stdbinary.LittleEndian.AppendUint32(out, math.Float32bits(float32(i%97)*0.25))
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	data := matrixBytes(1000)
	filters := map[string]Filter{
		"deflate":     NewDeflate([]uint32{6}),
		"deflate-0":   NewDeflate([]uint32{0}),
		"shuffle":     NewShuffle([]uint32{4}),
		"fletcher32":  NewFletcher32(nil),
		"lz4":         NewLZ4(nil),
		"lz4-blocks":  NewLZ4([]uint32{256}),
		"zstd":        NewZstd(nil),
		"zstd-level9": NewZstd([]uint32{9}),
	}
	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			enc, err := f.Encode(data)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			dec, err := f.Decode(enc)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(dec, data) {
				t.Error("round trip changed the data")
			}
		})
	}
}

func TestDeflateReadsZlib(t *testing.T) {
	original := []byte("rid,cid,pr_gene_symbol")
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(original)
	w.Close()

	got, err := NewDeflate(nil).Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("got %q", got)
	}
	if _, err := NewDeflate(nil).Decode([]byte("garbage")); err == nil {
		t.Error("expected error for bad stream")
	}
}

func TestShuffleLayout(t *testing.T) {
	original := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x11, 0x12, 0x13, 0x14,
		0x21, 0x22, 0x23, 0x24,
		0xff, 0xfe, // partial element
	}
	want := []byte{
		0x01, 0x11, 0x21,
		0x02, 0x12, 0x22,
		0x03, 0x13, 0x23,
		0x04, 0x14, 0x24,
		0xff, 0xfe,
	}
	f := NewShuffle([]uint32{4})
	got, _ := f.Encode(original)
	if !bytes.Equal(got, want) {
		t.Errorf("Encode = %x, want %x", got, want)
	}
	back, _ := f.Decode(got)
	if !bytes.Equal(back, original) {
		t.Errorf("Decode = %x", back)
	}

	single := []byte{1, 2, 3}
	if got, _ := NewShuffle([]uint32{1}).Decode(single); !bytes.Equal(got, single) {
		t.Error("one-byte elements should pass through")
	}
}

func TestFletcher32(t *testing.T) {
	data := []byte("test data for checksum")
	enc, _ := NewFletcher32(nil).Encode(data)
	if got := stdbinary.LittleEndian.Uint32(enc[len(data):]); got != binary.Fletcher32(data) {
		t.Errorf("stored checksum %#x", got)
	}

	swapped := append([]byte(nil), data...)
	swapped = stdbinary.BigEndian.AppendUint32(swapped, binary.Fletcher32(data))
	if _, err := NewFletcher32(nil).Decode(swapped); err != nil {
		t.Errorf("byte-swapped checksum rejected: %v", err)
	}

	enc[0] ^= 0xff
	if _, err := NewFletcher32(nil).Decode(enc); err == nil {
		t.Error("expected checksum mismatch")
	}
	if _, err := NewFletcher32(nil).Decode([]byte{1, 2}); err == nil {
		t.Error("expected error for short chunk")
	}
}

func TestLZ4Framing(t *testing.T) {
	data := append(bytes.Repeat([]byte("abcd"), 40), 9, 8, 7, 6, 5)
	enc, err := NewLZ4([]uint32{64}).Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	if total := stdbinary.BigEndian.Uint64(enc[0:8]); total != uint64(len(data)) {
		t.Errorf("header size = %d", total)
	}
	if bs := stdbinary.BigEndian.Uint32(enc[8:12]); bs != 64 {
		t.Errorf("header block size = %d", bs)
	}

	if _, err := NewLZ4(nil).Decode(enc[:len(enc)-3]); err == nil {
		t.Error("expected error for truncated chunk")
	}
	if _, err := NewLZ4(nil).Decode(enc[:5]); err == nil {
		t.Error("expected error for short header")
	}
}

func TestZstdReadsFrames(t *testing.T) {
	original := bytes.Repeat([]byte("gctx matrix data "), 50)
	enc, _ := zstd.NewWriter(nil)
	frame := enc.EncodeAll(original, nil)
	enc.Close()

	got, err := NewZstd(nil).Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Error("data mismatch")
	}
	if _, err := NewZstd(nil).Decode([]byte("not a zstd frame")); err == nil {
		t.Error("expected error for invalid frame")
	}
}

func TestPipeline(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{4}},
		{ID: message.FilterDeflate, ClientData: []uint32{6}},
		{ID: message.FilterFletcher32},
	}}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 || p.Empty() {
		t.Fatalf("Len = %d", p.Len())
	}

	data := matrixBytes(500)
	enc, err := p.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) >= len(data) {
		t.Errorf("encoded %d bytes from %d", len(enc), len(data))
	}
	dec, err := p.Decode(enc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, data) {
		t.Error("pipeline round trip changed the data")
	}
}

func TestPipelineMask(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{2}},
		{ID: message.FilterDeflate},
	}}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte{1, 2, 3, 4, 5, 6}
	// Shuffle skipped: only deflate was applied.
	stored, _ := NewDeflate(nil).Encode(data)
	got, err := p.Decode(stored, 0x01)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("got %v", got)
	}
}

func TestPipelineOptionalAndUnknown(t *testing.T) {
	optional := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: 307, Flags: 1},
		{ID: message.FilterDeflate},
	}}
	p, err := NewPipeline(optional)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want the optional filter dropped", p.Len())
	}
	// The mask still refers to message positions: bit 1 skips deflate.
	if got, err := p.Decode([]byte("raw"), 0x02); err != nil || string(got) != "raw" {
		t.Errorf("got %q, %v", got, err)
	}

	if _, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterSZIP}}}); err == nil {
		t.Error("expected error for SZIP")
	}
	if p, _ := NewPipeline(nil); !p.Empty() {
		t.Error("nil message should give an empty pipeline")
	}
}
