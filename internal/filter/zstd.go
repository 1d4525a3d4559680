package filter

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/l1ktools/l1kio/internal/message"
)

// Decoders are pooled; DecodeAll is safe on a reused decoder.
var zstdDecoders = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("creating zstd decoder: %v", err))
		}
		return d
	},
}

// Zstd stores each chunk as one Zstandard frame.
type Zstd struct {
	level int
}

// NewZstd reads the compression level from client data. Zero picks the
// encoder default.
func NewZstd(clientData []uint32) *Zstd {
	f := &Zstd{}
	if len(clientData) > 0 {
		f.level = int(int32(clientData[0]))
	}
	return f
}

func (f *Zstd) ID() uint16 { return message.FilterZstd }

// Encode compresses input as one Zstandard frame.
func (f *Zstd) Encode(input []byte) ([]byte, error) {
	level := zstd.SpeedDefault
	if f.level > 0 {
		level = zstd.EncoderLevelFromZstd(f.level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(input, nil), nil
}

// Decode reads one or more Zstandard frames.
func (f *Zstd) Decode(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	d := zstdDecoders.Get().(*zstd.Decoder)
	defer zstdDecoders.Put(d)
	out, err := d.DecodeAll(input, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}
