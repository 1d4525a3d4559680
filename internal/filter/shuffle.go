package filter

import "github.com/l1ktools/l1kio/internal/message"

// Shuffle groups byte i of every element together. Bytes left over past
// the last whole element are kept in place at the end.
type Shuffle struct {
	elemSize int
}

// NewShuffle reads the element size from client data.
func NewShuffle(clientData []uint32) *Shuffle {
	size := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		size = int(clientData[0])
	}
	return &Shuffle{elemSize: size}
}

func (f *Shuffle) ID() uint16 { return message.FilterShuffle }

// Encode groups the bytes of input by position within an element.
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	return f.transpose(input, true), nil
}

// Decode restores element order.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	return f.transpose(input, false), nil
}

func (f *Shuffle) transpose(input []byte, shuffle bool) []byte {
	n := len(input) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return input
	}
	out := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < f.elemSize; j++ {
			elem, grouped := i*f.elemSize+j, j*n+i
			if shuffle {
				out[grouped] = input[elem]
			} else {
				out[elem] = input[grouped]
			}
		}
	}
	copy(out[n*f.elemSize:], input[n*f.elemSize:])
	return out
}
