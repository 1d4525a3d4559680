package layout

// grid describes how a row-major dataset is cut into row-major chunks.
type grid struct {
	dims        []uint64
	chunk       []uint64
	perDim      []uint64 // chunks along each dimension
	dataStride  []uint64 // bytes
	chunkStride []uint64 // bytes
	chunkBytes  uint64
	count       uint64 // chunks in the dataset
}

// newGrid cuts dims into chunks of chunkDims elements of elemSize bytes.
func newGrid(dims []uint64, chunkDims []uint32, elemSize uint64) grid {
	n := len(dims)
	g := grid{
		dims:        dims,
		chunk:       make([]uint64, n),
		perDim:      make([]uint64, n),
		dataStride:  make([]uint64, n),
		chunkStride: make([]uint64, n),
		chunkBytes:  elemSize,
		count:       1,
	}
	for d := range dims {
		g.chunk[d] = uint64(chunkDims[d])
		g.perDim[d] = (dims[d] + g.chunk[d] - 1) / g.chunk[d]
		g.chunkBytes *= g.chunk[d]
		g.count *= g.perDim[d]
	}
	if n > 0 {
		g.dataStride[n-1], g.chunkStride[n-1] = elemSize, elemSize
		for d := n - 2; d >= 0; d-- {
			g.dataStride[d] = g.dataStride[d+1] * dims[d+1]
			g.chunkStride[d] = g.chunkStride[d+1] * g.chunk[d+1]
		}
	}
	return g
}

// origin returns the coordinates of the first element of chunk i.
func (g grid) origin(i uint64) []uint64 {
	o := make([]uint64, len(g.dims))
	for d := len(g.dims) - 1; d >= 0; d-- {
		o[d] = (i % g.perDim[d]) * g.chunk[d]
		i /= g.perDim[d]
	}
	return o
}

// rows calls fn once per innermost row of the chunk at origin that falls
// inside the dataset, with the row's byte offsets in the dataset and in the
// chunk and its length in bytes.
func (g grid) rows(origin []uint64, fn func(dataOff, chunkOff, n uint64)) {
	if len(g.dims) > 0 {
		g.rowsFrom(origin, 0, 0, 0, fn)
	}
}

func (g grid) rowsFrom(origin []uint64, d int, dataOff, chunkOff uint64, fn func(dataOff, chunkOff, n uint64)) {
	if origin[d] >= g.dims[d] {
		return
	}
	extent := min(g.chunk[d], g.dims[d]-origin[d])
	dataOff += origin[d] * g.dataStride[d]
	if d == len(g.dims)-1 {
		fn(dataOff, chunkOff, extent*g.dataStride[d])
		return
	}
	for k := uint64(0); k < extent; k++ {
		g.rowsFrom(origin, d+1, dataOff+k*g.dataStride[d], chunkOff+k*g.chunkStride[d], fn)
	}
}

// place copies the in-bounds part of a decoded chunk into out. A short
// chunk fills what it can.
func (g grid) place(out, chunk []byte, origin []uint64) {
	g.rows(origin, func(dataOff, chunkOff, n uint64) {
		if dataOff >= uint64(len(out)) || chunkOff >= uint64(len(chunk)) {
			return
		}
		end := min(dataOff+n, uint64(len(out)))
		copy(out[dataOff:end], chunk[chunkOff:])
	})
}

// gather cuts the chunk at origin out of data. Cells past the dataset edge
// stay zero.
func (g grid) gather(data []byte, origin []uint64) []byte {
	chunk := make([]byte, g.chunkBytes)
	g.rows(origin, func(dataOff, chunkOff, n uint64) {
		copy(chunk[chunkOff:chunkOff+n], data[dataOff:dataOff+n])
	})
	return chunk
}
