// Package alloc hands out file addresses while an HDF5 file is written.
package alloc

import "sync"

// Allocator places every block at the current end of file. Space is never
// reused; a file is written once and closed.
type Allocator struct {
	mu  sync.Mutex
	eof uint64
}

// New returns an allocator whose first block starts at base, normally the
// first byte after the superblock.
func New(base uint64) *Allocator {
	return &Allocator{eof: base}
}

// Alloc reserves size bytes and returns their address.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eof
	a.eof += size
	return addr
}

// EOFAddr returns the address just past the last allocated block.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}
