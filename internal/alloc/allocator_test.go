package alloc

import (
	"sync"
	"testing"
)

func TestAllocAppends(t *testing.T) {
	a := New(96)
	if got := a.Alloc(10); got != 96 {
		t.Errorf("first Alloc = %d, want 96", got)
	}
	if got := a.Alloc(0); got != 106 {
		t.Errorf("empty Alloc = %d, want 106", got)
	}
	if got := a.Alloc(4); got != 106 {
		t.Errorf("third Alloc = %d, want 106", got)
	}
	if got := a.EOFAddr(); got != 110 {
		t.Errorf("EOFAddr = %d, want 110", got)
	}
}

func TestAllocConcurrent(t *testing.T) {
	a := New(0)
	var wg sync.WaitGroup
	seen := make(chan uint64, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- a.Alloc(8)
		}()
	}
	wg.Wait()
	close(seen)

	addrs := make(map[uint64]bool)
	for addr := range seen {
		if addrs[addr] {
			t.Fatalf("address %d handed out twice", addr)
		}
		addrs[addr] = true
	}
	if a.EOFAddr() != 64*8 {
		t.Errorf("EOFAddr = %d, want %d", a.EOFAddr(), 64*8)
	}
}
