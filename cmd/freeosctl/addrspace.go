package main

import (
	"sync"

	"github.com/nyx-tron/freeos/errno"
)

// bumpAddressSpace is a trivial bump-allocated stand-in for the excluded
// MMU/address-space collaborator (spec §1), shared by shm.Attach/Detach
// and loader.Commit in this demo harness. Grounded on shm_test.go's
// fakeAddressSpace, extended with MapAnon/WriteAt so the same fixture
// also satisfies loader.AddressSpace.
type bumpAddressSpace struct {
	mu     sync.Mutex
	mapped map[uintptr]uintptr // va -> size
	backed map[uintptr][]byte  // va -> page contents, for WriteAt
	next   uintptr
}

func newBumpAddressSpace() *bumpAddressSpace {
	return &bumpAddressSpace{
		mapped: make(map[uintptr]uintptr),
		backed: make(map[uintptr][]byte),
		next:   0x700000000000,
	}
}

func (a *bumpAddressSpace) IsMapped(va, size uintptr) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for existingVA, existingSize := range a.mapped {
		if va < existingVA+existingSize && existingVA < va+size {
			return true
		}
	}
	return false
}

func (a *bumpAddressSpace) FreeRange(size, hint uintptr) (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	va := a.next
	a.next += size
	return va, nil
}

func (a *bumpAddressSpace) MapFixed(va, size uintptr, writable bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mapped[va] = size
	return nil
}

func (a *bumpAddressSpace) Unmap(va, size uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.mapped, va)
	delete(a.backed, va)
	return nil
}

// UnmapAll satisfies loader.AddressSpace: execve tears down every user
// mapping before rebuilding the image.
func (a *bumpAddressSpace) UnmapAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mapped = make(map[uintptr]uintptr)
	a.backed = make(map[uintptr][]byte)
	return nil
}

// MapAnon satisfies loader.AddressSpace: a fresh zero-filled region at a
// caller-chosen va (this harness maps PT_LOAD segments and the stack/heap
// at the exact vaddrs the loader plans, so it never needs FreeRange here).
func (a *bumpAddressSpace) MapAnon(va, size uintptr, writable, executable bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mapped[va] = size
	a.backed[va] = make([]byte, size)
	return nil
}

// WriteAt copies data into an already-mapped region starting at va.
func (a *bumpAddressSpace) WriteAt(va uintptr, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for mva, msize := range a.mapped {
		if va >= mva && va+uintptr(len(data)) <= mva+msize {
			copy(a.backed[mva][va-mva:], data)
			return nil
		}
	}
	return errno.EFAULT
}
