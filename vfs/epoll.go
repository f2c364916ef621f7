package vfs

import (
	"sync"

	"github.com/nyx-tron/freeos/errno"
)

// WatchEntry is one epoll_ctl registration: the subscribed edge mask and
// the opaque per-entry cookie epoll_wait echoes back verbatim.
type WatchEntry struct {
	Events uint32
	Cookie uint64
}

// EpollInstance is a File-like whose state is the watched-fd interest
// map. Grounded on the snapd osutil/epoll wrapper (other_examples) for
// the ADD/MOD/DEL error shape, generalized from a raw epoll(7) fd to an
// in-process interest map this kernel's own sampling loop walks (spec
// §4.4's "snapshot the interest map under the instance's lock").
type EpollInstance struct {
	unsupported
	mu      sync.Mutex
	watches map[int]WatchEntry
}

// NewEpollInstance returns an empty epoll instance.
func NewEpollInstance() *EpollInstance {
	return &EpollInstance{watches: make(map[int]WatchEntry)}
}

func (e *EpollInstance) Kind() Kind     { return KindEpollInstance }
func (e *EpollInstance) String() string { return "epoll" }

// Add registers fd with the given interest, errno.EEXIST if already
// present (spec §4.4, Property 4).
func (e *EpollInstance) Add(fd int, entry WatchEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watches[fd]; ok {
		return errno.EEXIST
	}
	e.watches[fd] = entry
	return nil
}

// Mod updates fd's interest, errno.ENOENT if it isn't present.
func (e *EpollInstance) Mod(fd int, entry WatchEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watches[fd]; !ok {
		return errno.ENOENT
	}
	e.watches[fd] = entry
	return nil
}

// Del removes fd, errno.ENOENT if it wasn't present.
func (e *EpollInstance) Del(fd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watches[fd]; !ok {
		return errno.ENOENT
	}
	delete(e.watches, fd)
	return nil
}

// Snapshot returns a copy of the interest map, taken under the
// instance's lock the way spec §4.4 requires for epoll_wait sampling.
func (e *EpollInstance) Snapshot() map[int]WatchEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]WatchEntry, len(e.watches))
	for fd, w := range e.watches {
		out[fd] = w
	}
	return out
}

// Poll reports an epoll instance readable iff its interest map is
// non-empty (spec §3's Epoll instance invariant).
func (e *EpollInstance) Poll() (PollState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PollState{Readable: len(e.watches) > 0}, nil
}

func (e *EpollInstance) SetNonblocking(nb bool) error { return nil }
