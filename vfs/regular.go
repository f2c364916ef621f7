package vfs

import (
	"sync"

	"github.com/nyx-tron/freeos/errno"
)

// Backing is the raw byte-addressable collaborator a Regular file reads
// and writes through — the VFS primitive this package treats as an
// external collaborator (spec §1 names the VFS out of scope here).
type Backing interface {
	ReadAt(off int64, p []byte) (int, error)
	WriteAt(off int64, p []byte) (int, error)
	Truncate(size int64) error
	Sync() error
	Size() int64
}

// Regular is a seekable file-like backed by a Backing. Grounded on
// backend/cache.Handle's mutex-guarded offset + Read/Seek/Close shape,
// adapted from a chunked remote-object reader to a plain positional file.
type Regular struct {
	mu          sync.Mutex
	backing     Backing
	offset      int64
	nonblocking bool
	name        string
}

// NewRegular wraps backing as a Regular file-like named name (used only
// for logging).
func NewRegular(name string, backing Backing) *Regular {
	return &Regular{backing: backing, name: name}
}

func (f *Regular) Kind() Kind     { return KindRegular }
func (f *Regular) String() string { return f.name }

func (f *Regular) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.backing.ReadAt(f.offset, p)
	f.offset += int64(n)
	return n, err
}

func (f *Regular) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.backing.WriteAt(f.offset, p)
	f.offset += int64(n)
	return n, err
}

func (f *Regular) ReadAt(off int64, p []byte) (int, error) {
	return f.backing.ReadAt(off, p)
}

func (f *Regular) WriteAt(off int64, p []byte) (int, error) {
	return f.backing.WriteAt(off, p)
}

func (f *Regular) Truncate(size int64) error {
	return f.backing.Truncate(size)
}

func (f *Regular) Fsync() error {
	return f.backing.Sync()
}

// Poll reports a regular file as always readable and writable, matching
// the Linux convention that regular-file I/O never blocks the multiplexer.
func (f *Regular) Poll() (PollState, error) {
	return PollState{Readable: true, Writable: true}, nil
}

// Size reports the backing file's current size, used by splice's
// file-to-pipe direction to know when to stop reading.
func (f *Regular) Size() int64 {
	return f.backing.Size()
}

func (f *Regular) SetNonblocking(nb bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonblocking = nb
	return nil
}

// Seek repositions the file offset, errno.EINVAL on a negative result.
func (f *Regular) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var base int64
	switch whence {
	case 0:
		base = 0
	case 1:
		base = f.offset
	case 2:
		base = f.backing.Size()
	default:
		return 0, errno.EINVAL
	}
	newOff := base + offset
	if newOff < 0 {
		return 0, errno.EINVAL
	}
	f.offset = newOff
	return newOff, nil
}
