// Package vfs is the File-like capability union and the fd table that
// resolves file descriptors to it. The core subsystems that work on
// descriptors (iomux, splice, dirent) are handed a FileLike rather than
// a concrete kind, the way backend/cache.Handle is handed around behind
// an io.ReadCloser-shaped interface in the teacher.
package vfs

import (
	"sync"

	"github.com/nyx-tron/freeos/errno"
)

// Kind discriminates a FileLike's concrete type without a type switch at
// every call site — grounded on the original Rust File trait's kind()
// discriminant living alongside its downcast helpers.
type Kind int

const (
	KindRegular Kind = iota
	KindDirectory
	KindPipe
	KindEpollInstance
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindPipe:
		return "pipe"
	case KindEpollInstance:
		return "epoll"
	case KindSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// PollState is what poll()/select()/epoll_wait() read from a FileLike.
type PollState struct {
	Readable bool
	Writable bool
}

// FileLike is the capability union every fd resolves to. Not every kind
// implements every operation; unsupported Read/Write/ReadAt/WriteAt/
// Truncate/SetNonblocking return ENOSYS, while an unsupported Fsync
// succeeds as a no-op and an unsupported Poll reports not ready. A
// wrong-kind downcast is EBADF, which callers perform themselves via
// Kind().
type FileLike interface {
	Kind() Kind
	String() string

	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	ReadAt(off int64, p []byte) (n int, err error)
	WriteAt(off int64, p []byte) (n int, err error)
	Truncate(size int64) error
	Fsync() error
	Poll() (PollState, error)
	SetNonblocking(nb bool) error
}

// unsupported is embedded by FileLike kinds that don't implement every
// operation, so they only need to override what they actually support.
type unsupported struct{}

func (unsupported) Read(p []byte) (int, error)             { return 0, errno.ENOSYS }
func (unsupported) Write(p []byte) (int, error)             { return 0, errno.ENOSYS }
func (unsupported) ReadAt(off int64, p []byte) (int, error) { return 0, errno.ENOSYS }
func (unsupported) WriteAt(off int64, p []byte) (int, error) {
	return 0, errno.ENOSYS
}
func (unsupported) Truncate(size int64) error   { return errno.ENOSYS }
func (unsupported) Fsync() error                { return nil }
func (unsupported) Poll() (PollState, error)    { return PollState{}, nil }
func (unsupported) SetNonblocking(nb bool) error { return errno.ENOSYS }

// Table is the process-scoped file descriptor table: a mapping from
// non-negative integer to a shared FileLike. Grounded on
// backend/cache.Handle's single-owner-but-shared-reference shape,
// generalized to a slot map keyed by the lowest free index.
type Table struct {
	mu    sync.Mutex
	slots map[int]FileLike
	next  int
}

// NewTable returns an empty fd table.
func NewTable() *Table {
	return &Table{slots: make(map[int]FileLike)}
}

// Add installs obj at the lowest free fd and returns it.
func (t *Table) Add(obj FileLike) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.lowestFree()
	t.slots[fd] = obj
	if fd >= t.next {
		t.next = fd + 1
	}
	return fd
}

func (t *Table) lowestFree() int {
	for fd := 0; ; fd++ {
		if _, ok := t.slots[fd]; !ok {
			return fd
		}
	}
}

// Get returns the FileLike at fd, or errno.EBADF if it isn't open.
func (t *Table) Get(fd int) (FileLike, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.slots[fd]
	if !ok {
		return nil, errno.EBADF
	}
	return obj, nil
}

// Close removes fd from the table. Closing an fd that isn't open is
// errno.EBADF.
func (t *Table) Close(fd int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.slots[fd]; !ok {
		return errno.EBADF
	}
	delete(t.slots, fd)
	return nil
}

// SyncAll calls Fsync on every open entry, propagating the first error
// encountered but still attempting every fd (mirrors sync_all's spec:
// "calls fsync on every entry, propagating the first error").
func (t *Table) SyncAll() error {
	t.mu.Lock()
	entries := make([]FileLike, 0, len(t.slots))
	for _, obj := range t.slots {
		entries = append(entries, obj)
	}
	t.mu.Unlock()

	var first error
	for _, obj := range entries {
		if err := obj.Fsync(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FromFD looks up fd and asserts it is of the given kind, the "downcast"
// helper spec §4.2 describes: wrong kind or missing fd both report a
// clear error kind rather than a generic failure.
func (t *Table) FromFD(fd int, want Kind) (FileLike, error) {
	obj, err := t.Get(fd)
	if err != nil {
		return nil, err
	}
	if obj.Kind() != want {
		return nil, errno.EBADF
	}
	return obj, nil
}
