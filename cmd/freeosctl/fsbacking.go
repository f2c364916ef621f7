package main

import (
	"golang.org/x/sys/unix"
)

// fileBacking adapts an open host file to vfs.Backing using positional
// pread64/pwrite64 directly (golang.org/x/sys/unix), the same syscalls
// backend/local/directio_unix.go and fadvise_unix.go issue against a raw
// fd rather than going through os.File's internal offset bookkeeping.
type fileBacking struct {
	fd int
}

func newFileBacking(fd int) *fileBacking {
	return &fileBacking{fd: fd}
}

func (b *fileBacking) ReadAt(off int64, p []byte) (int, error) {
	return unix.Pread(b.fd, p, off)
}

func (b *fileBacking) WriteAt(off int64, p []byte) (int, error) {
	return unix.Pwrite(b.fd, p, off)
}

func (b *fileBacking) Truncate(size int64) error {
	return unix.Ftruncate(b.fd, size)
}

func (b *fileBacking) Sync() error {
	return unix.Fsync(b.fd)
}

func (b *fileBacking) Size() int64 {
	var st unix.Stat_t
	if err := unix.Fstat(b.fd, &st); err != nil {
		return 0
	}
	return st.Size
}
