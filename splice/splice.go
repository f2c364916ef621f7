// Package splice streams bytes between file descriptors: copy_file_range
// semantics between two regular files, and splice semantics between a
// pipe and a file (spec §4.5).
package splice

import (
	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/internal/klog"
	"github.com/nyx-tron/freeos/vfs"
)

// bounceSize is the fixed bounce-buffer size both copy_file_range and
// splice move data through, per spec §4.5. Grounded on the teacher's own
// bounded-window streaming idiom (backend/local/fadvise_unix.go's
// windowSize, backend/local/readahead_linux.go's readaheadAmount): move
// data through the kernel in fixed chunks rather than all at once.
const bounceSize = 8 * 1024

// Offset is an optional positional offset: CopyFileRange uses nil to mean
// "use the fd's current sequential position", matching the null-pointer
// convention of the real syscalls' off_in/off_out arguments. Splice
// requires a non-nil file offset and rejects nil with errno.EINVAL.
type Offset struct {
	Value int64
}

// CopyFileRange implements copy_file_range(2) (spec §4.5): fdIn and
// fdOut must be distinct; reads and writes run in bounceSize chunks,
// honoring positional offsets when given, stopping on a zero-byte read
// or a short write.
func CopyFileRange(fdIn, fdOut vfs.FileLike, offIn, offOut *Offset, length int64) (int64, error) {
	if fdIn == fdOut {
		return 0, errno.EINVAL
	}
	if length < 0 {
		return 0, errno.EINVAL
	}

	buf := make([]byte, bounceSize)
	var total int64
	for total < length {
		want := length - total
		if want > bounceSize {
			want = bounceSize
		}

		n, err := readChunk(fdIn, offIn, buf[:want])
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}

		w, err := writeChunk(fdOut, offOut, buf[:n])
		total += int64(w)
		if err != nil {
			return total, err
		}
		if w < n {
			break
		}
	}
	klog.Debugf(fdOut, "copy_file_range copied %d of %d requested bytes", total, length)
	return total, nil
}

func readChunk(f vfs.FileLike, off *Offset, buf []byte) (int, error) {
	if off != nil {
		n, err := f.ReadAt(off.Value, buf)
		off.Value += int64(n)
		return n, err
	}
	return f.Read(buf)
}

func writeChunk(f vfs.FileLike, off *Offset, buf []byte) (int, error) {
	if off != nil {
		n, err := f.WriteAt(off.Value, buf)
		off.Value += int64(n)
		return n, err
	}
	return f.Write(buf)
}
