// Package dirent packs directory entries into a user buffer the way
// getdents64(2) does: variable-length records, 8-byte aligned, with the
// entry that didn't fit carried over to the next call instead of being
// dropped.
package dirent

import (
	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/vfs"
)

// headerSize is offsetof(d_name) in the Linux dirent64 layout:
// d_ino(8) + d_off(8) + d_reclen(2) + d_type(1) = 19, with no padding
// before d_name since a char array has alignment 1; this package
// reproduces the arithmetic rather than a literal struct since Go has no
// on-disk struct packing pragma equivalent to C's.
const headerSize = 19

// align8 rounds n up to the alignof(dirent64) = 8 boundary.
func align8(n int) int {
	return (n + 7) &^ 7
}

// recLen returns the padded record length for a name of the given
// length, including its NUL terminator.
func recLen(nameLen int) int {
	return align8(headerSize + nameLen + 1)
}

// Pack encodes e into buf at offset 0 using the fixed d_ino=1, d_off=0
// convention spec §4.3/§6 documents as a limitation carried over from
// the original source. It reports (bytesWritten, fits).
func Pack(buf []byte, e vfs.DirEntry) (int, bool) {
	n := recLen(len(e.Name))
	if n > len(buf) {
		return 0, false
	}
	putUint64(buf[0:8], 1)  // d_ino
	putUint64(buf[8:16], 0) // d_off
	putUint16(buf[16:18], uint16(n))
	buf[18] = byte(e.Type)
	copy(buf[19:], e.Name)
	buf[19+len(e.Name)] = 0
	for i := headerSize + len(e.Name) + 1; i < n; i++ {
		buf[i] = 0
	}
	return n, true
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// ReadInto runs the getdents64 packing algorithm (spec §4.3) against dir,
// writing as many records as fit in buf and leaving any entry that
// didn't fit in the directory's carry slot for the next call.
func ReadInto(dir *vfs.Directory, buf []byte) (int, error) {
	written := 0

	if e, ok := dir.PeekCarry(); ok {
		n, fits := Pack(buf[written:], e)
		if !fits {
			return 0, errno.EINVAL
		}
		dir.ClearCarry()
		written += n
	}

	for {
		e, ok, err := dir.ReadNext()
		if err != nil {
			return written, err
		}
		if !ok {
			break
		}
		n, fits := Pack(buf[written:], e)
		if !fits {
			dir.SetCarry(e)
			break
		}
		written += n
	}

	if written == 0 {
		if _, carried := dir.PeekCarry(); carried {
			return 0, errno.EINVAL
		}
	}
	return written, nil
}
