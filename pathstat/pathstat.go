// Package pathstat implements the stat/lstat/statx/faccessat dispatch
// and /proc/self/exe symlink resolution (spec §4.9), against the
// excluded raw VFS's metadata primitives.
package pathstat

import (
	"time"

	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/uabi"
)

// Stat is the subset of struct stat this kernel actually populates,
// mirroring how backend/local's stat_unix.go/metadata_linux.go pull a
// handful of fields (mode, mtime, atime, dev/ino) out of the host's
// *syscall.Stat_t rather than the full struct.
type Stat struct {
	Ino   uint64
	Dev   uint64
	Mode  uint32
	Size  int64
	ATime time.Time
	MTime time.Time
	CTime time.Time
}

// Metadata is the excluded raw-VFS collaborator this package queries:
// one path resolves to either direct metadata or, for a symlink, its
// link target.
type Metadata interface {
	// Stat returns metadata for path, following a trailing symlink.
	Stat(path string) (Stat, error)
	// Lstat returns metadata for path without following a trailing
	// symlink.
	Lstat(path string) (Stat, error)
	// Readlink returns path's link target if path is a symlink.
	Readlink(path string) (string, bool, error)
}

// FDMetadata is the excluded raw-VFS collaborator for the fd-relative
// forms (fstatat with AT_EMPTY_PATH, statx on an already-open fd).
type FDMetadata interface {
	StatFD(fd int) (Stat, error)
}

// Stat implements the plain stat(2): always follows a trailing
// symlink.
func Stat(m Metadata, path string) (Stat, error) {
	st, err := m.Stat(path)
	if err != nil {
		return Stat{}, errno.Wrap(errno.ENOENT, "stat %s: %v", path, err)
	}
	return st, nil
}

// Lstat implements lstat(2): never follows a trailing symlink.
func Lstat(m Metadata, path string) (Stat, error) {
	st, err := m.Lstat(path)
	if err != nil {
		return Stat{}, errno.Wrap(errno.ENOENT, "lstat %s: %v", path, err)
	}
	return st, nil
}

// Fstatat implements fstatat(dirfd, path, flags) (spec §4.9): empty
// path with AT_EMPTY_PATH stats the fd directly; otherwise the path is
// resolved (relative to dirfd's directory, or CWD for AT_FDCWD — path
// resolution itself belongs to the excluded raw VFS, so this package
// receives an already-resolved absolute path from the caller) and
// dispatched to Stat or Lstat based on AT_SYMLINK_NOFOLLOW.
func Fstatat(m Metadata, fdMeta FDMetadata, dirfd int, path string, flags int) (Stat, error) {
	if path == "" {
		if flags&uabi.AT_EMPTY_PATH == 0 {
			return Stat{}, errno.EINVAL
		}
		if fdMeta == nil {
			return Stat{}, errno.EBADF
		}
		st, err := fdMeta.StatFD(dirfd)
		if err != nil {
			return Stat{}, errno.Wrap(errno.EBADF, "fstatat empty path: %v", err)
		}
		return st, nil
	}
	if flags&uabi.AT_SYMLINK_NOFOLLOW != 0 {
		return Lstat(m, path)
	}
	return Stat(m, path)
}

// Statx implements statx(2) (spec §4.9): same dispatch as fstatat, but
// a non-empty path always follows symlinks regardless of
// AT_SYMLINK_NOFOLLOW.
func Statx(m Metadata, fdMeta FDMetadata, dirfd int, path string, flags int) (Stat, error) {
	if path == "" {
		return Fstatat(m, fdMeta, dirfd, path, flags)
	}
	return Stat(m, path)
}

// FOK is faccessat's F_OK existence-check mode. R_OK/W_OK/X_OK are not
// defined here and Faccessat does not inspect mode, since this kernel
// does not model real permission enforcement (spec Non-goals: "credentials and real
// permission enforcement" — faccessat here only reports whether the
// path resolves at all, which is the one check this kernel can make
// honestly).
const (
	FOK = 0
)

// Faccessat implements faccessat(dirfd, path, mode, flags) reduced to
// existence checking only, per the Non-goals note that real permission
// enforcement is out of scope: any successful Lstat/Stat means the
// path exists and access is granted.
func Faccessat(m Metadata, dirfd int, path string, mode int, flags int) error {
	if flags&uabi.AT_SYMLINK_NOFOLLOW != 0 {
		_, err := m.Lstat(path)
		if err != nil {
			return errno.ENOENT
		}
		return nil
	}
	_, err := m.Stat(path)
	if err != nil {
		return errno.ENOENT
	}
	return nil
}
