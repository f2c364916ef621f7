package main

import (
	"os"
	"sort"
	"syscall"
	"time"

	"github.com/pkg/xattr"

	"github.com/nyx-tron/freeos/pathstat"
	"github.com/nyx-tron/freeos/vfs"
)

// hostMetadata implements pathstat.Metadata and pathstat.FDMetadata
// against the real host filesystem, standing in for the excluded raw
// VFS (spec §1). Grounded on backend/local/stat_unix.go's stat(), which
// also pulls mode/mtime/atime/dev/ino straight out of a *syscall.Stat_t.
type hostMetadata struct{}

func toStat(fi os.FileInfo) pathstat.Stat {
	st, ok := fi.Sys().(*syscall.Stat_t)
	out := pathstat.Stat{
		Mode:  uint32(fi.Mode()),
		Size:  fi.Size(),
		MTime: fi.ModTime(),
	}
	if ok {
		out.Ino = st.Ino
		out.Dev = uint64(st.Dev)
		out.ATime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		out.CTime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return out
}

func (hostMetadata) Stat(path string) (pathstat.Stat, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return pathstat.Stat{}, err
	}
	return toStat(fi), nil
}

func (hostMetadata) Lstat(path string) (pathstat.Stat, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return pathstat.Stat{}, err
	}
	return toStat(fi), nil
}

func (hostMetadata) Readlink(path string) (string, bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return "", false, err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return "", false, nil
	}
	target, err := os.Readlink(path)
	if err != nil {
		return "", false, err
	}
	return target, true, nil
}

// hostFDMetadata stats an already-open descriptor via its backing *os.File,
// satisfying pathstat.FDMetadata for fstatat's AT_EMPTY_PATH form.
type hostFDMetadata struct {
	files map[int]*os.File
}

func (h hostFDMetadata) StatFD(fd int) (pathstat.Stat, error) {
	f, ok := h.files[fd]
	if !ok {
		return pathstat.Stat{}, os.ErrNotExist
	}
	fi, err := f.Stat()
	if err != nil {
		return pathstat.Stat{}, err
	}
	return toStat(fi), nil
}

// listXattrs is a thin passthrough demo of extended-attribute metadata
// (SPEC_FULL.md's domain-stack wiring for github.com/pkg/xattr, the same
// library backend/local/xattr.go uses), reported alongside Stat output
// but not otherwise consulted by pathstat itself since struct stat has
// no xattr field.
func listXattrs(path string) (map[string]string, error) {
	names, err := xattr.List(path)
	if err != nil {
		if err == xattr.ENOATTR || os.IsNotExist(err) {
			return nil, nil
		}
		// xattr is frequently unsupported on the backing filesystem
		// (tmpfs, overlayfs without xattr=on); treat that as "none"
		// rather than surfacing a CLI error for a cosmetic feature.
		return nil, nil
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, err := xattr.Get(path, name)
		if err != nil {
			continue
		}
		out[name] = string(v)
	}
	return out, nil
}

// hostDirIterator satisfies vfs.DirIterator by walking a pre-sorted
// snapshot of a real directory's entries, mirroring the VFS order
// getdents64 relies on (spec §4.3, Property 1).
type hostDirIterator struct {
	entries []vfs.DirEntry
	pos     int
}

func newHostDirIterator(path string) (*hostDirIterator, error) {
	des, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	entries := make([]vfs.DirEntry, 0, len(des))
	for _, de := range des {
		entries = append(entries, vfs.DirEntry{Name: de.Name(), Type: directTypeOf(de)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &hostDirIterator{entries: entries}, nil
}

func directTypeOf(de os.DirEntry) vfs.DirType {
	switch {
	case de.IsDir():
		return vfs.DTDir
	case de.Type()&os.ModeSymlink != 0:
		return vfs.DTLnk
	case de.Type()&os.ModeNamedPipe != 0:
		return vfs.DTFifo
	case de.Type()&os.ModeSocket != 0:
		return vfs.DTSock
	case de.Type()&os.ModeDevice != 0:
		return vfs.DTBlk
	case de.Type().IsRegular():
		return vfs.DTReg
	default:
		return vfs.DTUnknown
	}
}

func (it *hostDirIterator) Next() (vfs.DirEntry, bool, error) {
	if it.pos >= len(it.entries) {
		return vfs.DirEntry{}, false, nil
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true, nil
}
