// Package upointer is the user-pointer façade: validated views onto a
// process's user address space, handed to the rest of the kernel as plain
// Go slices and strings instead of raw addresses.
//
// A real kernel backs these views with a page-fault handler that can pull
// pages in from the owning address space on demand, the way biscuit's
// Vm_t.Userdmap8_inner does while holding the address-space's pmap lock.
// This package models that same contract against a Space abstraction: any
// access happens "inside a scope where the page-fault handler is allowed
// to back-fill user pages", i.e. inside a single Space.Read or
// Space.Write call; Space exposes no separate lock.
package upointer

import (
	"unicode/utf8"

	"github.com/nyx-tron/freeos/errno"
)

// MaxCString bounds a NUL-terminated string read so a missing terminator
// can't force an unbounded scan of user memory.
const MaxCString = 4096

// MaxCStringList bounds how many entries a NUL-terminated pointer list
// (argv, envp) may hold before execve gives up looking for the terminator.
const MaxCStringList = 4096

// Space is the address space a façade view is backed by. It is the
// collaborator this package treats as external (the real VFS/MMU glue);
// core subsystems never implement it themselves, they're handed one.
type Space interface {
	// Read copies len(dst) bytes starting at user address va into dst.
	// Returns errno.EFAULT if any part of the range is unmapped.
	Read(va uintptr, dst []byte) error
	// Write copies src into user memory starting at va. Returns
	// errno.EFAULT if any part of the range is unmapped or read-only.
	Write(va uintptr, src []byte) error
}

// Facade wraps a Space with the validated-view operations the rest of the
// kernel uses instead of touching Space directly.
type Facade struct {
	sp Space
}

// New wraps sp in a Facade.
func New(sp Space) *Facade {
	return &Facade{sp: sp}
}

// ReadSlice returns a read-only copy of n bytes at va.
func (f *Facade) ReadSlice(va uintptr, n int) ([]byte, error) {
	if n < 0 {
		return nil, errno.EINVAL
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if err := f.sp.Read(va, buf); err != nil {
		return nil, errno.Wrap(errno.EFAULT, "read user slice at %#x len %d", va, n)
	}
	return buf, nil
}

// WriteSlice copies data into user memory at va.
func (f *Facade) WriteSlice(va uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := f.sp.Write(va, data); err != nil {
		return errno.Wrap(errno.EFAULT, "write user slice at %#x len %d", va, len(data))
	}
	return nil
}

// ReadCString reads a NUL-terminated string starting at va, one probe
// chunk at a time, stopping at the first NUL or at MaxCString.
func (f *Facade) ReadCString(va uintptr) (string, error) {
	const chunk = 64
	var out []byte
	for len(out) < MaxCString {
		n := chunk
		if len(out)+n > MaxCString {
			n = MaxCString - len(out)
		}
		buf := make([]byte, n)
		if err := f.sp.Read(va+uintptr(len(out)), buf); err != nil {
			return "", errno.Wrap(errno.EFAULT, "read cstring at %#x", va)
		}
		for i, b := range buf {
			if b == 0 {
				return string(append(out, buf[:i]...)), nil
			}
		}
		out = append(out, buf...)
	}
	return "", errno.Wrap(errno.EFAULT, "cstring at %#x unterminated within %d bytes", va, MaxCString)
}

// PointerWidth is the size in bytes of a user pointer in the pointer
// lists this façade decodes (argv/envp are 64-bit on every arch this
// kernel targets).
const PointerWidth = 8

// ReadCStringList reads a NUL-terminated (all-zero word) array of
// pointers starting at va, resolving each pointer to a NUL-terminated
// string via ReadCString.
func (f *Facade) ReadCStringList(va uintptr) ([]string, error) {
	var out []string
	for i := 0; i < MaxCStringList; i++ {
		ptrBuf := make([]byte, PointerWidth)
		if err := f.sp.Read(va+uintptr(i*PointerWidth), ptrBuf); err != nil {
			return nil, errno.Wrap(errno.EFAULT, "read pointer list at %#x index %d", va, i)
		}
		ptr := leUint64(ptrBuf)
		if ptr == 0 {
			return out, nil
		}
		s, err := f.ReadCString(uintptr(ptr))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return nil, errno.Wrap(errno.EFAULT, "pointer list at %#x unterminated within %d entries", va, MaxCStringList)
}

// ReadNullable treats va == 0 as "absent" and returns ok=false without
// touching the address space at all.
func (f *Facade) ReadNullable(va uintptr, n int) (data []byte, ok bool, err error) {
	if va == 0 {
		return nil, false, nil
	}
	data, err = f.ReadSlice(va, n)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ValidUTF8String reads a NUL-terminated string and rejects non-UTF-8
// content outright, matching the loader's "a symlink target or argv
// entry with invalid UTF-8 is a hard failure" rule rather than lossy
// conversion.
func (f *Facade) ValidUTF8String(va uintptr) (string, error) {
	s, err := f.ReadCString(va)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(s) {
		return "", errno.Wrap(errno.EINVAL, "string at %#x is not valid utf-8", va)
	}
	return s, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
