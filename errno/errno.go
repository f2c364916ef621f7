// Package errno is the syscall-boundary error taxonomy: every collaborator
// error a core subsystem returns is mapped once, here, to the nearest
// Linux errno (spec §7). Nothing below this package's Errno type crosses
// the boundary back to a caller.
package errno

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Errno is a Linux errno value. It implements error so it can be returned
// and compared like any other Go error, and wraps unix.Errno so
// errors.Is(err, unix.EAGAIN) keeps working for collaborators that
// already think in x/sys/unix terms.
type Errno unix.Errno

func (e Errno) Error() string { return unix.Errno(e).Error() }

// Unwrap lets errors.Is/As see through to unix.Errno.
func (e Errno) Unwrap() error { return unix.Errno(e) }

// Negated returns the value the trap-entry glue writes into the return
// register: a negative errno.
func (e Errno) Negated() int64 { return -int64(e) }

// The errno family this kernel's syscall surface actually raises (spec §6).
const (
	EPERM   = Errno(unix.EPERM)
	ENOENT  = Errno(unix.ENOENT)
	ESRCH   = Errno(unix.ESRCH)
	EAGAIN  = Errno(unix.EAGAIN)
	EACCES  = Errno(unix.EACCES)
	EFAULT  = Errno(unix.EFAULT)
	EEXIST  = Errno(unix.EEXIST)
	ENODEV  = Errno(unix.ENODEV)
	EINVAL  = Errno(unix.EINVAL)
	ENOMEM  = Errno(unix.ENOMEM)
	EBADF   = Errno(unix.EBADF)
	EISDIR  = Errno(unix.EISDIR)
	ERANGE  = Errno(unix.ERANGE)
	ENOEXEC = Errno(unix.ENOEXEC)
	ENOSYS  = Errno(unix.ENOSYS)
	EIDRM   = Errno(unix.EIDRM)
	ETryAgain = EAGAIN // aliases the spec's "TryAgain" error kind
)

// Wrap annotates err with context while keeping it matchable as the
// given Errno via errors.Is — mirrors backend/local's
// `fmt.Errorf("failed to ...: %w", err)` idiom, generalized to the
// kernel's own error kind instead of a raw collaborator error.
func Wrap(kind Errno, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// Errors aggregates multiple independent failures from a single syscall
// that processes several targets (sync_all's fsync-every-fd,
// the sampling loop's per-fd errors folded into POLLERR).
//
// Grounded on backend/union/errors.go's Errors type; kept minimal since
// this kernel's boundary only ever needs the first error, not the full
// joined string.
type Errors []error

// First returns the first non-nil error, or nil if every slot is nil.
func (es Errors) First() error {
	for _, e := range es {
		if e != nil {
			return e
		}
	}
	return nil
}
