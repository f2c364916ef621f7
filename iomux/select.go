package iomux

import (
	"time"

	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/uabi"
)

const wordBits = 64

// FdSet is a bitset of length FD_SETSIZE (spec §3), stored as
// ceil(1024/64) machine words, mirroring the Linux fd_set layout.
type FdSet struct {
	words [uabi.FDSetSize / wordBits]uint64
}

// NewFdSet returns an all-zero FdSet.
func NewFdSet() *FdSet {
	return &FdSet{}
}

// Set marks fd present.
func (s *FdSet) Set(fd int) {
	if fd < 0 || fd >= uabi.FDSetSize {
		return
	}
	s.words[fd/wordBits] |= 1 << uint(fd%wordBits)
}

// Clear marks fd absent.
func (s *FdSet) Clear(fd int) {
	if fd < 0 || fd >= uabi.FDSetSize {
		return
	}
	s.words[fd/wordBits] &^= 1 << uint(fd%wordBits)
}

// IsSet reports whether fd is present.
func (s *FdSet) IsSet(fd int) bool {
	if fd < 0 || fd >= uabi.FDSetSize {
		return false
	}
	return s.words[fd/wordBits]&(1<<uint(fd%wordBits)) != 0
}

func (s *FdSet) zero() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// union returns the bitwise OR of read/write/except, used to decide
// which fds the sampling pass needs to look at at all (spec §4.4:
// "iterate bit-by-bit over the union of read/write/except sets").
func union(a, b, c *FdSet) []int {
	var out []int
	for fd := 0; fd < uabi.FDSetSize; fd++ {
		if (a != nil && a.IsSet(fd)) || (b != nil && b.IsSet(fd)) || (c != nil && c.IsSet(fd)) {
			out = append(out, fd)
		}
	}
	return out
}

// Select implements select(2)/pselect6(2)'s sampling semantics over
// nfds, honoring the caller's read/write/except interest sets. Any of
// readfds/writefds/exceptfds may be nil. timeout nil means infinite
// wait; *timeout == 0 means sample once and return.
func Select(lookup Lookup, pump PumpNetwork, nfds int, readfds, writefds, exceptfds *FdSet, timeout *time.Duration) (int, error) {
	if nfds < 0 {
		return 0, errno.EINVAL
	}
	if nfds > uabi.FDSetSize {
		nfds = uabi.FDSetSize
	}

	outRead := NewFdSet()
	outWrite := NewFdSet()
	outExcept := NewFdSet()

	watched := union(readfds, writefds, exceptfds)
	candidates := make([]int, 0, len(watched))
	for _, fd := range watched {
		if fd < nfds {
			candidates = append(candidates, fd)
		}
	}

	sample := func() int {
		outRead.zero()
		outWrite.zero()
		outExcept.zero()
		ready := 0
		for _, fd := range candidates {
			f, err := lookup(fd)
			if err != nil {
				if exceptfds != nil && exceptfds.IsSet(fd) {
					outExcept.Set(fd)
					ready++
				}
				continue
			}
			state, perr := f.Poll()
			if perr != nil {
				if exceptfds != nil && exceptfds.IsSet(fd) {
					outExcept.Set(fd)
					ready++
				}
				continue
			}
			if readfds != nil && readfds.IsSet(fd) && state.Readable {
				outRead.Set(fd)
				ready++
			}
			if writefds != nil && writefds.IsSet(fd) && state.Writable {
				outWrite.Set(fd)
				ready++
			}
		}
		return ready
	}

	var n int
	if timeout != nil && *timeout == 0 {
		n = sample()
	} else {
		var deadline time.Time
		if timeout != nil {
			deadline = time.Now().Add(*timeout)
		}
		n = waitLoop(pump, deadline, sample)
	}

	if readfds != nil {
		*readfds = *outRead
	}
	if writefds != nil {
		*writefds = *outWrite
	}
	if exceptfds != nil {
		*exceptfds = *outExcept
	}
	return n, nil
}

// Pselect6 implements pselect6(2): identical sampling semantics to
// Select, plus a signal mask accepted for ABI shape and ignored
// outright — this kernel has no signal-delivery model (spec
// Non-goals; the original's select.rs treats pselect's mask the same
// way).
func Pselect6(lookup Lookup, pump PumpNetwork, nfds int, readfds, writefds, exceptfds *FdSet, timeout *time.Duration, sigmask *uabi.Sigset) (int, error) {
	return Select(lookup, pump, nfds, readfds, writefds, exceptfds, timeout)
}
