// Package iomux is the I/O multiplexing engine: poll, ppoll, select,
// pselect, epoll_create, epoll_ctl and epoll_wait, all built over one
// sampling pass and one cooperative wait loop (spec §4.4).
package iomux

import (
	"time"

	"github.com/nyx-tron/freeos/uabi"
	"github.com/nyx-tron/freeos/vfs"
)

// Lookup resolves an fd to its FileLike, the fd table's Get method.
type Lookup func(fd int) (vfs.FileLike, error)

// PumpNetwork advances the network stack one tick, letting socket
// readiness progress without a dedicated thread — spec §4.4's
// poll_interfaces step. Passed in rather than imported since the network
// driver is an explicitly excluded collaborator (spec §1).
type PumpNetwork func()

// tick is the wait loop's cooperative sleep granularity (spec §4.4, §5).
const tick = time.Millisecond

// noopPump is used when a caller has no network stack to pump (e.g. a
// test harness built purely on pipes).
func noopPump() {}

// PollFd mirrors struct pollfd: a watched fd plus its subscribed and
// observed event masks.
type PollFd struct {
	Fd      int
	Events  uint32
	Revents uint32
}

// samplePollFd clears Revents then fills it in from the fd's current
// readiness, per spec §4.4's sampling-pass rules for poll.
func samplePollFd(lookup Lookup, pfd *PollFd) {
	pfd.Revents = 0
	if pfd.Fd < 0 {
		return
	}
	f, err := lookup(pfd.Fd)
	if err != nil {
		pfd.Revents = uabi.POLLNVAL
		return
	}
	state, perr := f.Poll()
	if perr != nil {
		pfd.Revents = uabi.POLLERR
		return
	}
	if pfd.Events&uabi.POLLIN != 0 && state.Readable {
		pfd.Revents |= uabi.POLLIN
	}
	if pfd.Events&uabi.POLLOUT != 0 && state.Writable {
		pfd.Revents |= uabi.POLLOUT
	}
}

// samplePollPass runs one sampling pass over fds, returning the count of
// entries with a nonzero Revents.
func samplePollPass(lookup Lookup, fds []PollFd) int {
	ready := 0
	for i := range fds {
		samplePollFd(lookup, &fds[i])
		if fds[i].Revents != 0 {
			ready++
		}
	}
	return ready
}

// waitLoop runs the cooperative wait loop (spec §4.4): pump the network
// stack, run one sampling pass via sample, and repeat until sample
// reports readiness or the deadline passes. deadline.IsZero means
// infinite wait.
func waitLoop(pump PumpNetwork, deadline time.Time, sample func() int) int {
	if pump == nil {
		pump = noopPump
	}
	for {
		pump()
		n := sample()
		if n > 0 {
			return n
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0
		}
		time.Sleep(tick)
	}
}

// Poll implements poll(2) over fds with a millisecond timeout (negative =
// infinite, 0 = one pass then return).
func Poll(lookup Lookup, pump PumpNetwork, fds []PollFd, timeoutMs int64) (int, error) {
	if len(fds) == 0 {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return 0, nil
	}

	sample := func() int { return samplePollPass(lookup, fds) }

	if timeoutMs == 0 {
		return sample(), nil
	}
	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}
	return waitLoop(pump, deadline, sample), nil
}

// PPoll implements ppoll(2): a nanosecond timeout, nil meaning infinite.
// sigmask is accepted for ABI shape and ignored outright — this kernel
// has no signal-delivery model (spec Non-goals; see the original's
// identical treatment in io_mpx/poll.rs).
func PPoll(lookup Lookup, pump PumpNetwork, fds []PollFd, timeout *time.Duration, sigmask *uabi.Sigset) (int, error) {
	sample := func() int { return samplePollPass(lookup, fds) }
	if timeout != nil && *timeout == 0 {
		return sample(), nil
	}
	var deadline time.Time
	if timeout != nil {
		deadline = time.Now().Add(*timeout)
	}
	return waitLoop(pump, deadline, sample), nil
}
