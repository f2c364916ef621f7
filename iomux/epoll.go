package iomux

import (
	"time"

	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/uabi"
	"github.com/nyx-tron/freeos/vfs"
)

// EpollEvent is one entry epoll_wait writes into the caller's array.
type EpollEvent struct {
	Events uint32
	Cookie uint64
}

// EpollCtl implements epoll_ctl's ADD/MOD/DEL dispatch (spec §4.4). The
// target fd must resolve to a live file-like or the op is errno.EBADF;
// an unrecognized op is errno.EINVAL.
func EpollCtl(instance *vfs.EpollInstance, lookup Lookup, op int, fd int, entry vfs.WatchEntry) error {
	if _, err := lookup(fd); err != nil {
		return errno.EBADF
	}
	switch op {
	case uabi.EPOLL_CTL_ADD:
		return instance.Add(fd, entry)
	case uabi.EPOLL_CTL_MOD:
		return instance.Mod(fd, entry)
	case uabi.EPOLL_CTL_DEL:
		return instance.Del(fd)
	default:
		return errno.EINVAL
	}
}

// EpollCreate validates size (spec §4.4: "size <= 0 -> InvalidArg") and
// returns a fresh instance.
func EpollCreate(size int) (*vfs.EpollInstance, error) {
	if size <= 0 {
		return nil, errno.EINVAL
	}
	return vfs.NewEpollInstance(), nil
}

// EpollCreate1 ignores flags and returns a fresh instance, the same
// result EpollCreate gives for any valid size.
func EpollCreate1(flags int) (*vfs.EpollInstance, error) {
	return vfs.NewEpollInstance(), nil
}

// EpollWait samples instance's interest map under its lock and emits up
// to maxevents ready events (spec §4.4). timeoutMs is milliseconds,
// negative meaning infinite.
func EpollWait(instance *vfs.EpollInstance, lookup Lookup, pump PumpNetwork, maxevents int, timeoutMs int64) ([]EpollEvent, error) {
	if maxevents <= 0 {
		return nil, errno.EINVAL
	}

	var out []EpollEvent
	sample := func() int {
		out = out[:0]
		watches := instance.Snapshot()
		for fd, w := range watches {
			if len(out) >= maxevents {
				break
			}
			f, err := lookup(fd)
			if err != nil {
				if w.Events != 0 {
					out = append(out, EpollEvent{Events: uabi.EPOLLERR, Cookie: w.Cookie})
				}
				continue
			}
			state, perr := f.Poll()
			if perr != nil {
				out = append(out, EpollEvent{Events: uabi.EPOLLERR, Cookie: w.Cookie})
				continue
			}
			var ev uint32
			if w.Events&uabi.EPOLLIN != 0 && state.Readable {
				ev |= uabi.EPOLLIN
			}
			if w.Events&uabi.EPOLLOUT != 0 && state.Writable {
				ev |= uabi.EPOLLOUT
			}
			if ev != 0 {
				out = append(out, EpollEvent{Events: ev, Cookie: w.Cookie})
			}
		}
		return len(out)
	}

	var deadline time.Time
	if timeoutMs == 0 {
		sample()
		return append([]EpollEvent(nil), out...), nil
	}
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}
	waitLoop(pump, deadline, sample)
	return append([]EpollEvent(nil), out...), nil
}

// EpollPWait implements epoll_pwait(2): identical to EpollWait, plus a
// signal mask accepted for ABI shape and ignored outright — this
// kernel has no signal-delivery model (spec Non-goals; the original's
// io_mpx/epoll.rs treats epoll_pwait's mask the same way).
func EpollPWait(instance *vfs.EpollInstance, lookup Lookup, pump PumpNetwork, maxevents int, timeoutMs int64, sigmask *uabi.Sigset) ([]EpollEvent, error) {
	return EpollWait(instance, lookup, pump, maxevents, timeoutMs)
}
