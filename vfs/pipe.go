package vfs

import (
	"sync"

	"github.com/nyx-tron/freeos/errno"
)

// pipeBuf is the shared FIFO byte buffer both ends of a Pipe reference. The
// two PipeEnd handles a process holds are merely views over it, the way
// spec §3 says pipes are "multiply-owned endpoints with internal
// synchronization".
type pipeBuf struct {
	mu           sync.Mutex
	data         []byte
	readClosed   bool
	writeClosed  bool
}

const pipeCapacity = 64 * 1024

// NewPipe returns the read end and write end of a new pipe.
func NewPipe() (read, write *PipeEnd) {
	buf := &pipeBuf{}
	return &PipeEnd{buf: buf, readable: true},
		&PipeEnd{buf: buf, writable: true}
}

// PipeEnd is one direction of a Pipe: readable xor writable.
type PipeEnd struct {
	unsupported
	buf      *pipeBuf
	readable bool
	writable bool
}

func (p *PipeEnd) Kind() Kind     { return KindPipe }
func (p *PipeEnd) String() string { return "pipe" }

// AvailableData returns the number of unread bytes currently buffered.
func (p *PipeEnd) AvailableData() int {
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	return len(p.buf.data)
}

// Closed reports whether the opposite end has been closed.
func (p *PipeEnd) Closed() bool {
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	if p.readable {
		return p.buf.writeClosed
	}
	return p.buf.readClosed
}

func (p *PipeEnd) Readable() bool { return p.readable }
func (p *PipeEnd) Writable() bool { return p.writable }

func (p *PipeEnd) Read(dst []byte) (int, error) {
	if !p.readable {
		return 0, errno.EBADF
	}
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	if len(p.buf.data) == 0 {
		return 0, nil
	}
	n := copy(dst, p.buf.data)
	p.buf.data = p.buf.data[n:]
	return n, nil
}

func (p *PipeEnd) Write(src []byte) (int, error) {
	if !p.writable {
		return 0, errno.EBADF
	}
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	if p.buf.readClosed {
		// spec's errno family has no EPIPE; treat a dead read end the
		// same as a full buffer, a short write of zero.
		return 0, nil
	}
	room := pipeCapacity - len(p.buf.data)
	if room <= 0 {
		return 0, nil
	}
	n := len(src)
	if n > room {
		n = room
	}
	p.buf.data = append(p.buf.data, src[:n]...)
	return n, nil
}

func (p *PipeEnd) Close() {
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	if p.readable {
		p.buf.readClosed = true
	} else {
		p.buf.writeClosed = true
	}
}

func (p *PipeEnd) Poll() (PollState, error) {
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	if p.readable {
		return PollState{Readable: len(p.buf.data) > 0 || p.buf.writeClosed}, nil
	}
	return PollState{Writable: len(p.buf.data) < pipeCapacity || p.buf.readClosed}, nil
}

func (p *PipeEnd) SetNonblocking(nb bool) error { return nil }
