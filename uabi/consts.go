// Package uabi holds the user-visible ABI constants this kernel exposes:
// the subset of Linux's numeric contract (flags, struct field values,
// remap tables) that callers rely on bit-for-bit.
package uabi

// Special directory-fd value meaning "resolve relative to the current
// working directory" for the *at family of syscalls.
const ATFDCWD = -100

// faccessat/unlinkat/fstatat flag bits.
const (
	AT_REMOVEDIR        = 0x200
	AT_EMPTY_PATH       = 0x1000
	AT_SYMLINK_NOFOLLOW = 0x100
)

// FDSetSize is the fixed capacity of a select(2) fd_set.
const FDSetSize = 1024

// poll(2) event bits.
const (
	POLLIN   = 0x001
	POLLOUT  = 0x004
	POLLERR  = 0x008
	POLLNVAL = 0x020
)

// epoll(2) event bits and epoll_ctl ops.
const (
	EPOLLIN  = 0x001
	EPOLLOUT = 0x004
	EPOLLERR = 0x008
)

const (
	EPOLL_CTL_ADD = 1
	EPOLL_CTL_MOD = 3
	EPOLL_CTL_DEL = 2
)

// System V shm flags and ctl commands.
const (
	IPC_CREAT  = 0o1000
	IPC_EXCL   = 0o2000
	SHM_RND    = 0o20000
	SHM_RDONLY = 0o10000
	IPCPrivate = 0

	IPC_RMID = 0
	IPC_SET  = 1
	IPC_STAT = 2
)

// PageSize is the fixed 4 KiB page granularity this kernel maps shm
// segments, stacks, heaps and PT_LOAD segments in.
const PageSize = 4096

// ShmMaxBytes is the upper bound on a single shmget request (spec §4.7).
const ShmMaxBytes = 1 << 30

// Termios is the layout fstat/ioctl(TCGETS) callers expect back; this
// kernel never models real line discipline so every fd reports the same
// static value (spec §6).
type Termios struct {
	Iflag uint32
	Oflag uint32
	Cflag uint32
	Lflag uint32
	Line  uint8
	Cc    [19]uint8
}

// DefaultTermios is the literal static value anchoring ioctl(TCGETS)
// tests (spec §8).
var DefaultTermios = Termios{
	Iflag: 0x500,
	Oflag: 0x5,
	Cflag: 0xbf,
	Lflag: 0x8a3b,
	Line:  0,
	Cc: [19]uint8{
		3, 28, 127, 21, 4, 0, 1, 0, 17, 19, 26, 0, 18, 15, 23, 22, 0, 0, 0,
	},
}

// InterpreterRemap maps well-known dynamic-linker paths baked into
// upstream ELF binaries to the single musl libc this kernel actually
// ships (spec §4.6, §6).
var InterpreterRemap = map[string]string{
	"/lib/ld-linux-riscv64-lp64.so.1":       "/musl/lib/libc.so",
	"/lib/ld-linux-riscv64-lp64d.so.1":      "/musl/lib/libc.so",
	"/lib64/ld-linux-loongarch-lp64d.so.1":  "/musl/lib/libc.so",
	"/lib64/ld-linux-x86-64.so.2":           "/musl/lib/libc.so",
	"/lib/ld-linux-aarch64.so.1":            "/musl/lib/libc.so",
}

// DT_* directory entry type codes (getdents64 d_type field).
const (
	DT_UNKNOWN = 0
	DT_FIFO    = 1
	DT_CHR     = 2
	DT_DIR     = 4
	DT_BLK     = 6
	DT_REG     = 8
	DT_LNK     = 10
	DT_SOCK    = 12
)

// USER_STACK_TOP, USER_STACK_SIZE, USER_HEAP_BASE and USER_HEAP_SIZE
// are the fixed layout constants execve maps the initial stack and
// brk-able heap at (spec §4.6). Chosen in the low canonical half of a
// 48-bit address space well clear of typical PT_LOAD base addresses.
const (
	UserStackTop  = 0x7ffffffff000
	UserStackSize = 8 * 1024 * 1024
	UserHeapBase  = 0x555555550000
	UserHeapSize  = 64 * 1024 * 1024
)

// AuxvEntries is the fixed number of auxv entries execve always writes
// (spec §3, §4.6).
const AuxvEntries = 17

// Sigset mirrors the kernel_sigset_t ppoll/pselect6/epoll_pwait accept.
// This kernel has no signal-delivery model (spec Non-goals), so every
// multiplexing call that takes one stores it nowhere and never consults
// it; the parameter stays in the call signatures only so they remain
// ABI-shaped against the syscalls they implement.
type Sigset struct {
	Bits [16]byte
}
