package iomux

import (
	"testing"
	"time"

	"github.com/nyx-tron/freeos/uabi"
	"github.com/nyx-tron/freeos/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFor(table map[int]vfs.FileLike) Lookup {
	return func(fd int) (vfs.FileLike, error) {
		f, ok := table[fd]
		if !ok {
			return nil, assertEBADF
		}
		return f, nil
	}
}

var assertEBADF = &testErr{}

type testErr struct{}

func (*testErr) Error() string { return "ebadf" }

// S1 — poll timeout.
func TestPollEmptyTimesOut(t *testing.T) {
	start := time.Now()
	n, err := Poll(lookupFor(nil), nil, nil, 25)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

// S2 — select echo: pipe read end fd 5, write end fd 6.
func TestSelectEcho(t *testing.T) {
	read, write := vfs.NewPipe()
	table := map[int]vfs.FileLike{5: read, 6: write}

	_, err := write.Write([]byte("data"))
	require.NoError(t, err)

	rfds := NewFdSet()
	rfds.Set(5)
	zero := time.Duration(0)

	n, err := Select(lookupFor(table), nil, 6, rfds, nil, nil, &zero)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, rfds.IsSet(5))
	assert.False(t, rfds.IsSet(6))
}

// Property 3 — select roundtrip: nothing ready, timeout 0 -> all-zero sets.
func TestSelectNothingReadyZerosOutputs(t *testing.T) {
	read, _ := vfs.NewPipe()
	table := map[int]vfs.FileLike{5: read}

	rfds := NewFdSet()
	rfds.Set(5)
	zero := time.Duration(0)

	n, err := Select(lookupFor(table), nil, 6, rfds, nil, nil, &zero)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, rfds.IsSet(5))
}

func TestSelectNegativeNfds(t *testing.T) {
	zero := time.Duration(0)
	_, err := Select(lookupFor(nil), nil, -1, nil, nil, nil, &zero)
	assert.Error(t, err)
}

// Property 4 — epoll exclusivity.
func TestEpollCtlExclusivity(t *testing.T) {
	read, _ := vfs.NewPipe()
	table := map[int]vfs.FileLike{5: read}
	inst, err := EpollCreate(1)
	require.NoError(t, err)

	require.NoError(t, EpollCtl(inst, lookupFor(table), uabi.EPOLL_CTL_ADD, 5, vfs.WatchEntry{Events: uabi.EPOLLIN}))
	err = EpollCtl(inst, lookupFor(table), uabi.EPOLL_CTL_ADD, 5, vfs.WatchEntry{Events: uabi.EPOLLIN})
	assert.Error(t, err)

	require.NoError(t, EpollCtl(inst, lookupFor(table), uabi.EPOLL_CTL_DEL, 5, vfs.WatchEntry{}))
	err = EpollCtl(inst, lookupFor(table), uabi.EPOLL_CTL_DEL, 5, vfs.WatchEntry{})
	assert.Error(t, err)
}

// S6 — epoll readiness.
func TestEpollWaitReadiness(t *testing.T) {
	read, write := vfs.NewPipe()
	table := map[int]vfs.FileLike{5: read, 6: write}
	inst, err := EpollCreate(1)
	require.NoError(t, err)

	events, err := EpollWait(inst, lookupFor(table), nil, 8, 0)
	require.NoError(t, err)
	assert.Len(t, events, 0)

	require.NoError(t, EpollCtl(inst, lookupFor(table), uabi.EPOLL_CTL_ADD, 5, vfs.WatchEntry{Events: uabi.EPOLLIN}))
	_, err = write.Write([]byte("x"))
	require.NoError(t, err)

	events, err = EpollWait(inst, lookupFor(table), nil, 8, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(uabi.EPOLLIN), events[0].Events)
}

func TestEpollCreateRejectsNonPositiveSize(t *testing.T) {
	_, err := EpollCreate(0)
	assert.Error(t, err)
}

// PPoll/Pselect6/EpollPWait accept a signal mask and ignore it outright.
func TestPPollIgnoresSigmask(t *testing.T) {
	mask := &uabi.Sigset{}
	zero := time.Duration(0)
	n, err := PPoll(lookupFor(nil), nil, nil, &zero, mask)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPselect6IgnoresSigmask(t *testing.T) {
	read, write := vfs.NewPipe()
	table := map[int]vfs.FileLike{5: read, 6: write}
	_, err := write.Write([]byte("data"))
	require.NoError(t, err)

	rfds := NewFdSet()
	rfds.Set(5)
	zero := time.Duration(0)
	mask := &uabi.Sigset{}

	n, err := Pselect6(lookupFor(table), nil, 6, rfds, nil, nil, &zero, mask)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEpollPWaitIgnoresSigmask(t *testing.T) {
	inst, err := EpollCreate(1)
	require.NoError(t, err)
	mask := &uabi.Sigset{}
	events, err := EpollPWait(inst, lookupFor(nil), nil, 8, 0, mask)
	require.NoError(t, err)
	assert.Len(t, events, 0)
}
