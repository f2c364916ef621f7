package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/uabi"
)

// fakeAddressSpace is a trivial bump allocator standing in for the real
// MMU collaborator this package is deliberately decoupled from.
type fakeAddressSpace struct {
	mapped map[uintptr]uintptr // va -> size
	next   uintptr
}

func newFakeAddressSpace() *fakeAddressSpace {
	return &fakeAddressSpace{mapped: make(map[uintptr]uintptr), next: 0x700000000000}
}

func (f *fakeAddressSpace) IsMapped(va, size uintptr) bool {
	for existingVA, existingSize := range f.mapped {
		if va < existingVA+existingSize && existingVA < va+size {
			return true
		}
	}
	return false
}

func (f *fakeAddressSpace) FreeRange(size, hint uintptr) (uintptr, error) {
	va := f.next
	f.next += size
	return va, nil
}

func (f *fakeAddressSpace) MapFixed(va, size uintptr, writable bool) error {
	f.mapped[va] = size
	return nil
}

func (f *fakeAddressSpace) Unmap(va, size uintptr) error {
	delete(f.mapped, va)
	return nil
}

func TestGetPrivateAlwaysFresh(t *testing.T) {
	m := NewManager()
	id1, err := m.Get(uabi.IPCPrivate, 4096, 0o600)
	require.NoError(t, err)
	id2, err := m.Get(uabi.IPCPrivate, 4096, 0o600)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestGetByKeyExclExists(t *testing.T) {
	m := NewManager()
	_, err := m.Get(42, 4096, uabi.IPC_CREAT|0o600)
	require.NoError(t, err)

	_, err = m.Get(42, 4096, uabi.IPC_CREAT|uabi.IPC_EXCL|0o600)
	assert.ErrorIs(t, err, errno.EEXIST)
}

func TestGetByKeyNotFoundWithoutCreate(t *testing.T) {
	m := NewManager()
	_, err := m.Get(7, 4096, 0o600)
	assert.ErrorIs(t, err, errno.ENOENT)
}

func TestGetSizeTooLargeIsEINVAL(t *testing.T) {
	m := NewManager()
	_, err := m.Get(uabi.IPCPrivate, uabi.ShmMaxBytes+1, 0o600)
	assert.ErrorIs(t, err, errno.EINVAL)
}

func TestGetZeroSizeNonPrivateIsEINVAL(t *testing.T) {
	m := NewManager()
	_, err := m.Get(9, 0, uabi.IPC_CREAT|0o600)
	assert.ErrorIs(t, err, errno.EINVAL)
}

// TestShmLifecycle follows S4 exactly: create, attach, mark for
// removal, attach-by-id now EIDRM, detach succeeds and frees the
// segment, a subsequent stat fails.
func TestShmLifecycle(t *testing.T) {
	m := NewManager()
	as := newFakeAddressSpace()

	id, err := m.Get(uabi.IPCPrivate, 4096, 0o600)
	require.NoError(t, err)
	assert.Greater(t, id, int32(0))

	table := make(map[uintptr]Attachment)
	addr, err := m.Attach(as, id, 0, 0, false)
	require.NoError(t, err)
	assert.NotZero(t, addr)
	assert.Zero(t, addr%uabi.PageSize)
	table[addr] = Attachment{Addr: addr, ID: id}

	err = m.Ctl(id, uabi.IPC_RMID, nil, nil)
	require.NoError(t, err)

	_, err = m.Attach(as, id, 0, 0, false)
	assert.ErrorIs(t, err, errno.EIDRM)

	err = m.Detach(as, table, addr)
	require.NoError(t, err)
	assert.Empty(t, table)

	err = m.Ctl(id, uabi.IPC_STAT, func(*Segment) error { return nil }, nil)
	assert.Error(t, err)
}

// TestShmDeferredDelete covers Property 6: after RMID with nattch > 0,
// shmget by key is ENOENT but the segment survives until detach.
func TestShmDeferredDelete(t *testing.T) {
	m := NewManager()
	as := newFakeAddressSpace()

	id, err := m.Get(99, 4096, uabi.IPC_CREAT|0o600)
	require.NoError(t, err)

	table := make(map[uintptr]Attachment)
	addr, err := m.Attach(as, id, 0, 0, false)
	require.NoError(t, err)
	table[addr] = Attachment{Addr: addr, ID: id}

	require.NoError(t, m.Ctl(id, uabi.IPC_RMID, nil, nil))

	_, err = m.Get(99, 4096, uabi.IPC_CREAT|0o600)
	assert.ErrorIs(t, err, errno.ENOENT)

	before := m.Stats()
	assert.Equal(t, 1, before.LiveSegments)

	require.NoError(t, m.Detach(as, table, addr))

	after := m.Stats()
	assert.Equal(t, 0, after.LiveSegments)
}

// TestShmConservation is Property 5: total live pages tracked by Stats
// matches exactly what was requested, rounded up to the page.
func TestShmConservation(t *testing.T) {
	m := NewManager()
	_, err := m.Get(uabi.IPCPrivate, 1, 0o600)
	require.NoError(t, err)
	_, err = m.Get(uabi.IPCPrivate, uabi.PageSize+1, 0o600)
	require.NoError(t, err)

	st := m.Stats()
	assert.Equal(t, 2, st.LiveSegments)
	assert.EqualValues(t, 1+2, st.TotalPages)
}

func TestAttachNegativeIDIsEINVAL(t *testing.T) {
	m := NewManager()
	as := newFakeAddressSpace()
	_, err := m.Attach(as, -1, 0, 0, false)
	assert.ErrorIs(t, err, errno.EINVAL)
}

func TestAttachPermissionDenied(t *testing.T) {
	m := NewManager()
	as := newFakeAddressSpace()
	id, err := m.Get(uabi.IPCPrivate, 4096, 0o400)
	require.NoError(t, err)

	_, err = m.Attach(as, id, 0, 0, false)
	assert.ErrorIs(t, err, errno.EACCES)

	_, err = m.Attach(as, id, 0, 0, true)
	assert.NoError(t, err)
}

func TestDetachUnknownAddrIsEINVAL(t *testing.T) {
	m := NewManager()
	as := newFakeAddressSpace()
	table := make(map[uintptr]Attachment)
	err := m.Detach(as, table, 0x1234)
	assert.ErrorIs(t, err, errno.EINVAL)
}
