// Package shm is the System V shared-memory manager: a keyed segment
// registry, id allocation, per-segment attachment tracking, and deferred
// deletion (spec §4.7).
package shm

import (
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/internal/klog"
	"github.com/nyx-tron/freeos/uabi"
)

// Segment is a shared-memory segment's mutable metadata (spec §3).
// Physical backing itself is held by the AddressSpace collaborator this
// package is handed; Segment only tracks the bookkeeping.
type Segment struct {
	mu sync.Mutex

	ID     int32
	Key    int32
	Size   int64
	Mode   uint32
	UID    uint32
	GID    uint32
	CreatorPID int32
	LastPID    int32
	ATime, DTime, CTime time.Time
	AttachCount int32
	MarkedForDeletion bool
}

func (s *Segment) String() string { return "shmseg" }

// Pages returns the segment's size rounded up to 4 KiB pages, the unit
// Property 5 (shm conservation) is stated in.
func (s *Segment) Pages() int64 {
	return (s.Size + uabi.PageSize - 1) / uabi.PageSize
}

// Manager is the keyed segment registry: segments: id -> segment,
// key_to_id: key -> id (excluding IPC_PRIVATE), next_id counter (spec
// §4.7). Grounded on backend/cache/storage_memory.go's Memory type (a
// keyed in-memory store wrapping go-cache) and storage_persistent.go's
// attach/detach bookkeeping, generalized from an LRU object-chunk cache
// to an id/key registry with attach counts and deferred deletion.
type Manager struct {
	mu       sync.Mutex
	segments map[int32]*Segment
	byKey    map[int32]int32
	nextID   int32

	// negativeLookup records ids that were recently removed, with a
	// short expiry — mirrors storage_memory.go's Memory wrapping
	// go-cache. removeLocked writes to it; no lookup path (Attach,
	// Detach, Ctl, Lookup) reads it.
	negativeLookup *cache.Cache
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{
		segments:       make(map[int32]*Segment),
		byKey:          make(map[int32]int32),
		nextID:         1,
		negativeLookup: cache.New(time.Minute, 2*time.Minute),
	}
}

// Stats reports the live segment count and total physical pages held,
// an observability helper supplementing spec.md (see SPEC_FULL.md §4),
// directly useful for testing Property 5 (shm conservation).
type Stats struct {
	LiveSegments int
	TotalPages   int64
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st Stats
	for _, seg := range m.segments {
		st.LiveSegments++
		st.TotalPages += seg.Pages()
	}
	return st
}

// allocID picks the next free id, wrapping at i32::MAX back to 1 and
// probing up to 1000 slots (spec §4.7). Must be called with m.mu held.
func (m *Manager) allocID() (int32, error) {
	if len(m.segments) > (1<<31-1)/2 {
		return 0, errno.ENOMEM
	}
	id := m.nextID
	for i := 0; i < 1000; i++ {
		if id <= 0 {
			id = 1
		}
		if _, taken := m.segments[id]; !taken {
			m.nextID = id + 1
			if m.nextID <= 0 {
				m.nextID = 1
			}
			return id, nil
		}
		id++
	}
	return 0, errno.ENOMEM
}

// Get implements shmget(key, size, flags) (spec §4.7).
func (m *Manager) Get(key int32, size int64, flags int) (int32, error) {
	if size > uabi.ShmMaxBytes || (size == 0 && key != uabi.IPCPrivate) {
		return 0, errno.EINVAL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if key == uabi.IPCPrivate {
		return m.create(uabi.IPCPrivate, size, flags, false)
	}

	if id, ok := m.byKey[key]; ok {
		seg := m.segments[id]
		if flags&uabi.IPC_EXCL != 0 {
			return 0, errno.EEXIST
		}
		seg.mu.Lock()
		deleted := seg.MarkedForDeletion
		seg.mu.Unlock()
		if deleted {
			return 0, errno.ENOENT
		}
		return id, nil
	}

	if flags&uabi.IPC_CREAT != 0 {
		return m.create(key, size, flags, true)
	}
	return 0, errno.ENOENT
}

func (m *Manager) create(key int32, size int64, flags int, indexByKey bool) (int32, error) {
	id, err := m.allocID()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	seg := &Segment{
		ID:     id,
		Key:    key,
		Size:   size,
		Mode:   uint32(flags) & 0o777,
		CTime:  now,
	}
	m.segments[id] = seg
	if indexByKey {
		m.byKey[key] = id
	}
	klog.Debugf(seg, "shmget created segment id=%d key=%d size=%d", id, key, size)
	return id, nil
}

// removeLocked deletes id from the registry. Must be called with m.mu held.
func (m *Manager) removeLocked(seg *Segment) {
	delete(m.segments, seg.ID)
	if seg.Key != uabi.IPCPrivate {
		delete(m.byKey, seg.Key)
	}
	m.negativeLookup.Set(segIDKey(seg.ID), true, cache.DefaultExpiration)
}

func segIDKey(id int32) string {
	return "removed:" + strconv.FormatInt(int64(id), 10)
}

// Lookup returns the segment for id, or errno.EINVAL if it doesn't
// exist at all, distinct from the "exists but marked for deletion" case
// callers check separately.
func (m *Manager) Lookup(id int32) (*Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.segments[id]
	if !ok {
		return nil, errno.EINVAL
	}
	return seg, nil
}

// wantMode is the 3-bit read(4)/write(6) permission a subscriber needs,
// checked against the segment's mode bits, ignoring the owner/group/
// other distinction since this kernel has a single-tenant uid/gid model
// (spec §4.7 "using mode bits in owner/group/other triples").
func wantMode(readOnly bool) uint32 {
	if readOnly {
		return 0o4
	}
	return 0o6
}

// AddressSpace is the collaborator shmat/shmdt map/unmap physical shm
// ranges through, one fixed-size region at a time. It is a separate
// interface from loader.AddressSpace (MapAnon/UnmapAll/WriteAt).
type AddressSpace interface {
	IsMapped(va uintptr, size uintptr) bool
	FreeRange(size uintptr, hint uintptr) (uintptr, error)
	MapFixed(va uintptr, size uintptr, writable bool) error
	Unmap(va uintptr, size uintptr) error
}

// Attachment records one process's mapping of a segment at a vaddr
// (spec §3 "Per-process shm table").
type Attachment struct {
	Addr uintptr
	ID   int32
}

// Attach implements shmat(id, hintAddr, flags) (spec §4.7).
func (m *Manager) Attach(as AddressSpace, id int32, hintAddr uintptr, flags int, readOnly bool) (uintptr, error) {
	if id < 0 {
		return 0, errno.EINVAL
	}
	rnd := flags&uabi.SHM_RND != 0
	if rnd && hintAddr == 0 {
		return 0, errno.EINVAL
	}
	if !rnd && hintAddr != 0 && hintAddr%uabi.PageSize != 0 {
		return 0, errno.EINVAL
	}

	m.mu.Lock()
	seg, ok := m.segments[id]
	m.mu.Unlock()
	if !ok {
		return 0, errno.EINVAL
	}

	seg.mu.Lock()
	if seg.MarkedForDeletion {
		seg.mu.Unlock()
		return 0, errno.EIDRM
	}
	want := wantMode(readOnly)
	perm := (seg.Mode | seg.Mode>>3 | seg.Mode>>6) & 0o7
	if perm&want != want {
		seg.mu.Unlock()
		return 0, errno.EACCES
	}
	seg.AttachCount++
	seg.mu.Unlock()

	rollback := func() {
		seg.mu.Lock()
		seg.AttachCount--
		seg.mu.Unlock()
	}

	size := uintptr(seg.Pages() * uabi.PageSize)
	var addr uintptr
	var err error
	switch {
	case rnd:
		addr = hintAddr &^ (uabi.PageSize - 1)
		if as.IsMapped(addr, size) {
			rollback()
			return 0, errno.EINVAL
		}
	case hintAddr != 0 && as.IsMapped(hintAddr, size):
		rollback()
		return 0, errno.EINVAL
	case hintAddr != 0:
		addr = hintAddr
	default:
		addr, err = as.FreeRange(size, hintAddr)
		if err != nil {
			rollback()
			return 0, err
		}
	}

	if err := as.MapFixed(addr, size, !readOnly && flags&uabi.SHM_RDONLY == 0); err != nil {
		rollback()
		return 0, err
	}

	seg.mu.Lock()
	seg.ATime = time.Now()
	seg.mu.Unlock()
	klog.Debugf(seg, "shmat id=%d addr=%#x size=%d", id, addr, size)
	return addr, nil
}

// Detach implements shmdt(addr) against the caller's attachment table
// (spec §4.7). table maps attached vaddr to the attachment record;
// callers own that table since it's per-process state, not this
// registry's.
func (m *Manager) Detach(as AddressSpace, table map[uintptr]Attachment, addr uintptr) error {
	att, ok := table[addr]
	if !ok {
		return errno.EINVAL
	}
	m.mu.Lock()
	seg, ok := m.segments[att.ID]
	m.mu.Unlock()
	if !ok {
		delete(table, addr)
		return nil
	}

	size := uintptr(seg.Pages() * uabi.PageSize)
	if err := as.Unmap(addr, size); err != nil {
		return err
	}
	delete(table, addr)

	seg.mu.Lock()
	seg.AttachCount--
	seg.DTime = time.Now()
	shouldRemove := seg.MarkedForDeletion && seg.AttachCount == 0
	seg.mu.Unlock()

	if shouldRemove {
		m.mu.Lock()
		m.removeLocked(seg)
		m.mu.Unlock()
	}
	return nil
}

// Ctl implements shmctl(id, cmd, ...) for the RMID/STAT/SET commands
// (spec §4.7). Stat and Set are modeled as callbacks since the
// shmid_ds buffer layout is a caller/upointer concern, not this
// package's.
func (m *Manager) Ctl(id int32, cmd int, onStat func(*Segment) error, onSet func(*Segment) error) error {
	m.mu.Lock()
	seg, ok := m.segments[id]
	m.mu.Unlock()
	if !ok {
		return errno.EINVAL
	}

	switch cmd {
	case uabi.IPC_RMID:
		seg.mu.Lock()
		seg.MarkedForDeletion = true
		count := seg.AttachCount
		seg.mu.Unlock()
		if count == 0 {
			m.mu.Lock()
			m.removeLocked(seg)
			m.mu.Unlock()
		}
		return nil
	case uabi.IPC_STAT:
		if onStat == nil {
			return errno.EFAULT
		}
		seg.mu.Lock()
		defer seg.mu.Unlock()
		return onStat(seg)
	case uabi.IPC_SET:
		if onSet == nil {
			return errno.EINVAL
		}
		seg.mu.Lock()
		defer seg.mu.Unlock()
		seg.CTime = time.Now()
		return onSet(seg)
	default:
		return errno.EINVAL
	}
}
