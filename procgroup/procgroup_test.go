package procgroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyx-tron/freeos/errno"
)

// fakeDirectory is an in-memory process/group/session table for tests.
type fakeDirectory struct {
	procs       map[int32]Process
	groupSess   map[int32]int32 // pgid -> session
	joinRefuses map[int32]bool  // pgid -> JoinGroup always fails
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		procs:       make(map[int32]Process),
		groupSess:   make(map[int32]int32),
		joinRefuses: make(map[int32]bool),
	}
}

func (d *fakeDirectory) add(p Process) {
	d.procs[p.PID] = p
	if _, ok := d.groupSess[p.PGID]; !ok {
		d.groupSess[p.PGID] = p.Session
	}
}

func (d *fakeDirectory) Lookup(pid int32) (Process, bool) {
	p, ok := d.procs[pid]
	return p, ok
}

func (d *fakeDirectory) GroupExists(pgid int32) (int32, bool) {
	session, ok := d.groupSess[pgid]
	return session, ok
}

func (d *fakeDirectory) CreateGroup(pid int32) error {
	p := d.procs[pid]
	d.groupSess[pid] = p.Session
	p.PGID = pid
	d.procs[pid] = p
	return nil
}

func (d *fakeDirectory) JoinGroup(pid int32, pgid int32) error {
	if d.joinRefuses[pgid] {
		return errno.EPERM
	}
	p := d.procs[pid]
	p.PGID = pgid
	d.procs[pid] = p
	return nil
}

func TestSetpgidNoopWhenAlreadyMember(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})

	err := Setpgid(d, 1, 1, 1)
	assert.NoError(t, err)
}

func TestSetpgidRejectsNonChildTarget(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})
	d.add(Process{PID: 2, PPID: 99, PGID: 3, Session: 1}) // not caller's child

	err := Setpgid(d, 1, 2, 2)
	assert.ErrorIs(t, err, errno.ESRCH)
}

func TestSetpgidRejectsCrossSession(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})
	d.add(Process{PID: 2, PPID: 1, PGID: 3, Session: 2})

	err := Setpgid(d, 1, 2, 0)
	assert.ErrorIs(t, err, errno.EPERM)
}

func TestSetpgidCreatesNewGroup(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})
	d.add(Process{PID: 2, PPID: 1, PGID: 1, Session: 1})

	err := Setpgid(d, 1, 2, 2)
	require.NoError(t, err)
	p, _ := d.Lookup(2)
	assert.EqualValues(t, 2, p.PGID)
}

func TestSetpgidJoinsExistingGroup(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})
	d.add(Process{PID: 2, PPID: 0, PGID: 2, Session: 1})
	d.add(Process{PID: 3, PPID: 1, PGID: 3, Session: 1})

	err := Setpgid(d, 1, 3, 2)
	require.NoError(t, err)
	p, _ := d.Lookup(3)
	assert.EqualValues(t, 2, p.PGID)
}

func TestSetpgidJoinNonexistentGroupIsEPERM(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})

	err := Setpgid(d, 1, 1, 42)
	assert.ErrorIs(t, err, errno.EPERM)
}

func TestSetpgidJoinRefusedByTarget(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})
	d.add(Process{PID: 2, PPID: 0, PGID: 2, Session: 1})
	d.joinRefuses[2] = true

	err := Setpgid(d, 1, 1, 2)
	assert.ErrorIs(t, err, errno.EPERM)
}

func TestSetpgidUnknownTargetIsESRCH(t *testing.T) {
	d := newFakeDirectory()
	d.add(Process{PID: 1, PPID: 0, PGID: 1, Session: 1})

	err := Setpgid(d, 1, 77, 0)
	assert.ErrorIs(t, err, errno.ESRCH)
}
