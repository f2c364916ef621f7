// Package procgroup implements the process-group/session rules behind
// setpgid (spec §4.8): an ordered rule chain deciding whether the
// caller may move a target process into a (possibly new) group.
package procgroup

import (
	"github.com/nyx-tron/freeos/errno"
)

// Process is the minimal view setpgid needs of a task (spec excludes
// the task/process model itself; this package only contracts against
// the fields its rules read).
type Process struct {
	PID     int32
	PPID    int32
	PGID    int32
	Session int32
}

// Directory is the process/group/session table collaborator setpgid
// consults and mutates. Implementations own the actual process table;
// this package only orchestrates the rule chain against it.
type Directory interface {
	// Lookup returns the process for pid, or ok=false if none exists.
	Lookup(pid int32) (Process, bool)
	// GroupExists reports whether pgid names a live group and, if so,
	// which session it belongs to.
	GroupExists(pgid int32) (session int32, ok bool)
	// CreateGroup makes pid the leader of a brand new group pid itself,
	// inheriting the caller's session. Fails if pid cannot lead a group
	// (e.g. it is already a session leader of a different session).
	CreateGroup(pid int32) error
	// JoinGroup moves pid into the existing group pgid. Fails if pgid
	// does not accept new members (e.g. it has already exec'd, per
	// POSIX's EACCES case, generalized here to a single PermDenied
	// outcome per spec §4.8 rule 5).
	JoinGroup(pid int32, pgid int32) error
}

// Setpgid implements the five ordered rules of spec §4.8. caller is the
// pid issuing the syscall; pid==0 means "self" and pgid==0 means "make
// the target its own group leader".
func Setpgid(dir Directory, callerPID, pid, pgid int32) error {
	targetPID := pid
	if targetPID == 0 {
		targetPID = callerPID
	}

	target, ok := dir.Lookup(targetPID)
	if !ok {
		return errno.ESRCH
	}

	g := pgid
	if g == 0 {
		g = target.PID
	}

	// Rule 1: no-op.
	if g == target.PGID {
		return nil
	}

	// Rule 2: the target must be the caller itself, or the caller's
	// direct child.
	if target.PID != callerPID && target.PPID != callerPID {
		return errno.ESRCH
	}

	caller, ok := dir.Lookup(callerPID)
	if !ok {
		return errno.ESRCH
	}

	// Rule 3: target must share the caller's session.
	if target.Session != caller.Session {
		return errno.EPERM
	}

	// Rule 4: requesting the target's own pid as pgid creates a new
	// group led by the target.
	if g == target.PID {
		if err := dir.CreateGroup(target.PID); err != nil {
			return errno.EPERM
		}
		return nil
	}

	// Rule 5: otherwise pgid must already exist, in the same session,
	// and be willing to accept the target as a member.
	session, exists := dir.GroupExists(g)
	if !exists || session != target.Session {
		return errno.EPERM
	}
	if err := dir.JoinGroup(target.PID, g); err != nil {
		return errno.EPERM
	}
	return nil
}
