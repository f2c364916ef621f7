package loader

import (
	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/internal/klog"
	"github.com/nyx-tron/freeos/uabi"
)

// AddressSpace is the MMU/address-space collaborator execve commits a
// load plan into (spec §1 excludes the page allocator/MMU itself; this
// package only contracts against the interface it needs).
type AddressSpace interface {
	// UnmapAll removes every user mapping, preparing for a fresh image.
	UnmapAll() error
	// MapAnon maps a fresh zero-filled anonymous region at va of the
	// given size with the given protection.
	MapAnon(va uintptr, size uintptr, writable, executable bool) error
	// WriteAt copies data into already-mapped user memory at va.
	WriteAt(va uintptr, data []byte) error
}

// Task is the process/task collaborator execve updates after a
// successful commit (spec §1 excludes the task model itself).
type Task struct {
	SetName    func(name string)
	SetExePath func(path string)
	SetIPSP    func(ip, sp uintptr)
}

// Commit maps plan's segments, the user stack and the user heap into as,
// builds the stack image, and rewrites the task's trap frame (spec §4.6
// steps 3-5).
//
// Preconditions: the caller has already validated plan fully (step 1-2
// complete) — spec §7 documents that a failure after UnmapAll is fatal
// to the process, so callers must never call Commit speculatively.
func Commit(as AddressSpace, plan LoadPlan, task Task, argv, envp []string) error {
	if err := as.UnmapAll(); err != nil {
		return errno.Wrap(errno.ENOMEM, "unmap user areas for %s: %v", plan.Path, err)
	}

	for _, seg := range plan.Segments {
		if err := as.MapAnon(seg.VAddrBase, seg.Size, seg.Writable, seg.Executable); err != nil {
			return errno.Wrap(errno.ENOMEM, "map PT_LOAD segment for %s: %v", plan.Path, err)
		}
		if len(seg.FileBytes) > 0 {
			if err := as.WriteAt(seg.VAddrBase, seg.FileBytes); err != nil {
				return errno.Wrap(errno.ENOMEM, "populate PT_LOAD segment for %s: %v", plan.Path, err)
			}
		}
	}

	stackBase := uintptr(uabi.UserStackTop - uabi.UserStackSize)
	if err := as.MapAnon(stackBase, uabi.UserStackSize, true, false); err != nil {
		return errno.Wrap(errno.ENOMEM, "map user stack for %s: %v", plan.Path, err)
	}
	if err := as.MapAnon(uabi.UserHeapBase, uabi.UserHeapSize, true, false); err != nil {
		return errno.Wrap(errno.ENOMEM, "map user heap for %s: %v", plan.Path, err)
	}

	image, err := BuildStackImage(plan, 0, 0, 0, argv, envp)
	if err != nil {
		return errno.Wrap(errno.ENOMEM, "build stack image for %s: %v", plan.Path, err)
	}
	if err := as.WriteAt(image.SP, image.Bytes); err != nil {
		return errno.Wrap(errno.ENOMEM, "write stack image for %s: %v", plan.Path, err)
	}

	name := baseName(plan.OrigPath)
	task.SetName(name)
	task.SetExePath(plan.OrigPath)
	task.SetIPSP(plan.Entry, image.SP)

	klog.Infof(nil, "execve committed %s entry=%#x sp=%#x", plan.Path, plan.Entry, image.SP)
	return nil
}

// taskCommNameMax is TASK_COMM_LEN - 1, the longest name a task can be
// renamed to (spec §4.6 step 4).
const taskCommNameMax = 15

func baseName(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	name := path[i+1:]
	if len(name) > taskCommNameMax {
		name = name[:taskCommNameMax]
	}
	return name
}
