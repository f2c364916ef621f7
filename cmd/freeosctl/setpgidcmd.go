package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/procgroup"
)

// memDirectory is a small in-memory process/group/session table, the
// same shape procgroup_test.go's fakeDirectory uses, standing in for
// the excluded task/process model (spec §1).
type memDirectory struct {
	procs     map[int32]procgroup.Process
	groupSess map[int32]int32
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		procs:     make(map[int32]procgroup.Process),
		groupSess: make(map[int32]int32),
	}
}

func (d *memDirectory) add(p procgroup.Process) {
	d.procs[p.PID] = p
	if _, ok := d.groupSess[p.PGID]; !ok {
		d.groupSess[p.PGID] = p.Session
	}
}

func (d *memDirectory) Lookup(pid int32) (procgroup.Process, bool) {
	p, ok := d.procs[pid]
	return p, ok
}

func (d *memDirectory) GroupExists(pgid int32) (int32, bool) {
	s, ok := d.groupSess[pgid]
	return s, ok
}

func (d *memDirectory) CreateGroup(pid int32) error {
	p := d.procs[pid]
	d.groupSess[pid] = p.Session
	p.PGID = pid
	d.procs[pid] = p
	return nil
}

func (d *memDirectory) JoinGroup(pid int32, pgid int32) error {
	p := d.procs[pid]
	p.PGID = pgid
	d.procs[pid] = p
	return nil
}

func newSetpgidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setpgid-demo",
		Short: "run the setpgid rule chain against a toy process table",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir := newMemDirectory()
			dir.add(procgroup.Process{PID: 1, PPID: 0, PGID: 1, Session: 1})
			dir.add(procgroup.Process{PID: 2, PPID: 1, PGID: 1, Session: 1})

			if err := procgroup.Setpgid(dir, 2, 2, 0); err != nil {
				return err
			}
			p, _ := dir.Lookup(2)
			fmt.Fprintf(out, "setpgid(2, 0) -> pid 2 now leads group %d\n", p.PGID)

			dir.add(procgroup.Process{PID: 3, PPID: 1, PGID: 1, Session: 1})
			if err := procgroup.Setpgid(dir, 3, 3, 2); err != nil {
				return err
			}
			p, _ = dir.Lookup(3)
			fmt.Fprintf(out, "setpgid(3, 2) -> pid 3 joined group %d\n", p.PGID)
			return nil
		},
	}
}
