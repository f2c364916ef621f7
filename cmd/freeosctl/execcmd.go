package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/loader"
)

// hostFileSource reads real files off disk, satisfying loader.FileSource
// in place of the excluded raw VFS (spec §1).
type hostFileSource struct{}

func (hostFileSource) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec-demo <path> [args...]",
		Short: "resolve and commit an execve load plan for a real file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			argv := append([]string{args[0]}, args[1:]...)

			plan, err := loader.Resolve(hostFileSource{}, args[0], argv)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "resolved plan: path=%s argv=%v entry=%#x interp=%q segments=%d\n",
				plan.Path, plan.Argv, plan.Entry, plan.Interp, len(plan.Segments))

			as := newBumpAddressSpace()
			var name, exePath string
			var ip, sp uintptr
			task := loader.Task{
				SetName:    func(n string) { name = n },
				SetExePath: func(p string) { exePath = p },
				SetIPSP:    func(i, s uintptr) { ip, sp = i, s },
			}
			if err := loader.Commit(as, plan, task, plan.Argv, nil); err != nil {
				return err
			}
			fmt.Fprintf(out, "committed: task name=%s exe=%s entry=%#x sp=%#x\n", name, exePath, ip, sp)
			return nil
		},
	}
}
