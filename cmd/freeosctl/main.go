// Command freeosctl is a demo/test harness cobra CLI that exercises the
// syscall-core packages (vfs, dirent, iomux, splice, shm, loader,
// procgroup, pathstat) against real host files and a bump-allocated
// in-memory address-space fixture. It is not an init process: every
// collaborator interface these packages leave abstract (the raw VFS,
// the MMU, the task/process table) is satisfied here by a small fixture
// rather than a real kernel.
//
// Grounded on the teacher's own cobra wiring style (rclone go.mod
// carries spf13/cobra + spf13/pflag as direct dependencies for its own
// `cmd/` tree, which this retrieval's filtering dropped before it could
// be adapted file-by-file — so the RunE/PersistentFlags shape here
// follows the well-known cobra idiom rather than a specific pack file;
// see DESIGN.md).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/internal/klog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "freeosctl",
		Short:         "exercise the freeos syscall core against real files",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return klog.SetLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")

	root.AddCommand(
		newLsCmd(),
		newStatCmd(),
		newCopyCmd(),
		newShmCmd(),
		newPipeCmd(),
		newSetpgidCmd(),
		newExecCmd(),
	)
	return root
}
