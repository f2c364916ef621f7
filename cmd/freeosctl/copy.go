package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/splice"
	"github.com/nyx-tron/freeos/vfs"
)

func newCopyCmd() *cobra.Command {
	var length int64
	cmd := &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "copy_file_range between two real files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()
			dst, err := os.OpenFile(args[1], os.O_RDWR|os.O_CREATE, 0o644)
			if err != nil {
				return err
			}
			defer dst.Close()

			if length == 0 {
				fi, err := src.Stat()
				if err != nil {
					return err
				}
				length = fi.Size()
			}

			adviseSequential(int(src.Fd()), length)

			fin := vfs.NewRegular(args[0], newFileBacking(int(src.Fd())))
			fout := vfs.NewRegular(args[1], newFileBacking(int(dst.Fd())))

			n, err := splice.CopyFileRange(fin, fout, nil, nil, length)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d bytes\n", n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&length, "len", 0, "bytes to copy (0 = whole source file)")
	return cmd
}

// adviseSequential hints the kernel's readahead the way
// backend/local/fadvise_unix.go does around its own bulk reads, before
// streaming a whole-file copy through the bounce buffer.
func adviseSequential(fd int, size int64) {
	_ = unix.Fadvise(fd, 0, size, unix.FADV_SEQUENTIAL)
}
