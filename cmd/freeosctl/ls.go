package main

import (
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/dirent"
	"github.com/nyx-tron/freeos/vfs"
)

func newLsCmd() *cobra.Command {
	var bufSize int
	cmd := &cobra.Command{
		Use:   "ls <dir>",
		Short: "enumerate a directory via the getdents64 packer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iter, err := newHostDirIterator(args[0])
			if err != nil {
				return err
			}
			dir := vfs.NewDirectory(args[0], iter)
			buf := make([]byte, bufSize)
			calls := 0
			for {
				n, err := dirent.ReadInto(dir, buf)
				calls++
				if err != nil {
					return fmt.Errorf("getdents64 call %d: %w", calls, err)
				}
				if n == 0 {
					break
				}
				printDirentRecords(buf[:n])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d getdents64 call(s)\n", calls)
			return nil
		},
	}
	cmd.Flags().IntVar(&bufSize, "buf", 512, "getdents64 buffer size in bytes")
	return cmd
}

// printDirentRecords walks a packed buffer printing each record's
// reclen/type/name, mirroring how a libc readdir() wrapper would unpack
// the same bytes this kernel's getdents64 produced.
func printDirentRecords(buf []byte) {
	off := 0
	for off < len(buf) {
		reclen := int(binary.LittleEndian.Uint16(buf[off+16 : off+18]))
		dtype := buf[off+18]
		nameStart := off + 19
		nameEnd := nameStart
		for nameEnd < off+reclen && buf[nameEnd] != 0 {
			nameEnd++
		}
		fmt.Printf("  d_type=%d %s\n", dtype, string(buf[nameStart:nameEnd]))
		off += reclen
	}
}
