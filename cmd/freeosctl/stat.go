package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/pathstat"
	"github.com/nyx-tron/freeos/uabi"
)

func newStatCmd() *cobra.Command {
	var noFollow bool
	cmd := &cobra.Command{
		Use:   "stat <path>",
		Short: "stat/lstat a path, per spec section 4.9",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := hostMetadata{}
			flags := 0
			if noFollow {
				flags |= uabi.AT_SYMLINK_NOFOLLOW
			}
			st, err := pathstat.Fstatat(m, nil, uabi.ATFDCWD, args[0], flags)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"ino=%d dev=%d mode=%o size=%d mtime=%s\n",
				st.Ino, st.Dev, st.Mode, st.Size, st.MTime)
			if xattrs, err := listXattrs(args[0]); err == nil && len(xattrs) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "xattrs:")
				for k, v := range xattrs {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s=%q\n", k, v)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&noFollow, "no-follow", "L", false, "AT_SYMLINK_NOFOLLOW (lstat semantics)")
	return cmd
}
