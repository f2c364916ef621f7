package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/shm"
	"github.com/nyx-tron/freeos/uabi"
)

func newShmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shm-demo",
		Short: "run the shmget/shmat/shmctl/shmdt lifecycle from spec scenario S4",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			mgr := shm.NewManager()
			as := newBumpAddressSpace()
			table := make(map[uintptr]shm.Attachment)

			id, err := mgr.Get(uabi.IPCPrivate, uabi.PageSize, 0o600)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "shmget(IPC_PRIVATE, 4096, 0600) -> id=%d\n", id)

			addr, err := mgr.Attach(as, id, 0, 0, false)
			if err != nil {
				return err
			}
			table[addr] = shm.Attachment{Addr: addr, ID: id}
			fmt.Fprintf(out, "shmat(%d, NULL, 0) -> addr=%#x\n", id, addr)

			if err := mgr.Ctl(id, uabi.IPC_RMID, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(out, "shmctl(id, IPC_RMID, NULL) -> 0")

			if _, err := mgr.Attach(as, id, 0, 0, false); err != nil {
				fmt.Fprintf(out, "shmat(%d, ...) after RMID -> %v (expected EIDRM)\n", id, err)
			}

			st := mgr.Stats()
			fmt.Fprintf(out, "live segments=%d total pages=%d\n", st.LiveSegments, st.TotalPages)

			if err := mgr.Detach(as, table, addr); err != nil {
				return err
			}
			fmt.Fprintln(out, "shmdt(addr) -> 0")

			st = mgr.Stats()
			fmt.Fprintf(out, "live segments=%d total pages=%d (segment reclaimed)\n", st.LiveSegments, st.TotalPages)

			if err := mgr.Ctl(id, uabi.IPC_STAT, func(*shm.Segment) error { return nil }, nil); err != nil {
				fmt.Fprintf(out, "shmctl(id, IPC_STAT, buf) after reclaim -> %v (expected error)\n", err)
			}
			return nil
		},
	}
}
