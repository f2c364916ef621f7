package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyx-tron/freeos/iomux"
	"github.com/nyx-tron/freeos/uabi"
	"github.com/nyx-tron/freeos/vfs"
)

func newPipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipe-demo",
		Short: "write to a pipe and observe it with select, poll and epoll",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			table := vfs.NewTable()
			readEnd, writeEnd := vfs.NewPipe()
			rfd := table.Add(readEnd)
			wfd := table.Add(writeEnd)
			fmt.Fprintf(out, "pipe: read fd=%d write fd=%d\n", rfd, wfd)

			if _, err := writeEnd.Write([]byte("data")); err != nil {
				return err
			}

			readfds := iomux.NewFdSet()
			readfds.Set(rfd)
			zero := time.Duration(0)
			n, err := iomux.Select(table.Get, nil, rfd+1, readfds, nil, nil, &zero)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "select: %d ready, read-set has fd %d = %v\n", n, rfd, readfds.IsSet(rfd))

			pfds := []iomux.PollFd{{Fd: rfd, Events: uabi.POLLIN}}
			n, err = iomux.Poll(table.Get, nil, pfds, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "poll: %d ready, revents=%#x\n", n, pfds[0].Revents)

			epi, err := iomux.EpollCreate(1)
			if err != nil {
				return err
			}
			epfd := table.Add(epi)
			if err := iomux.EpollCtl(epi, table.Get, uabi.EPOLL_CTL_ADD, rfd, vfs.WatchEntry{Events: uabi.EPOLLIN, Cookie: 42}); err != nil {
				return err
			}
			events, err := iomux.EpollWait(epi, table.Get, nil, 8, 100)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "epoll_wait: %d event(s), fd=%d\n", len(events), epfd)
			for _, ev := range events {
				fmt.Fprintf(out, "  events=%#x cookie=%d\n", ev.Events, ev.Cookie)
			}
			return nil
		},
	}
}
