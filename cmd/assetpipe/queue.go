package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

func newQueueCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the durable outbound queue",
	}

	var dir string
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List queued payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = c.cfg.Queue.Dir
			}
			if dir == "" {
				return errors.New("queue ls needs --queue-dir or queue.dir in the config")
			}

			q, err := openQueue(c, dir)
			if err != nil {
				return err
			}
			defer q.Close()

			recs, err := q.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tAPPLICATION\tTYPE\tBYTES\tQUEUED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					r.ResourceID, r.ApplicationID, mimetype.Detect(r.Payload).String(),
					len(r.Payload), r.EnqueuedAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	ls.Flags().StringVar(&dir, "queue-dir", "", "badger queue directory")

	cmd.AddCommand(ls)
	return cmd
}
