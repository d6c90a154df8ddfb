package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/navikt/dp-datalaster-inntekt/internal/dlq"
)

func newDLQCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect the dead-letter stream",
		Long:  "List, count and purge messages that could not be decoded as packets.",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered messages, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, closeQueue, err := openDLQ(cmd, opts)
			if err != nil {
				return err
			}
			defer closeQueue()

			entries, err := q.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printEntries(opts.printer, entries)
		},
	}
	list.Flags().IntVar(&limit, "limit", 100, "maximum number of entries")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show dead-letter stream statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, closeQueue, err := openDLQ(cmd, opts)
			if err != nil {
				return err
			}
			defer closeQueue()

			s := q.Stats(cmd.Context())
			if opts.printer.Structured() {
				return opts.printer.Encode(s)
			}
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			table := NewTable("KEY", "VALUE")
			for _, k := range keys {
				table.AddRow(k, fmt.Sprint(s[k]))
			}
			opts.printer.Render(table)
			return nil
		},
	}

	var yes bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove every dead-lettered message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge without --yes")
			}
			q, closeQueue, err := openDLQ(cmd, opts)
			if err != nil {
				return err
			}
			defer closeQueue()

			if err := q.Purge(cmd.Context()); err != nil {
				return err
			}
			opts.printer.Success("Dead-letter stream purged")
			return nil
		},
	}
	purge.Flags().BoolVar(&yes, "yes", false, "confirm the purge")

	cmd.AddCommand(list, stats, purge)
	return cmd
}

func openDLQ(cmd *cobra.Command, opts *options) (*dlq.JetStreamQueue, func(), error) {
	js, err := connectJetStream(opts.cfg)
	if err != nil {
		return nil, nil, err
	}
	q, err := dlq.NewJetStreamQueue(cmd.Context(), js)
	if err != nil {
		_ = js.Close()
		return nil, nil, err
	}
	return q, func() { _ = js.Close() }, nil
}

func printEntries(p *Printer, entries []dlq.Entry) error {
	if p.Structured() {
		if entries == nil {
			entries = []dlq.Entry{}
		}
		return p.Encode(entries)
	}
	if len(entries) == 0 {
		p.Info("No dead-lettered messages")
		return nil
	}

	table := NewTable("TIME", "SUBJECT", "PARTITION", "SEQ", "REASON", "ERROR")
	for _, e := range entries {
		table.AddRow(
			e.Timestamp.Format(time.RFC3339),
			e.Subject,
			strconv.Itoa(e.Partition),
			strconv.FormatUint(e.Sequence, 10),
			e.Reason,
			truncate(e.Error, 60),
		)
	}
	p.Render(table)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
