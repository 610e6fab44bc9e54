package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/replay"
	"github.com/roach88/nested/internal/store"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value at a key",
		Long: `Print the value at key: a leaf, or the nested value below it.

Exit codes:
  0 - Value printed
  1 - Key has no live value
  2 - Command error

Examples:
  nested get settings/theme
  nested get settings --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, cmd, args[0])
		},
	}
}

func runGet(opts *RootOptions, cmd *cobra.Command, key string) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.db.Get(ctx, key)
	if err != nil {
		return failOp(f, fmt.Sprintf("get %s", key), err)
	}
	return emitValue(f, v)
}

// NewAllCommand creates the all command.
func NewAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Print the whole nested view",
		Long: `Print the whole view as one nested value. Siblings appear in their
position order.

Examples:
  nested all
  nested all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(rootOpts, cmd)
		},
	}
}

func runAll(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	tree, err := s.db.All(ctx)
	if err != nil {
		return failOp(f, "all failed", err)
	}
	return emitValue(f, tree)
}

func emitValue(f *OutputFormatter, v ir.Value) error {
	raw, err := jsonValue(v)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode value", err)
	}
	return f.Emit(raw, func(w io.Writer) error {
		return writeValue(w, v)
	})
}

// IterOptions holds flags for the iter command.
type IterOptions struct {
	*RootOptions
	Amount int
}

// NewIterCommand creates the iter command.
func NewIterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "iter",
		Short: "List live entries, newest first",
		Long: `List the live entries of the log, newest first, with the hash of the
entry that wrote each one and its sibling position.

Examples:
  nested iter
  nested iter --amount 10
  nested iter --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIter(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Amount, "amount", "n", -1, "stop after this many entries (-1 for all)")

	return cmd
}

func runIter(opts *IterOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	s, err := openSession(ctx, opts.RootOptions, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var iterOpts []replay.Option
	if opts.Amount >= 0 {
		iterOpts = append(iterOpts, nested.WithAmount(opts.Amount))
	}

	entries := []ir.Materialized{}
	for m, err := range s.db.Iterator(ctx, iterOpts...) {
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "iteration failed", err)
		}
		entries = append(entries, m)
	}

	return f.Emit(entries, func(w io.Writer) error {
		return writeEntries(w, entries)
	})
}

func writeEntries(w io.Writer, entries []ir.Materialized) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range entries {
		data, err := ir.MarshalValue(m.Value)
		if err != nil {
			return err
		}
		pos := "-"
		if m.Positioned {
			pos = ir.FormatPosition(m.Position)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Key, data, pos, m.Hash)
	}
	return tw.Flush()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <key>",
		Short: "List the log entries that name a key",
		Long: `List every log entry recorded with exactly this key, oldest first.
Root-level INSERTs and writes to parents are not included.

Examples:
  nested history settings/theme`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args[0])
		},
	}
}

// HistoryEntry is one row of the history command.
type HistoryEntry struct {
	Seq      int64           `json:"seq"`
	Hash     string          `json:"hash"`
	Op       ir.OpType       `json:"op"`
	Value    json.RawMessage `json:"value,omitempty"`
	Position *float64        `json:"position,omitempty"`
}

func runHistory(opts *RootOptions, cmd *cobra.Command, key string) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.log.History(ctx, key)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "history failed", err)
	}

	rows := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		row := HistoryEntry{Seq: e.Seq, Hash: e.Hash, Op: e.Operation.Op, Position: e.Operation.Position}
		if e.Operation.Value != nil {
			if row.Value, err = jsonValue(e.Operation.Value); err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode value", err)
			}
		}
		rows = append(rows, row)
	}

	return f.Emit(rows, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, r := range rows {
			pos := "-"
			if r.Position != nil {
				pos = ir.FormatPosition(*r.Position)
			}
			val := "-"
			if r.Value != nil {
				val = string(r.Value)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Seq, r.Op, val, pos, r.Hash)
		}
		return tw.Flush()
	})
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "List the logs in the database",
		Long: `List every log in the database with its entry count and head hash.

Examples:
  nested logs --db ./nested.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(rootOpts, cmd)
		},
	}
}

func runLogs(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	logs, err := st.Logs(context.Background())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list logs", err)
	}

	return f.Emit(logs, func(w io.Writer) error {
		if len(logs) == 0 {
			_, err := fmt.Fprintln(w, "No logs found.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, l := range logs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.Name, l.ID, l.Entries, l.Head)
		}
		return tw.Flush()
	})
}
