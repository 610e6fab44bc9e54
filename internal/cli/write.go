package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/store"
)

// WriteResult is the outcome of a write command.
type WriteResult struct {
	Op   string `json:"op"`
	Key  string `json:"key,omitempty"`
	Hash string `json:"hash"`
}

// ValueOptions holds the flags shared by commands that take a value.
type ValueOptions struct {
	File string // read the value from a .cue or .json file
	Raw  bool   // take the argument as a plain string
}

func (o *ValueOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.File, "file", "f", "", "read the value from a CUE or JSON file")
	cmd.Flags().BoolVar(&o.Raw, "raw", false, "store the argument as a plain string")
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create an empty log",
		Long: `Create an empty log named by --log in the database named by --db.

Exit codes:
  0 - Log created
  2 - Command error (log already exists, database error)

Examples:
  nested new --db ./nested.db --log settings`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(rootOpts, cmd)
		},
	}
}

func runNew(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	log, err := st.CreateLog(context.Background(), opts.Log)
	if errors.Is(err, store.ErrLogExists) {
		return f.Fail(ExitCommandError, ErrCodeLogExists, fmt.Sprintf("log %q already exists", opts.Log), err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to create log", err)
	}

	info := store.LogInfo{ID: log.ID(), Name: log.Name()}
	return f.Emit(info, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Created log %s (%s)\n", info.Name, info.ID)
		return err
	})
}

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	ValueOptions
	Index int
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <key> [value]",
		Short: "Write a value at a key",
		Long: `Write a value at a key, replacing everything at or below it.

The value is CUE or JSON; field order is kept. Use --raw for a plain
string and --file to read the value from a file. Without --index an
existing key keeps its place and a new key goes after its siblings.

Examples:
  nested put settings/theme '"dark"'
  nested put settings/font --raw Inconsolata
  nested put settings '{theme: "dark", size: 12}'
  nested put list/first 1 --index 0`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, cmd, args)
		},
	}

	opts.ValueOptions.bind(cmd)
	cmd.Flags().IntVar(&opts.Index, "index", 0, "sibling slot (negative counts from the end)")

	return cmd
}

func runPut(opts *PutOptions, cmd *cobra.Command, args []string) error {
	f := newFormatter(opts.RootOptions, cmd)
	key := args[0]

	value, err := readValue(args[1:], opts.File, opts.Raw)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidValue, "invalid value (use --raw for plain strings)", err)
	}

	ctx := context.Background()
	s, err := openSession(ctx, opts.RootOptions, f, true)
	if err != nil {
		return err
	}
	defer s.Close()

	var putOpts []nested.PutOption
	if cmd.Flags().Changed("index") {
		putOpts = append(putOpts, nested.AtIndex(opts.Index))
	}

	hash, err := s.db.Put(ctx, key, value, putOpts...)
	if err != nil {
		return failOp(f, "put failed", err)
	}
	return emitWrite(f, WriteResult{Op: string(ir.OpPut), Key: key, Hash: hash})
}

// NewDelCommand creates the del command.
func NewDelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key and everything beneath it",
		Long: `Append a tombstone for key. Keys beneath it are hidden too. Deleting a
key that does not exist is not an error.

Examples:
  nested del settings/theme
  nested del settings`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDel(rootOpts, cmd, args[0])
		},
	}
}

func runDel(opts *RootOptions, cmd *cobra.Command, key string) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	s, err := openSession(ctx, opts, f, true)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, err := s.db.Del(ctx, key)
	if err != nil {
		return failOp(f, "del failed", err)
	}
	return emitWrite(f, WriteResult{Op: string(ir.OpDel), Key: key, Hash: hash})
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <key> <index>",
		Short: "Move a key among its siblings",
		Long: `Move key to sibling slot index without changing its value. Negative
indexes count from the end, so -1 moves to the last slot. Put -- before
the arguments when the index is negative.

Exit codes:
  0 - Key moved
  1 - Key has no live value
  2 - Command error

Examples:
  nested move list/b 0
  nested move -- list/a -1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runMove(opts *RootOptions, cmd *cobra.Command, key, indexArg string) error {
	f := newFormatter(opts, cmd)

	index, err := strconv.Atoi(indexArg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid index %q", indexArg), err)
	}

	ctx := context.Background()
	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, err := s.db.Move(ctx, key, index)
	if err != nil {
		return failOp(f, "move failed", err)
	}
	return emitWrite(f, WriteResult{Op: string(ir.OpMove), Key: key, Hash: hash})
}

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	ValueOptions
	Root bool
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert <key> <value> | --root <value>",
		Short: "Merge a nested value under a key",
		Long: `Merge a nested value leaf by leaf under key, or at the root with --root.
Leaves not mentioned in the value keep their current values.

Examples:
  nested insert settings '{theme: "light"}'
  nested insert --root '{settings: {size: 14}}'
  nested insert settings --file defaults.cue`,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, cmd, args)
		},
	}

	opts.ValueOptions.bind(cmd)
	cmd.Flags().BoolVar(&opts.Root, "root", false, "insert at the root")

	return cmd
}

func runInsert(opts *InsertOptions, cmd *cobra.Command, args []string) error {
	f := newFormatter(opts.RootOptions, cmd)

	key := ""
	if !opts.Root {
		if len(args) == 0 {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "a key is required unless --root is set", nil)
		}
		key, args = args[0], args[1:]
	}
	if len(args) > 1 {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "too many arguments", nil)
	}

	value, err := readValue(args, opts.File, opts.Raw)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidValue, "invalid value", err)
	}
	var tree *ir.Tree
	if value != nil {
		var ok bool
		if tree, ok = value.(*ir.Tree); !ok {
			return f.Fail(ExitCommandError, ErrCodeInvalidValue, "insert needs a nested value", nil)
		}
	}

	ctx := context.Background()
	s, err := openSession(ctx, opts.RootOptions, f, true)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, err := s.db.Insert(ctx, key, tree)
	if err != nil {
		return failOp(f, "insert failed", err)
	}
	return emitWrite(f, WriteResult{Op: string(ir.OpInsert), Key: key, Hash: hash})
}

func emitWrite(f *OutputFormatter, res WriteResult) error {
	f.VerboseLog("%s %s appended", res.Op, res.Key)
	return f.Emit(res, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, res.Hash)
		return err
	})
}
