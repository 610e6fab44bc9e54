package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // path to the SQLite database
	Log      string // log name inside the database
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Default flag values.
const (
	DefaultDatabase = "nested.db"
	DefaultLog      = "main"
)

// NewRootCommand creates the root command for the nested CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nested",
		Short: "nested - hierarchical key-value view over an append-only log",
		Long: `A hierarchical, ordered key-value view reconstructed from an append-only
log of PUT, DEL, INSERT and MOVE operations.

Keys are slash-separated paths. Values are given as CUE or JSON and keep
the field order they are written in.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Log, "log", DefaultLog, "log name")

	// Add subcommands
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewDelCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewAllCommand(opts))
	cmd.AddCommand(NewIterCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
