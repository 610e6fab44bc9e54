package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/replay"
)

// ReplayResult holds the replay result for one log.
type ReplayResult struct {
	Log           string         `json:"log"`
	Head          string         `json:"head,omitempty"`
	Summary       replay.Summary `json:"summary"`
	Hash          string         `json:"hash"`
	Deterministic bool           `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Replay the log and verify determinism",
		Long: `Replay the log to report entry statistics and verify determinism.

The log is replayed twice without caching; both passes must agree on the
statistics and on the content hash of the materialized view.

Exit codes:
  0 - Replay is deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  nested replay --db ./nested.db
  nested replay --db ./nested.db --log settings --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	s, err := openSession(ctx, opts, f, false)
	if err != nil {
		return err
	}
	defer s.Close()

	head, err := s.log.Head(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read log head", err)
	}

	first, firstHash, err := replayOnce(ctx, s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "first replay failed", err)
	}
	second, secondHash, err := replayOnce(ctx, s)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "second replay failed", err)
	}

	result := ReplayResult{
		Log:           s.log.Name(),
		Head:          head,
		Summary:       first,
		Hash:          firstHash,
		Deterministic: first == second && firstHash == secondHash,
	}

	f.VerboseLog("replayed %d entries twice", first.Entries)

	if err := f.Emit(result, func(w io.Writer) error {
		return outputReplayText(w, result, opts.Verbose)
	}); err != nil {
		return err
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return f.Fail(ExitFailure, ErrCodeDeterminism, "determinism verification failed", nil)
	}
	return nil
}

// replayOnce runs one uncached pass for statistics and one for the view hash.
func replayOnce(ctx context.Context, s *session) (replay.Summary, string, error) {
	summary, err := replay.Stats(ctx, s.log)
	if err != nil {
		return replay.Summary{}, "", err
	}
	hash, err := nested.New(s.log, nested.WithCacheSize(0)).Hash(ctx)
	if err != nil {
		return replay.Summary{}, "", err
	}
	return summary, hash, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: log %s\n", result.Log)
	fmt.Fprintln(w)

	sum := result.Summary
	fmt.Fprintf(w, "  Entries: %d\n", sum.Entries)
	fmt.Fprintf(w, "  Live: %d\n", sum.Live)
	if verbose {
		fmt.Fprintf(w, "  Tombstones: %d\n", sum.Tombstones)
		fmt.Fprintf(w, "  Shadowed: %d\n", sum.Shadowed)
		fmt.Fprintf(w, "  Moves: %d\n", sum.Moves)
		fmt.Fprintf(w, "  Skipped: %d\n", sum.Skipped)
		fmt.Fprintf(w, "  Head: %s\n", result.Head)
	}
	fmt.Fprintf(w, "  Hash: %s\n", result.Hash)
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return nil
}
