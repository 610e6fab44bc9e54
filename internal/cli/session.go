package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/store"
)

// session is an open database, log and view for one command.
type session struct {
	store *store.Store
	log   *store.Log
	db    *nested.DB
}

func (s *session) Close() error {
	return s.store.Close()
}

// newLogger returns the slog logger for a command: text on w, debug level
// with --verbose and warnings only otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession opens the database and the log named by opts. With create
// set, a missing log is created; otherwise it is an error.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter, create bool) (*session, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}

	var log *store.Log
	if create {
		log, err = st.OpenOrCreateLog(ctx, opts.Log)
	} else {
		log, err = st.OpenLog(ctx, opts.Log)
	}
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrLogNotFound) {
			return nil, f.Fail(ExitCommandError, ErrCodeLogNotFound, fmt.Sprintf("log %q not found", opts.Log), err)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open log", err)
	}

	logger := newLogger(opts, f.GetErrWriter()).With("log", log.Name())
	logger.Debug("log opened", "db", opts.Database, "id", log.ID())

	return &session{
		store: st,
		log:   log,
		db:    nested.New(log, nested.WithLogger(logger)),
	}, nil
}

// failOp maps a nested API error to an exit code and error code.
func failOp(f *OutputFormatter, message string, err error) error {
	switch {
	case errors.Is(err, nested.ErrNotFound):
		return f.Fail(ExitFailure, ErrCodeNotFound, message, err)
	case errors.Is(err, nested.ErrMissingValue):
		return f.Fail(ExitCommandError, ErrCodeMissingValue, message, err)
	default:
		return f.Fail(ExitCommandError, ErrCodeGeneric, message, err)
	}
}
