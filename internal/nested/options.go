package nested

import (
	"io"
	"log/slog"

	"github.com/roach88/nested/internal/position"
	"github.com/roach88/nested/internal/replay"
)

// DefaultCacheSize is the number of materialized snapshots kept per DB.
const DefaultCacheSize = 16

// Option configures a DB.
type Option func(*DB)

// WithPositionFunc replaces the sibling scale utility. The default is
// position.Midpoint.
func WithPositionFunc(f position.Func) Option {
	return func(db *DB) {
		db.assign = position.NewAssigner(f)
	}
}

// WithLogger sets the logger used for append and cache events.
// The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithCacheSize sets how many snapshots are cached by log head.
// Zero or less disables the cache.
func WithCacheSize(n int) Option {
	return func(db *DB) {
		db.cacheSize = n
	}
}

// PutOption configures a single Put.
type PutOption func(*putConfig)

type putConfig struct {
	index *int
}

// AtIndex places the key at sibling slot i. Negative values count from the
// end (-1 appends); out-of-range values clamp to the nearest end.
func AtIndex(i int) PutOption {
	return func(c *putConfig) {
		c.index = &i
	}
}

// WithAmount bounds Iterator to the n most recent live entries.
func WithAmount(n int) replay.Option {
	return replay.WithAmount(n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
