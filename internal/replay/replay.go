package replay

import (
	"context"
	"fmt"
	"iter"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/keys"
	"github.com/roach88/nested/internal/nest"
)

// Source is a restartable, newest-first traversal of a log. Each call to
// Traverse starts again from the current head.
type Source interface {
	Traverse(ctx context.Context) iter.Seq2[ir.Entry, error]
}

// Option configures a replay pass.
type Option func(*config)

type config struct {
	amount  int
	limited bool
}

// WithAmount stops the pass after n live entries. n <= 0 yields nothing.
func WithAmount(n int) Option {
	return func(c *config) {
		c.amount = n
		c.limited = true
	}
}

// Summary counts what a pass did with the log.
type Summary struct {
	Entries    int `json:"entries"`    // Log entries read
	Live       int `json:"live"`       // Materialized entries yielded
	Tombstones int `json:"tombstones"` // DEL marks applied
	Shadowed   int `json:"shadowed"`   // Writes and marks hidden by newer ones
	Moves      int `json:"moves"`      // MOVE positions recorded
	Skipped    int `json:"skipped"`    // Payloads with no usable value
}

type mark struct {
	terminal bool
	moved    bool
	position float64
}

// pass is the state of one replay. It is never shared between passes.
type pass struct {
	state   map[string]*mark
	summary Summary
}

func newPass() *pass {
	return &pass{state: make(map[string]*mark)}
}

// shadowed reports whether key or one of its ancestors is terminal.
func (p *pass) shadowed(key string) bool {
	for k, ok := key, true; ok; k, ok = keys.Parent(k) {
		if m := p.state[k]; m != nil && m.terminal {
			return true
		}
	}
	return false
}

func (p *pass) markOf(key string) *mark {
	m := p.state[key]
	if m == nil {
		m = &mark{}
		p.state[key] = m
	}
	return m
}

// put resolves a single write. It reports whether the write is live.
func (p *pass) put(key string, value ir.Value, hash string, stored *float64) (ir.Materialized, bool) {
	if p.shadowed(key) {
		p.summary.Shadowed++
		return ir.Materialized{}, false
	}
	if value == nil {
		p.summary.Skipped++
		return ir.Materialized{}, false
	}

	m := p.markOf(key)
	m.terminal = true
	out := ir.Materialized{Key: key, Value: value, Hash: hash}
	switch {
	case m.moved:
		out.Position, out.Positioned = m.position, true
	case stored != nil:
		out.Position, out.Positioned = *stored, true
	}
	p.summary.Live++
	return out, true
}

func (p *pass) move(key string, position *float64) {
	if position == nil {
		p.summary.Skipped++
		return
	}
	if m := p.state[key]; m != nil && m.moved {
		p.summary.Shadowed++
		return
	}
	if p.shadowed(key) {
		p.summary.Shadowed++
		return
	}
	m := p.markOf(key)
	m.moved, m.position = true, *position
	p.summary.Moves++
}

func (p *pass) del(key string) {
	if p.shadowed(key) {
		p.summary.Shadowed++
		return
	}
	p.markOf(key).terminal = true
	p.summary.Tombstones++
}

// run drives a pass over src and hands every live entry to emit. emit
// returns false to stop.
func (p *pass) run(ctx context.Context, src Source, emit func(ir.Materialized) bool) error {
	for entry, err := range src.Traverse(ctx) {
		if err != nil {
			return fmt.Errorf("replay: traverse: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.summary.Entries++

		op := entry.Operation
		switch op.Op {
		case ir.OpPut:
			if op.Key == nil {
				p.summary.Skipped++
				continue
			}
			if m, ok := p.put(*op.Key, op.Value, entry.Hash, op.Position); ok && !emit(m) {
				return nil
			}
		case ir.OpInsert:
			tree, ok := op.Value.(*ir.Tree)
			if !ok || tree == nil {
				p.summary.Skipped++
				continue
			}
			for _, pair := range nest.FlattenUnder(op.KeyString(), tree) {
				if m, ok := p.put(pair.Key, pair.Value, entry.Hash, nil); ok && !emit(m) {
					return nil
				}
			}
		case ir.OpMove:
			if op.Key != nil {
				p.move(*op.Key, op.Position)
			}
		case ir.OpDel:
			if op.Key != nil {
				p.del(*op.Key)
			}
		default:
			p.summary.Skipped++
		}
	}
	return nil
}

// Replay yields the live entries of src, newest first. A traversal error is
// yielded once and ends the pass.
func Replay(ctx context.Context, src Source, opts ...Option) iter.Seq2[ir.Materialized, error] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(ir.Materialized, error) bool) {
		if cfg.limited && cfg.amount <= 0 {
			return
		}

		count := 0
		stopped := false
		err := newPass().run(ctx, src, func(m ir.Materialized) bool {
			if !yield(m, nil) {
				stopped = true
				return false
			}
			count++
			return !cfg.limited || count < cfg.amount
		})
		if err != nil && !stopped {
			yield(ir.Materialized{}, err)
		}
	}
}

// Collect drains Replay into a slice, newest first.
func Collect(ctx context.Context, src Source, opts ...Option) ([]ir.Materialized, error) {
	var out []ir.Materialized
	for m, err := range Replay(ctx, src, opts...) {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Stats drains a full pass over src and reports its Summary.
func Stats(ctx context.Context, src Source) (Summary, error) {
	p := newPass()
	if err := p.run(ctx, src, func(ir.Materialized) bool { return true }); err != nil {
		return p.summary, err
	}
	return p.summary, nil
}
