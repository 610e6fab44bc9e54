package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/store"
	"github.com/roach88/nested/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a SQLite log with a fixed log id.
type Harness struct {
	store  *store.Store
	log    *store.Log
	db     *nested.DB
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A fixed log id keeps entry hashes reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database and log
// 2. Apply steps, checking expected errors
// 3. Capture the live entries and the materialized view
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewFixedLogID(scenario.LogID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	log, err := st.CreateLog(ctx, scenario.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create log: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store:  st,
		log:    log,
		db:     nested.New(log, nested.WithLogger(logger)),
		logger: logger,
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	if err := h.capture(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture view: %w", err)
	}

	actx := &AssertionContext{
		DB:  h.db,
		Ctx: ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps applies every step through the nested API.
//
// A step that fails as its expect_error says is recorded and execution
// continues. Any other mismatch is a result error, not a Go error; Go
// errors are reserved for harness failures such as unreadable values.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		value, err := nodeValue(&step.Value)
		if err != nil {
			return fmt.Errorf("step %d: failed to convert value: %w", i, err)
		}

		hash, opErr := h.apply(ctx, step, value)
		rec := StepRecord{Op: step.Op, Key: step.Key}

		switch {
		case opErr == nil && step.ExpectError != "":
			result.AddError(fmt.Sprintf("step %d (%s %s): expected error %s, got success", i, step.Op, step.Key, step.ExpectError))
		case opErr != nil && step.ExpectError == "":
			result.AddError(fmt.Sprintf("step %d (%s %s): unexpected error: %v", i, step.Op, step.Key, opErr))
		case opErr != nil && !matchesExpectedError(opErr, step.ExpectError):
			result.AddError(fmt.Sprintf("step %d (%s %s): expected error %s, got: %v", i, step.Op, step.Key, step.ExpectError, opErr))
		case opErr != nil:
			rec.Error = step.ExpectError
		}

		if hash != "" {
			entry, err := h.log.ReadEntry(ctx, hash)
			if err != nil {
				return fmt.Errorf("step %d: failed to read back entry: %w", i, err)
			}
			rec.Seq = entry.Seq
			if entry.Operation.Position != nil {
				rec.Position = ir.FormatPosition(*entry.Operation.Position)
			}
		}
		result.AddStep(rec)

		h.logger.Info("step completed",
			"step", i,
			"op", step.Op,
			"key", step.Key,
			"hash", hash,
		)
	}
	return nil
}

func (h *Harness) apply(ctx context.Context, step Step, value ir.Value) (string, error) {
	switch ir.OpType(step.Op) {
	case ir.OpPut:
		var opts []nested.PutOption
		if step.Index != nil {
			opts = append(opts, nested.AtIndex(*step.Index))
		}
		return h.db.Put(ctx, step.Key, value, opts...)
	case ir.OpDel:
		return h.db.Del(ctx, step.Key)
	case ir.OpMove:
		return h.db.Move(ctx, step.Key, *step.Index)
	case ir.OpInsert:
		if value == nil {
			return h.db.Insert(ctx, step.Key, nil)
		}
		tree, ok := value.(*ir.Tree)
		if !ok {
			return "", fmt.Errorf("INSERT value must be a mapping, got %T", value)
		}
		return h.db.Insert(ctx, step.Key, tree)
	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// capture stores the live entries and the materialized view in result.
func (h *Harness) capture(ctx context.Context, result *Result) error {
	for m, err := range h.db.Iterator(ctx) {
		if err != nil {
			return err
		}
		live := LiveEntry{Key: m.Key}
		if m.Positioned {
			live.Position = ir.FormatPosition(m.Position)
		}
		result.Live = append(result.Live, live)
	}

	state, err := h.db.All(ctx)
	if err != nil {
		return err
	}
	result.State = state
	return nil
}

func matchesExpectedError(err error, name string) bool {
	switch name {
	case ExpectNotFound:
		return errors.Is(err, nested.ErrNotFound)
	case ExpectMissingValue:
		return errors.Is(err, nested.ErrMissingValue)
	default:
		return false
	}
}
