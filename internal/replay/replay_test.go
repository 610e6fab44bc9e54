package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/testutil"
)

// logOf appends ops oldest first.
func logOf(t *testing.T, ops ...ir.Operation) *testutil.MemoryLog {
	t.Helper()
	log := testutil.NewMemoryLog("test-log")
	for _, op := range ops {
		_, err := log.AddOperation(context.Background(), op)
		require.NoError(t, err)
	}
	return log
}

func collect(t *testing.T, src Source, opts ...Option) []ir.Materialized {
	t.Helper()
	out, err := Collect(context.Background(), src, opts...)
	require.NoError(t, err)
	return out
}

func keysOf(entries []ir.Materialized) []string {
	out := make([]string, len(entries))
	for i, m := range entries {
		out[i] = m.Key
	}
	return out
}

func TestReplay_LastWriteWins(t *testing.T) {
	log := logOf(t,
		ir.Put("k", ir.String("v1"), 0),
		ir.Put("k", ir.String("v2"), 0),
	)

	got := collect(t, log)
	require.Len(t, got, 1)
	assert.Equal(t, "k", got[0].Key)
	assert.Equal(t, ir.String("v2"), got[0].Value)
	assert.Equal(t, log.Entries()[1].Hash, got[0].Hash)
}

func TestReplay_DelShadowsDescendants(t *testing.T) {
	log := logOf(t,
		ir.Put("a/b", ir.Int(1), 0),
		ir.Put("a", ir.Int(2), 0),
		ir.Del("a"),
	)

	assert.Empty(t, collect(t, log))
}

func TestReplay_DelIsNotUndoneByOlderWrites(t *testing.T) {
	log := logOf(t,
		ir.Del("a"),
		ir.Put("a/b", ir.Int(1), 0),
	)

	got := collect(t, log)
	assert.Equal(t, []string{"a/b"}, keysOf(got), "a write after the DEL is live")
}

func TestReplay_LeafShadowsOlderDescendants(t *testing.T) {
	log := logOf(t,
		ir.Put("a/b", ir.Int(1), 0),
		ir.Put("a", ir.Int(2), 0),
	)

	got := collect(t, log)
	assert.Equal(t, []string{"a"}, keysOf(got))
}

func TestReplay_DescendantDoesNotShadowAncestor(t *testing.T) {
	log := logOf(t,
		ir.Put("a", ir.NewTree(ir.F("b", ir.Int(2)), ir.F("c", ir.Int(3))), 0),
		ir.Put("a/b", ir.Int(1), 0),
	)

	got := collect(t, log)
	assert.Equal(t, []string{"a/b", "a"}, keysOf(got))
}

func TestReplay_PositionFromPayload(t *testing.T) {
	log := logOf(t, ir.Put("k", ir.Int(1), 2.5))

	got := collect(t, log)
	require.Len(t, got, 1)
	assert.True(t, got[0].Positioned)
	assert.Equal(t, 2.5, got[0].Position)
}

func TestReplay_MoveTakesPrecedence(t *testing.T) {
	log := logOf(t,
		ir.Put("k", ir.Int(1), 0),
		ir.Move("k", 7),
		ir.Move("k", -3),
	)

	got := collect(t, log)
	require.Len(t, got, 1)
	assert.Equal(t, -3.0, got[0].Position, "newest MOVE wins")
	assert.Equal(t, ir.Int(1), got[0].Value, "MOVE leaves the value alone")
}

func TestReplay_MoveOlderThanPutIsIgnored(t *testing.T) {
	log := logOf(t,
		ir.Put("k", ir.Int(1), 0),
		ir.Move("k", 7),
		ir.Put("k", ir.Int(2), 1),
	)

	got := collect(t, log)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Position)
}

func TestReplay_MoveOfDeletedKeyIsShadowed(t *testing.T) {
	log := logOf(t,
		ir.Put("a/k", ir.Int(1), 0),
		ir.Move("a/k", 4),
		ir.Del("a"),
	)

	assert.Empty(t, collect(t, log))

	summary, err := Stats(context.Background(), log)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Moves)
	assert.Equal(t, 2, summary.Shadowed)
}

func TestReplay_InsertUnderKey(t *testing.T) {
	log := logOf(t,
		ir.Insert("a", ir.NewTree(
			ir.F("b", ir.Int(1)),
			ir.F("c", ir.NewTree(ir.F("d", ir.Int(2)))),
		)),
	)

	got := collect(t, log)
	assert.Equal(t, []string{"a/b", "a/c/d"}, keysOf(got))
	hash := log.Entries()[0].Hash
	for _, m := range got {
		assert.Equal(t, hash, m.Hash, "pairs carry the entry hash")
		assert.False(t, m.Positioned, "INSERT leaves are unpositioned")
	}
}

func TestReplay_InsertAtRoot(t *testing.T) {
	log := logOf(t, ir.Insert("", ir.NewTree(ir.F("x", ir.Int(1)), ir.F("y", ir.Int(2)))))

	assert.Equal(t, []string{"x", "y"}, keysOf(collect(t, log)))
}

func TestReplay_InsertPairsRespectShadowing(t *testing.T) {
	log := logOf(t,
		ir.Insert("a", ir.NewTree(ir.F("b", ir.Int(1)), ir.F("c", ir.Int(2)))),
		ir.Put("a/b", ir.Int(9), 0),
	)

	got := collect(t, log)
	require.Len(t, got, 2)
	assert.Equal(t, "a/b", got[0].Key)
	assert.Equal(t, ir.Int(9), got[0].Value)
	assert.Equal(t, "a/c", got[1].Key)
}

func TestReplay_MovedInsertLeafIsPositioned(t *testing.T) {
	log := logOf(t,
		ir.Insert("", ir.NewTree(ir.F("x", ir.Int(1)))),
		ir.Move("x", 3),
	)

	got := collect(t, log)
	require.Len(t, got, 1)
	assert.True(t, got[0].Positioned)
	assert.Equal(t, 3.0, got[0].Position)
}

func TestReplay_SkipsUnusableHistory(t *testing.T) {
	log := testutil.NewMemoryLog("test-log")
	key := "a"
	log.AppendRaw(ir.Operation{Op: ir.OpPut, Key: &key}, "h-absent")
	log.AppendRaw(ir.Operation{Op: ir.OpInsert, Key: &key, Value: ir.Int(1)}, "h-leaf-insert")
	log.AppendRaw(ir.Operation{Op: ir.OpMove, Key: &key}, "h-no-position")
	log.AppendRaw(ir.Operation{Op: "SET", Key: &key}, "h-unknown")
	log.AppendRaw(ir.Operation{Op: ir.OpPut, Value: ir.Int(1)}, "h-no-key")

	assert.Empty(t, collect(t, log))

	summary, err := Stats(context.Background(), log)
	require.NoError(t, err)
	assert.Equal(t, Summary{Entries: 5, Skipped: 5}, summary)
}

func TestReplay_AbsentPutDoesNotShadow(t *testing.T) {
	log := testutil.NewMemoryLog("test-log")
	key := "a"
	_, err := log.AddOperation(context.Background(), ir.Put("a", ir.Int(1), 0))
	require.NoError(t, err)
	log.AppendRaw(ir.Operation{Op: ir.OpPut, Key: &key}, "h-absent")

	got := collect(t, log)
	require.Len(t, got, 1)
	assert.Equal(t, ir.Int(1), got[0].Value)
}

func TestReplay_Amount(t *testing.T) {
	var ops []ir.Operation
	for _, k := range []string{"key0", "key1", "key2", "key3", "key4", "key5", "key6"} {
		ops = append(ops, ir.Put(k, ir.String(k), 0))
	}
	ops = append(ops, ir.Del("key6"))
	log := logOf(t, ops...)

	tests := []struct {
		name   string
		amount int
		want   []string
	}{
		{"three", 3, []string{"key5", "key4", "key3"}},
		{"one", 1, []string{"key5"}},
		{"all live", 6, []string{"key5", "key4", "key3", "key2", "key1", "key0"}},
		{"more than live", 100, []string{"key5", "key4", "key3", "key2", "key1", "key0"}},
		{"zero", 0, []string{}},
		{"negative", -1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keysOf(collect(t, log, WithAmount(tt.amount)))
			assert.Equal(t, tt.want, got, "deleted entries never count")
		})
	}
}

func TestReplay_AmountDoesNotOvershootInsert(t *testing.T) {
	log := logOf(t, ir.Insert("", ir.NewTree(
		ir.F("a", ir.Int(1)),
		ir.F("b", ir.Int(2)),
		ir.F("c", ir.Int(3)),
	)))

	assert.Equal(t, []string{"a", "b"}, keysOf(collect(t, log, WithAmount(2))))
}

func TestReplay_ConsumerBreak(t *testing.T) {
	log := logOf(t,
		ir.Put("a", ir.Int(1), 0),
		ir.Put("b", ir.Int(2), 1),
	)

	count := 0
	for _, err := range Replay(context.Background(), log) {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestReplay_SourceError(t *testing.T) {
	boom := errors.New("disk on fire")
	key := "a"
	src := testutil.FailingSource{
		Entries: []ir.Entry{{Hash: "h1", Seq: 1, Operation: ir.Operation{Op: ir.OpPut, Key: &key, Value: ir.Int(1)}}},
		Err:     boom,
	}

	var live int
	var gotErr error
	for _, err := range Replay(context.Background(), src) {
		if err != nil {
			gotErr = err
			continue
		}
		live++
	}
	assert.Equal(t, 1, live)
	assert.ErrorIs(t, gotErr, boom)

	_, err := Collect(context.Background(), src)
	assert.ErrorIs(t, err, boom)

	_, err = Stats(context.Background(), src)
	assert.ErrorIs(t, err, boom)
}

func TestReplay_Deterministic(t *testing.T) {
	log := logOf(t,
		ir.Put("a/b", ir.Int(1), 0),
		ir.Insert("a", ir.NewTree(ir.F("c", ir.Int(2)))),
		ir.Move("a/b", 4),
		ir.Del("x"),
	)

	first := collect(t, log)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, collect(t, log))
	}
}

func TestStats(t *testing.T) {
	log := logOf(t,
		ir.Put("a", ir.Int(1), 0),
		ir.Put("a", ir.Int(2), 0),
		ir.Put("b/c", ir.Int(3), 0),
		ir.Move("a", 5),
		ir.Del("b"),
	)

	summary, err := Stats(context.Background(), log)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Entries:    5,
		Live:       1,
		Tombstones: 1,
		Shadowed:   2,
		Moves:      1,
	}, summary)
}
