package executor

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/metrics"
	"github.com/koba/cqlbridge/internal/schema"
)

type fakeStore struct {
	mu      sync.Mutex
	execs   []string
	batches [][]string
	failOn  int // 1-based Exec call that fails; 0 never fails
	panics  bool
}

func (s *fakeStore) Exec(ctx context.Context, stmt string) (*ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("connection reset")
	}
	s.execs = append(s.execs, stmt)
	if len(s.execs) == s.failOn {
		return nil, errors.New("unavailable")
	}
	return &ResultSet{
		Columns: []string{"stmt"},
		Rows:    []schema.Row{{"stmt": stmt}},
	}, nil
}

func (s *fakeStore) ExecBatch(ctx context.Context, stmts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, stmts)
	if s.failOn > 0 {
		return errors.New("batch too large")
	}
	return nil
}

type recordingHook struct {
	events []Event
}

func (h *recordingHook) AfterExecute(ctx context.Context, ev Event) {
	h.events = append(h.events, ev)
}

func TestExecuteSingle(t *testing.T) {
	store := &fakeStore{}
	hook := &recordingHook{}
	m := metrics.New()
	c := NewCoordinator(store, nil, m, hook)

	out := c.Execute(context.Background(), "SELECT * FROM users", Caller{Subject: "alice"})
	require.NoError(t, out.Err)
	assert.True(t, out.Success())
	assert.Equal(t, ModeSingle, out.Mode)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, []string{"SELECT * FROM users"}, store.execs)
	require.NotNil(t, out.Result)
	assert.Equal(t, []string{"stmt"}, out.Result.Columns)

	require.Len(t, hook.events, 1)
	assert.Equal(t, out.ID, hook.events[0].ID)
	assert.Equal(t, "alice", hook.events[0].Caller.Subject)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("single", "ok")))
}

func TestExecuteBatch(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, nil, nil)

	text := "-- batched\nBEGIN BATCH\n  INSERT INTO t (id) VALUES (1);\n  INSERT INTO t (id) VALUES (2);\nAPPLY BATCH;"
	out := c.Execute(context.Background(), text, Caller{})
	require.NoError(t, out.Err)
	assert.Equal(t, ModeBatch, out.Mode)
	assert.Empty(t, store.execs)
	require.Len(t, store.batches, 1)
	assert.Equal(t, []string{"INSERT INTO t (id) VALUES (1)", "INSERT INTO t (id) VALUES (2)"}, store.batches[0])
	assert.Equal(t, store.batches[0], out.Statements)
	assert.Nil(t, out.Result)
}

func TestExecuteSingleWithBatchWords(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, nil, nil)

	stmt := "INSERT INTO notes (id, body) VALUES (1, 'BEGIN BATCH please')"
	out := c.Execute(context.Background(), stmt, Caller{})
	require.NoError(t, out.Err)
	assert.Equal(t, ModeSingle, out.Mode)
	assert.Equal(t, []string{stmt}, store.execs)
	assert.Empty(t, store.batches)
}

func TestExecuteBatchFailure(t *testing.T) {
	hook := &recordingHook{}
	c := NewCoordinator(&fakeStore{failOn: 1}, nil, nil, hook)

	out := c.Execute(context.Background(), "BEGIN BATCH INSERT INTO t (id) VALUES (1); APPLY BATCH", Caller{})
	require.Error(t, out.Err)
	assert.Equal(t, ModeBatch, out.Mode)
	assert.True(t, errors.Is(out.Err, cqlerr.ErrExecution))
	assert.Empty(t, hook.events)
}

func TestExecuteSequence(t *testing.T) {
	store := &fakeStore{}
	hook := &recordingHook{}
	c := NewCoordinator(store, nil, nil, hook)

	out := c.Execute(context.Background(), "CREATE KEYSPACE k;\nUSE k;\nSELECT * FROM t;", Caller{})
	require.NoError(t, out.Err)
	assert.Equal(t, ModeSequence, out.Mode)
	assert.Equal(t, []string{"CREATE KEYSPACE k", "USE k", "SELECT * FROM t"}, store.execs)
	assert.Equal(t, store.execs, out.Statements)
	require.NotNil(t, out.Result)
	assert.Equal(t, "SELECT * FROM t", out.Result.Rows[0]["stmt"])
	require.Len(t, hook.events, 1)
	assert.Equal(t, ModeSequence, hook.events[0].Mode)
}

func TestExecuteSequenceStopsAtFirstError(t *testing.T) {
	store := &fakeStore{failOn: 2}
	hook := &recordingHook{}
	m := metrics.New()
	c := NewCoordinator(store, nil, m, hook)

	out := c.Execute(context.Background(), "USE a; USE b; USE c", Caller{})
	require.Error(t, out.Err)
	assert.False(t, out.Success())
	assert.Equal(t, ModeSequence, out.Mode)
	assert.Equal(t, []string{"USE a", "USE b"}, store.execs)
	assert.Equal(t, []string{"USE a"}, out.Statements)
	assert.True(t, errors.Is(out.Err, cqlerr.ErrExecution))
	assert.Contains(t, out.Err.Error(), "statement 2 of 3")
	assert.Contains(t, out.Err.Error(), "unavailable")
	assert.Empty(t, hook.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("sequence", "error")))
}

func TestExecuteNothing(t *testing.T) {
	store := &fakeStore{}
	out := NewCoordinator(store, nil, nil).Execute(context.Background(), " ; -- nothing\n", Caller{})
	require.Error(t, out.Err)
	assert.True(t, errors.Is(out.Err, cqlerr.ErrInvalidStatement))
	assert.Equal(t, ModeSingle, out.Mode)
	assert.Empty(t, store.execs)
}

func TestExecuteRecoversStorePanic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewCoordinator(&fakeStore{panics: true}, zap.New(core), nil)

	out := c.Execute(context.Background(), "SELECT * FROM t", Caller{})
	require.Error(t, out.Err)
	assert.True(t, errors.Is(out.Err, cqlerr.ErrExecution))
	assert.Contains(t, out.Err.Error(), "connection reset")

	entries := logs.FilterMessage("execution failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ExecutionError", entries[0].ContextMap()["category"])
}

func TestHooksRunInOrder(t *testing.T) {
	var calls []string
	c := NewCoordinator(&fakeStore{}, nil, nil,
		HookFunc(func(ctx context.Context, ev Event) { calls = append(calls, "first") }))
	c.AddHook(HookFunc(func(ctx context.Context, ev Event) { calls = append(calls, "second") }))

	out := c.Execute(context.Background(), "USE k", Caller{})
	require.NoError(t, out.Err)
	assert.Equal(t, "first,second", strings.Join(calls, ","))
}
