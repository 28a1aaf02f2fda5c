package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/koba/cqlbridge/internal/metrics"
)

func TestKeyspaceChangeOf(t *testing.T) {
	tests := []struct {
		stmt string
		want KeyspaceChange
		ok   bool
	}{
		{"CREATE KEYSPACE shop WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}", KeyspaceChange{ActionAdd, "shop"}, true},
		{"create keyspace if not exists Shop", KeyspaceChange{ActionAdd, "shop"}, true},
		{`CREATE KEYSPACE "MixedCase"`, KeyspaceChange{ActionAdd, "MixedCase"}, true},
		{"DROP KEYSPACE shop", KeyspaceChange{ActionRemove, "shop"}, true},
		{"  drop keyspace IF EXISTS old_shop", KeyspaceChange{ActionRemove, "old_shop"}, true},
		{"CREATE TABLE shop.users (id int PRIMARY KEY)", KeyspaceChange{}, false},
		{"SELECT * FROM keyspaces", KeyspaceChange{}, false},
	}
	for _, tc := range tests {
		got, ok := KeyspaceChangeOf(tc.stmt)
		assert.Equal(t, tc.ok, ok, tc.stmt)
		assert.Equal(t, tc.want, got, tc.stmt)
	}
}

type call struct {
	action, subject, credential, keyspace string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (n *fakeNotifier) record(c call) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
	return n.err
}

func (n *fakeNotifier) AddKeyspace(ctx context.Context, subject, credential, keyspace string) error {
	return n.record(call{ActionAdd, subject, credential, keyspace})
}

func (n *fakeNotifier) RemoveKeyspace(ctx context.Context, subject, credential, keyspace string) error {
	return n.record(call{ActionRemove, subject, credential, keyspace})
}

func TestKeyspaceAccessHookNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	m := metrics.New()
	hook := NewKeyspaceAccessHook(notifier, nil, m)

	hook.AfterExecute(context.Background(), Event{
		ID:         "e1",
		Statements: []string{"CREATE KEYSPACE shop", "USE shop", "DROP KEYSPACE old"},
		Caller:     Caller{Subject: "alice", Credential: "token"},
	})
	hook.Wait()

	assert.ElementsMatch(t, []call{
		{ActionAdd, "alice", "token", "shop"},
		{ActionRemove, "alice", "token", "old"},
	}, notifier.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notification.WithLabelValues(ActionAdd, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notification.WithLabelValues(ActionRemove, "ok")))
}

func TestKeyspaceAccessHookOutlivesCancellation(t *testing.T) {
	notifier := &fakeNotifier{}
	hook := NewKeyspaceAccessHook(notifier, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	hook.AfterExecute(ctx, Event{
		Statements: []string{"CREATE KEYSPACE shop"},
		Caller:     Caller{Subject: "alice", Credential: "token"},
	})
	cancel()
	hook.Wait()
	require.Len(t, notifier.calls, 1)
}

func TestKeyspaceAccessHookSkipsAnonymousCaller(t *testing.T) {
	notifier := &fakeNotifier{}
	hook := NewKeyspaceAccessHook(notifier, nil, nil)

	for _, caller := range []Caller{{}, {Subject: "alice"}, {Credential: "token"}} {
		hook.AfterExecute(context.Background(), Event{
			Statements: []string{"CREATE KEYSPACE shop"},
			Caller:     caller,
		})
	}
	hook.Wait()
	assert.Empty(t, notifier.calls)
}

func TestKeyspaceAccessHookLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	notifier := &fakeNotifier{err: errors.New("authority unreachable")}
	m := metrics.New()
	hook := NewKeyspaceAccessHook(notifier, zap.New(core), m)

	c := NewCoordinator(&fakeStore{}, nil, nil, hook)
	out := c.Execute(context.Background(), "CREATE KEYSPACE shop", Caller{Subject: "alice", Credential: "token"})
	hook.Wait()

	require.NoError(t, out.Err)
	require.Len(t, notifier.calls, 1)
	entries := logs.FilterMessage("failed to update keyspace access").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "shop", entries[0].ContextMap()["keyspace"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notification.WithLabelValues(ActionAdd, "error")))
}
