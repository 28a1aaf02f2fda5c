package executor

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/metrics"
)

// Event describes a successful execution.
type Event struct {
	ID         string
	Text       string
	Statements []string
	Mode       Mode
	Caller     Caller
}

// Hook observes successful executions. AfterExecute must not block on
// remote calls.
type Hook interface {
	AfterExecute(ctx context.Context, ev Event)
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, ev Event)

func (f HookFunc) AfterExecute(ctx context.Context, ev Event) { f(ctx, ev) }

// KeyspaceNotifier records which keyspaces a subject may access.
type KeyspaceNotifier interface {
	AddKeyspace(ctx context.Context, subject, credential, keyspace string) error
	RemoveKeyspace(ctx context.Context, subject, credential, keyspace string) error
}

const keyspaceName = `("(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_]*)`

var (
	createKeyspacePattern = regexp.MustCompile(`(?is)^\s*CREATE\s+KEYSPACE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + keyspaceName)
	dropKeyspacePattern   = regexp.MustCompile(`(?is)^\s*DROP\s+KEYSPACE\s+(?:IF\s+EXISTS\s+)?` + keyspaceName)
)

// Keyspace actions reported to the permission authority.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// KeyspaceChange is a keyspace created or dropped by a statement.
type KeyspaceChange struct {
	Action   string
	Keyspace string
}

// KeyspaceChangeOf recognises CREATE KEYSPACE and DROP KEYSPACE statements.
func KeyspaceChangeOf(stmt string) (KeyspaceChange, bool) {
	if m := createKeyspacePattern.FindStringSubmatch(stmt); m != nil {
		return KeyspaceChange{Action: ActionAdd, Keyspace: cqlIdentifier(m[1])}, true
	}
	if m := dropKeyspacePattern.FindStringSubmatch(stmt); m != nil {
		return KeyspaceChange{Action: ActionRemove, Keyspace: cqlIdentifier(m[1])}, true
	}
	return KeyspaceChange{}, false
}

// cqlIdentifier resolves a CQL identifier: quoted names keep their case,
// unquoted names fold to lower case.
func cqlIdentifier(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return strings.ToLower(s)
}

// KeyspaceAccessHook tells the permission authority about keyspaces the
// caller created or dropped. Notifications run in the background; failures
// are logged and never affect the execution outcome.
type KeyspaceAccessHook struct {
	notifier KeyspaceNotifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// NewKeyspaceAccessHook creates a hook reporting to notifier.
func NewKeyspaceAccessHook(notifier KeyspaceNotifier, logger *zap.Logger, m *metrics.Metrics) *KeyspaceAccessHook {
	return &KeyspaceAccessHook{notifier: notifier, logger: logging.OrNop(logger), metrics: m}
}

func (h *KeyspaceAccessHook) AfterExecute(ctx context.Context, ev Event) {
	for _, stmt := range ev.Statements {
		change, ok := KeyspaceChangeOf(stmt)
		if !ok {
			continue
		}
		if ev.Caller.Subject == "" || ev.Caller.Credential == "" {
			h.logger.Debug("skipping keyspace notification without caller identity",
				zap.String("execution_id", ev.ID),
				zap.String("keyspace", change.Keyspace))
			continue
		}

		h.wg.Add(1)
		go func(change KeyspaceChange) {
			defer h.wg.Done()
			h.notify(context.WithoutCancel(ctx), ev, change)
		}(change)
	}
}

func (h *KeyspaceAccessHook) notify(ctx context.Context, ev Event, change KeyspaceChange) {
	var err error
	switch change.Action {
	case ActionAdd:
		err = h.notifier.AddKeyspace(ctx, ev.Caller.Subject, ev.Caller.Credential, change.Keyspace)
	case ActionRemove:
		err = h.notifier.RemoveKeyspace(ctx, ev.Caller.Subject, ev.Caller.Credential, change.Keyspace)
	}
	h.metrics.ObserveNotification(change.Action, err)

	fields := []zap.Field{
		zap.String("execution_id", ev.ID),
		zap.String("subject", ev.Caller.Subject),
		zap.String("action", change.Action),
		zap.String("keyspace", change.Keyspace),
	}
	if err != nil {
		h.logger.Warn("failed to update keyspace access", append(fields, zap.Error(err))...)
		return
	}
	h.logger.Info("updated keyspace access", fields...)
}

// Wait blocks until every pending notification has finished.
func (h *KeyspaceAccessHook) Wait() {
	h.wg.Wait()
}
