// Package storage executes CQL against a Cassandra-compatible cluster.
package storage

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/executor"
	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/schema"
)

// Config holds cluster connection configuration.
type Config struct {
	Hosts          []string
	Keyspace       string
	Consistency    string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	Username       string
	Password       string
}

// Cassandra implements executor.Store on a gocql session.
type Cassandra struct {
	cluster *gocql.ClusterConfig
	logger  *zap.Logger

	mu      sync.RWMutex
	session *gocql.Session
}

var _ executor.Store = (*Cassandra)(nil)

var usePattern = regexp.MustCompile(`(?i)^\s*USE\s+("(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_]*)\s*;?\s*$`)

// NewCluster builds the gocql cluster configuration for cfg.
func NewCluster(cfg Config) (*gocql.ClusterConfig, error) {
	if len(cfg.Hosts) == 0 {
		return nil, errors.New("at least one cassandra host is required")
	}
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Consistency != "" {
		consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid consistency %q", cfg.Consistency)
		}
		cluster.Consistency = consistency
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return cluster, nil
}

// Open connects to the cluster.
func Open(cfg Config, logger *zap.Logger) (*Cassandra, error) {
	cluster, err := NewCluster(cfg)
	if err != nil {
		return nil, err
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to cassandra")
	}
	return &Cassandra{cluster: cluster, session: session, logger: logging.OrNop(logger)}, nil
}

// Close closes the session.
func (c *Cassandra) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

func (c *Cassandra) current() (*gocql.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, errors.New("cassandra session is closed")
	}
	return c.session, nil
}

// Exec runs one statement and collects its rows.
func (c *Cassandra) Exec(ctx context.Context, stmt string) (*executor.ResultSet, error) {
	if m := usePattern.FindStringSubmatch(stmt); m != nil {
		return &executor.ResultSet{}, c.use(keyspaceName(m[1]))
	}

	session, err := c.current()
	if err != nil {
		return nil, err
	}
	iter := session.Query(stmt).WithContext(ctx).Iter()
	columns := iter.Columns()
	rows, err := iter.SliceMap()
	if closeErr := iter.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	out := &executor.ResultSet{Columns: make([]string, len(columns))}
	for i, col := range columns {
		out.Columns[i] = col.Name
	}
	for _, row := range rows {
		out.Rows = append(out.Rows, schema.Row(row))
	}
	return out, nil
}

// ExecBatch runs stmts as one logged batch.
func (c *Cassandra) ExecBatch(ctx context.Context, stmts []string) error {
	session, err := c.current()
	if err != nil {
		return err
	}
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, stmt := range stmts {
		batch.Query(stmt)
	}
	return session.ExecuteBatch(batch)
}

// use switches the session to keyspace. gocql sessions are bound to a
// keyspace at creation, so a new session replaces the current one.
func (c *Cassandra) use(keyspace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cluster := *c.cluster
	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrapf(err, "failed to switch to keyspace %s", keyspace)
	}
	if c.session != nil {
		c.session.Close()
	}
	c.session = session
	c.cluster = &cluster
	c.logger.Info("switched keyspace", zap.String("keyspace", keyspace))
	return nil
}

func keyspaceName(s string) string {
	if len(s) >= 2 && s[0] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return strings.ToLower(s)
}
