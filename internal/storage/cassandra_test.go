package storage

import (
	"context"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCluster(t *testing.T) {
	cluster, err := NewCluster(Config{
		Hosts:          []string{"10.0.0.1", "10.0.0.2"},
		Keyspace:       "shop",
		Consistency:    "local_quorum",
		Timeout:        3 * time.Second,
		ConnectTimeout: time.Second,
		Username:       "cassandra",
		Password:       "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cluster.Hosts)
	assert.Equal(t, "shop", cluster.Keyspace)
	assert.Equal(t, gocql.LocalQuorum, cluster.Consistency)
	assert.Equal(t, 3*time.Second, cluster.Timeout)
	assert.Equal(t, time.Second, cluster.ConnectTimeout)
	assert.Equal(t, gocql.PasswordAuthenticator{Username: "cassandra", Password: "secret"}, cluster.Authenticator)
}

func TestNewClusterDefaults(t *testing.T) {
	cluster, err := NewCluster(Config{Hosts: []string{"127.0.0.1"}})
	require.NoError(t, err)
	defaults := gocql.NewCluster("127.0.0.1")
	assert.Equal(t, defaults.Consistency, cluster.Consistency)
	assert.Equal(t, defaults.Timeout, cluster.Timeout)
	assert.Nil(t, cluster.Authenticator)
}

func TestNewClusterErrors(t *testing.T) {
	_, err := NewCluster(Config{})
	require.Error(t, err)

	_, err = NewCluster(Config{Hosts: []string{"127.0.0.1"}, Consistency: "most"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid consistency "most"`)
}

func TestClosedStore(t *testing.T) {
	c := &Cassandra{}
	_, err := c.Exec(context.Background(), "SELECT * FROM t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	require.Error(t, c.ExecBatch(context.Background(), []string{"INSERT INTO t (id) VALUES (1)"}))
}

func TestKeyspaceName(t *testing.T) {
	assert.Equal(t, "shop", keyspaceName("Shop"))
	assert.Equal(t, "Shop", keyspaceName(`"Shop"`))
	assert.Equal(t, `a"b`, keyspaceName(`"a""b"`))

	m := usePattern.FindStringSubmatch("use Shop;")
	require.NotNil(t, m)
	assert.Equal(t, "Shop", m[1])
	assert.Nil(t, usePattern.FindStringSubmatch("USE a; SELECT 1"))
}
