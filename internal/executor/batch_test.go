package executor

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/cqlbridge/internal/cqlerr"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "SELECT * FROM t", []string{"SELECT * FROM t"}},
		{"terminated", "SELECT * FROM t;", []string{"SELECT * FROM t"}},
		{"sequence", "CREATE KEYSPACE k;\nUSE k;\n", []string{"CREATE KEYSPACE k", "USE k"}},
		{"quoted terminator", "INSERT INTO t (a) VALUES ('x;y'); SELECT 1", []string{"INSERT INTO t (a) VALUES ('x;y')", "SELECT 1"}},
		{"escaped quote", "INSERT INTO t (a) VALUES ('it''s;'); USE k", []string{"INSERT INTO t (a) VALUES ('it''s;')", "USE k"}},
		{"quoted identifier", `SELECT "a;b" FROM t`, []string{`SELECT "a;b" FROM t`}},
		{"comments", "-- note; here\nUSE k; // other;\nUSE j", []string{"USE k", "USE j"}},
		{"empty", " ;; \n", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitStatements(tc.text))
		})
	}
}

func TestExtractBatch(t *testing.T) {
	text := "-- Cassandra batches are atomic per partition only.\n" +
		"BEGIN BATCH\n" +
		"  INSERT INTO t (id) VALUES (1);\n" +
		"  INSERT INTO t (id) VALUES (2);\n" +
		"APPLY BATCH;"
	stmts, ok, err := ExtractBatch(text)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"INSERT INTO t (id) VALUES (1)", "INSERT INTO t (id) VALUES (2)"}, stmts)

	stmts, ok, err = ExtractBatch("begin unlogged batch insert into t (id) values (3); apply batch")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"insert into t (id) values (3)"}, stmts)

	_, ok, err = ExtractBatch("SELECT * FROM t")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractBatchIgnoresQuotedMarkers(t *testing.T) {
	_, ok, err := ExtractBatch("INSERT INTO notes (id, body) VALUES (1, 'BEGIN BATCH please')")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ExtractBatch(`SELECT "begin batch" FROM t`)
	require.NoError(t, err)
	assert.False(t, ok)

	text := "BEGIN BATCH\n" +
		"  INSERT INTO notes (id, body) VALUES (1, 'then APPLY BATCH; done');\n" +
		"  INSERT INTO notes (id, body) VALUES (2, 'APPLY BATCH');\n" +
		"APPLY BATCH;"
	stmts, ok, err := ExtractBatch(text)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"INSERT INTO notes (id, body) VALUES (1, 'then APPLY BATCH; done')",
		"INSERT INTO notes (id, body) VALUES (2, 'APPLY BATCH')",
	}, stmts)
}

func TestExtractBatchErrors(t *testing.T) {
	for _, text := range []string{
		"BEGIN BATCH INSERT INTO t (id) VALUES (1);",
		"BEGIN BATCH INSERT INTO t (id) VALUES (1, 'APPLY BATCH');",
		"BEGIN BATCH APPLY BATCH;",
		"BEGIN BATCH INSERT INTO t (id) VALUES (1); APPLY BATCH; DROP TABLE t",
	} {
		_, ok, err := ExtractBatch(text)
		require.Error(t, err, text)
		assert.True(t, ok)
		assert.True(t, errors.Is(err, cqlerr.ErrInvalidStatement), text)
	}
}
