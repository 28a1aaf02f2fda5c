package translate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/metrics"
	"github.com/koba/cqlbridge/internal/schema"
)

func TestDispatchCoversEveryKind(t *testing.T) {
	engine := NewEngine(Options{})
	for _, kind := range ast.AllKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			stmt, ok := ast.New(kind)
			require.True(t, ok)

			var claimed []string
			for _, tr := range engine.Translators() {
				if tr.CanHandle(stmt) {
					claimed = append(claimed, tr.Name())
				}
			}
			require.Len(t, claimed, 1, "translators claiming %s: %v", kind, claimed)

			tr, err := engine.Dispatch(stmt)
			require.NoError(t, err)
			assert.Equal(t, claimed[0], tr.Name())
		})
	}
}

func TestDispatchDescribe(t *testing.T) {
	engine := NewEngine(Options{})
	for object, want := range map[ast.DescribeObject]string{
		ast.DescribeKeyspaces: "keyspace",
		ast.DescribeDatabases: "keyspace",
		ast.DescribeSchemas:   "keyspace",
		ast.DescribeTables:    "table",
		ast.DescribeTable:     "table",
	} {
		tr, err := engine.Dispatch(&ast.Describe{Object: object})
		require.NoError(t, err)
		assert.Equal(t, want, tr.Name(), "object %s", object)
	}
}

func TestTranslateNilStatement(t *testing.T) {
	_, err := NewEngine(Options{}).Translate(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrNoTranslator))
}

func TestTranslatorRejectsForeignStatement(t *testing.T) {
	_, err := (&IndexTranslator{}).Translate(&ast.Select{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrNoTranslator))
	assert.Contains(t, err.Error(), "index translator")
}

func TestSingleRowInsertKeepsArity(t *testing.T) {
	engine := NewEngine(Options{})
	for n := 1; n <= 6; n++ {
		columns := make([]string, n)
		row := make([]*ast.Expr, n)
		wantCols := make([]string, n)
		wantVals := make([]string, n)
		for i := 0; i < n; i++ {
			columns[i] = fmt.Sprintf("c%d", i)
			row[i] = ast.Int(int64(i * 10))
			wantCols[i] = columns[i]
			wantVals[i] = fmt.Sprint(i * 10)
		}

		out, err := engine.Translate(&ast.Insert{
			Table:   ast.TableName{Name: "t"},
			Columns: columns,
			Values:  ast.Rows(row),
		})
		require.NoError(t, err)
		want := fmt.Sprintf("INSERT INTO t (%s) VALUES (%s)",
			strings.Join(wantCols, ", "), strings.Join(wantVals, ", "))
		assert.Equal(t, want, out.Text)
		assert.Empty(t, out.Warnings)
	}
}

func TestMultiRowInsertBecomesBatch(t *testing.T) {
	engine := NewEngine(Options{})
	for rows := 2; rows <= 5; rows++ {
		values := make([][]*ast.Expr, rows)
		for i := range values {
			values[i] = []*ast.Expr{ast.Int(int64(i)), ast.Str(fmt.Sprintf("row %d", i))}
		}

		out, err := engine.Translate(&ast.Insert{
			Table:   ast.TableName{Name: "t"},
			Columns: []string{"id", "label"},
			Values:  ast.Rows(values...),
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out.Text, BatchDisclaimer), out.Text)
		assert.Contains(t, out.Text, "\nBEGIN BATCH\n")
		assert.True(t, strings.HasSuffix(out.Text, "APPLY BATCH;"))
		assert.Equal(t, rows, strings.Count(out.Text, "INSERT INTO t (id, label) VALUES"))
		for i := 0; i < rows; i++ {
			assert.Contains(t, out.Text, fmt.Sprintf("  INSERT INTO t (id, label) VALUES (%d, 'row %d');\n", i, i))
		}
		require.Len(t, out.Warnings, 1)
	}
}

func TestMutationsRequirePredicate(t *testing.T) {
	engine := NewEngine(Options{})
	where := ast.Eq(ast.Col("id"), ast.Int(1))

	update := &ast.Update{
		Table: ast.TableName{Name: "users"},
		Set:   []ast.Assignment{{Column: "name", Value: ast.Str("x")}},
	}
	_, err := engine.Translate(update)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrMissingRequiredClause))

	update.Where = where
	out, err := engine.Translate(update)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = 'x' WHERE id = 1", out.Text)

	del := &ast.Delete{Table: ast.TableName{Name: "users"}}
	_, err = engine.Translate(del)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrMissingRequiredClause))

	del.Where = where
	out, err = engine.Translate(del)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = 1", out.Text)
}

func TestPrimaryKeyFallsBackToID(t *testing.T) {
	engine := NewEngine(Options{})
	stmt := &ast.CreateTable{
		Table:   ast.TableName{Name: "notes"},
		Columns: []schema.Column{{Name: "body", Type: "TEXT"}},
	}
	_, err := engine.Translate(stmt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrMissingRequiredClause))
	assert.Equal(t, "MissingRequiredClauseError", cqlerr.Category(err))

	stmt.Columns = append(stmt.Columns, schema.Column{Name: "id", Type: "BIGINT"})
	out, err := engine.Translate(stmt)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Text, "PRIMARY KEY (id)\n)"), out.Text)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "using column id")
}

func TestModifyColumnIsRejected(t *testing.T) {
	_, err := NewEngine(Options{}).Translate(&ast.AlterTable{
		Table: ast.TableName{Name: "users"},
		Specs: []ast.AlterSpec{{Action: ast.AlterModify, Column: schema.Column{Name: "age", Type: "INT"}}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrUnsupportedFeature))
	assert.NotEmpty(t, errors.FlattenHints(err))
}

func TestKeyspaceListingsRenderIdentically(t *testing.T) {
	engine := NewEngine(Options{})
	var outputs []string
	for _, text := range []string{"SHOW DATABASES", "SHOW SCHEMAS", "show keyspaces;"} {
		out, _, err := engine.TranslateText(text, nil)
		require.NoError(t, err, text)
		outputs = append(outputs, out.Text)
	}
	for _, stmt := range []ast.Statement{
		&ast.Describe{Object: ast.DescribeDatabases},
		&ast.Describe{Object: ast.DescribeSchemas},
		&ast.Describe{Object: ast.DescribeKeyspaces},
		&ast.Describe{Object: ast.DescribeTable, Table: ast.TableName{Name: "databases"}},
	} {
		out, err := engine.Translate(stmt)
		require.NoError(t, err)
		outputs = append(outputs, out.Text)
	}
	for _, out := range outputs {
		assert.Equal(t, "DESCRIBE KEYSPACES", out)
	}
}

func TestNormalizeText(t *testing.T) {
	out, ok := NormalizeText("DESC TABLE `shop`.`users`;")
	require.True(t, ok)
	assert.Equal(t, "DESCRIBE TABLE shop.users", out)

	_, ok = NormalizeText("SELECT * FROM users")
	assert.False(t, ok)
}

func TestResolveIndexNameStrategies(t *testing.T) {
	tests := []struct {
		name     string
		node     ast.Node
		want     ast.TableName
		strategy string
	}{
		{"plain", "idx_a", ast.TableName{Name: "idx_a"}, "direct"},
		{"quoted", "`idx_a`", ast.TableName{Name: "idx_a"}, "direct"},
		{"name member", map[string]any{"name": "idx_b"}, ast.TableName{Name: "idx_b"}, "nested-name"},
		{"column member", map[string]any{"column": "idx_c"}, ast.TableName{Name: "idx_c"}, "nested-column"},
		{"value member", map[string]any{"value": "idx_d"}, ast.TableName{Name: "idx_d"}, "nested-value"},
		{
			"table.column",
			map[string]any{"table": nil, "column": map[string]any{"expr": map[string]any{"value": "idx_status"}}},
			ast.TableName{Name: "idx_status"},
			"table.column",
		},
		{
			"qualified table.column",
			map[string]any{"table": "shop", "column": "idx_e"},
			ast.TableName{Keyspace: "shop", Name: "idx_e"},
			"table.column",
		},
		{"dotted", "shop.idx_f", ast.TableName{Keyspace: "shop", Name: "idx_f"}, "dotted-string"},
		{
			"serialized",
			[]any{map[string]any{"type": "ident", "value": "idx_g"}},
			ast.TableName{Name: "idx_g"},
			"serialized",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, strategy, err := ResolveIndexName(tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.strategy, strategy)
		})
	}

	for _, node := range []ast.Node{nil, 42, map[string]any{"kind": "x.y"}} {
		_, _, err := ResolveIndexName(node)
		require.Error(t, err)
		assert.True(t, errors.Is(err, cqlerr.ErrAmbiguousName), "node %v", node)
	}
}

func TestTranslateTextParseFailure(t *testing.T) {
	m := metrics.New()
	engine := NewEngine(Options{Metrics: m})

	_, stmt, err := engine.TranslateText("SELEC * FROM", ast.JSONParser{})
	require.Error(t, err)
	assert.Nil(t, stmt)
	assert.True(t, errors.Is(err, cqlerr.ErrParse))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Translations.WithLabelValues("unknown", "error")))

	_, _, err = engine.TranslateText(`{"kind": "select"}`, nil)
	require.Error(t, err)
}

func TestTranslateRecordsMetrics(t *testing.T) {
	m := metrics.New()
	engine := NewEngine(Options{Metrics: m})

	_, err := engine.Translate(&ast.Select{From: []ast.TableRef{{TableName: ast.TableName{Name: "t"}}}})
	require.NoError(t, err)
	_, err = engine.Translate(&ast.Delete{Table: ast.TableName{Name: "t"}})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Translations.WithLabelValues("select", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Translations.WithLabelValues("delete", "error")))
}

func TestSummary(t *testing.T) {
	assert.NotEmpty(t, Summary(ast.OpCreate))
	assert.Equal(t, Summary("select"), Summary(" SELECT "))
	assert.Empty(t, Summary("grant"))
}
