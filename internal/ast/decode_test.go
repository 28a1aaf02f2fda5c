package ast

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/cqlbridge/internal/cqlerr"
)

func TestDecodeSelect(t *testing.T) {
	stmt, err := Decode([]byte(`{
		"kind": "SELECT",
		"columns": [{"expr": {"type": "column_ref", "table": "u", "column": "id"}}],
		"from": [{"name": "users", "alias": "u"}],
		"where": {"type": "binary_expr", "operator": "=",
			"left": {"type": "column_ref", "column": {"expr": {"type": "default", "value": "status"}}},
			"right": {"type": "single_quote_string", "value": "active"}},
		"limit": {"separator": "", "value": [{"type": "number", "value": 5}]}
	}`))
	require.NoError(t, err)

	sel, ok := stmt.(*Select)
	require.True(t, ok)
	assert.Equal(t, KindSelect, sel.Kind())
	require.Len(t, sel.Columns, 1)
	assert.Equal(t, &Expr{Type: ExprColumn, Table: "u", Column: "id"}, sel.Columns[0].Expr)
	assert.Equal(t, "users", sel.From[0].Name)
	assert.Equal(t, Eq(&Expr{Type: ExprColumn, Column: "status"}, Str("active")), sel.Where)

	n, ok := Integer(sel.Limit.(map[string]any)["value"].([]any)[0])
	require.True(t, ok)
	assert.EqualValues(t, 5, n)
}

func TestDecodeSingleStatementArray(t *testing.T) {
	stmt, err := Decode([]byte(`[{"kind": "use", "keyspace": "shop"}]`))
	require.NoError(t, err)
	assert.Equal(t, &Use{Keyspace: "shop"}, stmt)

	_, err = Decode([]byte(`[{"kind": "use", "keyspace": "a"}, {"kind": "use", "keyspace": "b"}]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrInvalidStatement))
}

func TestDecodeErrors(t *testing.T) {
	for _, input := range []string{
		`{"name": "x"}`,
		`{"kind": "merge"}`,
	} {
		_, err := Decode([]byte(input))
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, cqlerr.ErrInvalidStatement), input)
	}

	_, err := Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	in := &Update{
		Table: TableName{Keyspace: "shop", Name: "users"},
		Set:   []Assignment{{Column: "name", Value: Str("ann")}},
		Where: And(Eq(Col("id"), Int(1)), Binary(">", Col("age"), Float(1.5))),
	}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := JSONParser{}.Parse(string(data))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestExprFromNodeShapes(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want *Expr
	}{
		{"nil", nil, Null()},
		{"string", "x", Str("x")},
		{"bool", true, Bool(true)},
		{"int", 3, Int(3)},
		{"list", []any{"a", 1}, List(Str("a"), Int(1))},
		{"bare column", map[string]any{"column": "c"}, Col("c")},
		{"star column", map[string]any{"type": "column_ref", "column": "*"}, Star()},
		{"bool string", map[string]any{"type": "bool", "value": "TRUE"}, Bool(true)},
		{
			"aggregate",
			map[string]any{"type": "aggr_func", "name": "count", "args": map[string]any{"expr": map[string]any{"type": "star"}, "distinct": "DISTINCT"}},
			&Expr{Type: ExprAggregate, Name: "count", Args: []*Expr{Star()}, Distinct: true},
		},
		{
			"qualified function name",
			map[string]any{"type": "function", "name": map[string]any{"name": []any{map[string]any{"value": "NOW"}}}},
			&Expr{Type: ExprFunction, Name: "NOW"},
		},
		{"param", map[string]any{"type": "param", "value": "id"}, &Expr{Type: ExprParam, Name: "id"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExprFromNode(tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ExprFromNode(map[string]any{"type": "window"})
	require.Error(t, err)
}

func TestWalkStopsEarly(t *testing.T) {
	e := And(Eq(Col("a"), Int(1)), Eq(Col("b"), Int(2)))
	var seen []string
	Walk(e, func(x *Expr) bool {
		if x.Type == ExprColumn {
			seen = append(seen, x.Column)
			return false
		}
		return true
	})
	assert.Equal(t, []string{"a"}, seen)
}

func TestOperationFor(t *testing.T) {
	for _, kind := range AllKinds() {
		stmt, ok := New(kind)
		require.True(t, ok)
		assert.NotEmpty(t, OperationFor(stmt), kind.String())
	}
	assert.Equal(t, OpDrop, OperationFor(&DropIndex{}))
	assert.Empty(t, OperationFor(nil))
}

func TestParseKind(t *testing.T) {
	for _, kind := range AllKinds() {
		got, ok := ParseKind(kind.String())
		require.True(t, ok)
		assert.Equal(t, kind, got)
	}
	_, ok := ParseKind("merge")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(-1).String())
}
