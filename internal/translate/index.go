package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// IndexTranslator handles secondary index DDL.
type IndexTranslator struct{}

func (t *IndexTranslator) Name() string { return "index" }

func (t *IndexTranslator) CanHandle(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.CreateIndex, *ast.DropIndex:
		return true
	}
	return false
}

func (t *IndexTranslator) Translate(stmt ast.Statement) (Translation, error) {
	switch s := stmt.(type) {
	case *ast.CreateIndex:
		return t.createIndex(s)
	case *ast.DropIndex:
		return t.dropIndex(s)
	}
	return Translation{}, wrongStatement(t, stmt)
}

func (t *IndexTranslator) createIndex(s *ast.CreateIndex) (Translation, error) {
	r := &renderer{}
	if s.Table.Name == "" {
		return Translation{}, cqlerr.MissingClausef("CREATE INDEX requires a table")
	}
	if len(s.Columns) == 0 {
		return Translation{}, cqlerr.MissingClausef("CREATE INDEX on %s names no column", s.Table)
	}

	if s.Unique {
		r.warn("UNIQUE indexes are not supported by CQL; created as a regular secondary index")
	}
	if len(s.Columns) > 1 {
		r.warn("CQL secondary indexes cover a single column; only %s is indexed", indexColumnLabel(s.Columns[0]))
	}
	if s.Where != nil {
		r.warn("partial indexes are not supported by CQL; WHERE clause dropped")
	}
	if len(s.Include) > 0 {
		r.warn("INCLUDE columns are not supported by CQL; dropped")
	}

	column, err := indexedColumn(r, s.Columns[0])
	if err != nil {
		return Translation{}, err
	}

	var b strings.Builder
	b.WriteString("CREATE INDEX ")
	if s.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	if s.Name != "" {
		b.WriteString(quoteIdentifier(s.Name))
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "ON %s (%s)", tableName(s.Table), quoteIdentifier(column))
	return r.result(b.String()), nil
}

func indexColumnLabel(c ast.IndexColumn) string {
	if c.Name != "" {
		return c.Name
	}
	if c.Expr != nil && c.Expr.Type == ast.ExprColumn {
		return c.Expr.Column
	}
	return "the first expression"
}

// indexedColumn resolves the column of an index element. For a functional
// element the first referenced column is indexed instead.
func indexedColumn(r *renderer, c ast.IndexColumn) (string, error) {
	if c.Desc {
		r.warn("index sort order is not supported by CQL; ignored")
	}
	if c.Name != "" {
		return c.Name, nil
	}
	if c.Expr == nil {
		return "", cqlerr.MissingClausef("CREATE INDEX element names no column")
	}
	if c.Expr.Type == ast.ExprColumn && c.Expr.Column != "" {
		return c.Expr.Column, nil
	}

	var column string
	ast.Walk(c.Expr, func(e *ast.Expr) bool {
		if e.Type == ast.ExprColumn && e.Column != "" && e.Column != "*" {
			column = e.Column
			return false
		}
		return true
	})
	if column == "" {
		return "", cqlerr.MissingClausef("CREATE INDEX expression references no column")
	}
	r.warn("functional indexes are not supported by CQL; indexing column %s directly", column)
	return column, nil
}

func (t *IndexTranslator) dropIndex(s *ast.DropIndex) (Translation, error) {
	name, _, err := ResolveIndexName(s.Name)
	if err != nil {
		return Translation{}, err
	}
	if name.Keyspace == "" {
		name.Keyspace = s.Table.Keyspace
	}

	ifExists := ""
	if s.IfExists {
		ifExists = "IF EXISTS "
	}
	return Translation{Text: "DROP INDEX " + ifExists + tableName(name)}, nil
}

// indexNameStrategy recovers an index name from one known shape of the DROP
// INDEX name node.
type indexNameStrategy struct {
	name    string
	extract func(ast.Node) (ast.TableName, bool)
}

// indexNameStrategies are tried in order; the first success wins.
var indexNameStrategies = []indexNameStrategy{
	{"direct", directIndexName},
	{"nested-name", nestedIndexName("name")},
	{"nested-column", nestedIndexName("column")},
	{"nested-value", nestedIndexName("value")},
	{"table.column", tableColumnIndexName},
	{"dotted-string", dottedIndexName},
	{"serialized", serializedIndexName},
}

// ResolveIndexName extracts the index name from a raw DROP INDEX name node.
// It returns the name and the strategy that recovered it, or an
// AmbiguousNameResolutionError when no strategy applies.
func ResolveIndexName(n ast.Node) (ast.TableName, string, error) {
	if n != nil {
		for _, s := range indexNameStrategies {
			if name, ok := s.extract(n); ok {
				return name, s.name, nil
			}
		}
	}
	err := cqlerr.AmbiguousNamef("could not determine the index name to drop")
	return ast.TableName{}, "", cqlerr.WithHint(err, "write the index name without qualifiers, e.g. DROP INDEX idx_name")
}

func identifier(s string) (string, bool) {
	s = unquote(s)
	if s == "" || strings.ContainsAny(s, ".\n") {
		return "", false
	}
	return s, true
}

func directIndexName(n ast.Node) (ast.TableName, bool) {
	s, ok := n.(string)
	if !ok {
		return ast.TableName{}, false
	}
	name, ok := identifier(s)
	return ast.TableName{Name: name}, ok
}

func nestedIndexName(key string) func(ast.Node) (ast.TableName, bool) {
	return func(n ast.Node) (ast.TableName, bool) {
		m, ok := ast.AsMap(n)
		if !ok {
			return ast.TableName{}, false
		}
		if _, qualified := m["table"]; qualified && key == "column" {
			return ast.TableName{}, false
		}
		s, ok := m[key].(string)
		if !ok {
			return ast.TableName{}, false
		}
		name, ok := identifier(s)
		return ast.TableName{Name: name}, ok
	}
}

// tableColumnIndexName handles {"table": "ks", "column": "idx"}, where the
// column may itself be wrapped as {"expr": {"value": "idx"}}.
func tableColumnIndexName(n ast.Node) (ast.TableName, bool) {
	m, ok := ast.AsMap(n)
	if !ok {
		return ast.TableName{}, false
	}
	column, ok := m["column"]
	if !ok {
		return ast.TableName{}, false
	}
	name, ok := identifier(wrappedString(column))
	if !ok {
		return ast.TableName{}, false
	}
	keyspace, _ := m["table"].(string)
	return ast.TableName{Keyspace: unquote(keyspace), Name: name}, true
}

func wrappedString(n ast.Node) string {
	switch v := n.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"expr", "value", "name"} {
			if inner, ok := v[key]; ok {
				return wrappedString(inner)
			}
		}
	}
	return ""
}

func dottedIndexName(n ast.Node) (ast.TableName, bool) {
	s, ok := n.(string)
	if !ok {
		return ast.TableName{}, false
	}
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return ast.TableName{}, false
	}
	name, ok := identifier(s[i+1:])
	if !ok {
		return ast.TableName{}, false
	}
	return ast.TableName{Keyspace: unquote(s[:i]), Name: name}, true
}

var serializedNamePattern = regexp.MustCompile(`"(?:name|value|column)"\s*:\s*"([A-Za-z_]\w*)"`)

// serializedIndexName is the last resort: it scans the serialized node for
// the first identifier-valued name, value or column member.
func serializedIndexName(n ast.Node) (ast.TableName, bool) {
	data, err := json.Marshal(n)
	if err != nil {
		return ast.TableName{}, false
	}
	m := serializedNamePattern.FindSubmatch(data)
	if m == nil {
		return ast.TableName{}, false
	}
	return ast.TableName{Name: string(m[1])}, true
}
