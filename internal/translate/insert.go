package translate

import (
	"fmt"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// BatchDisclaimer heads every batch produced from a multi-row INSERT.
const BatchDisclaimer = "-- Batch is not atomic: rows in different partitions may be applied independently."

// InsertTranslator handles INSERT, expanding multi-row statements into a
// batch.
type InsertTranslator struct{}

func (t *InsertTranslator) Name() string { return "insert" }

func (t *InsertTranslator) CanHandle(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.Insert)
	return ok
}

func (t *InsertTranslator) Translate(stmt ast.Statement) (Translation, error) {
	s, ok := stmt.(*ast.Insert)
	if !ok {
		return Translation{}, wrongStatement(t, stmt)
	}
	r := &renderer{}

	if s.Table.Name == "" {
		return Translation{}, cqlerr.MissingClausef("INSERT requires a target table")
	}
	if s.Select != nil {
		return Translation{}, insertSubquery()
	}
	if len(s.Columns) == 0 {
		err := cqlerr.MissingClausef("INSERT INTO %s has no column list", s.Table)
		return Translation{}, cqlerr.WithHint(err, "CQL requires the columns to be named: INSERT INTO t (a, b) VALUES (...)")
	}

	rows, err := insertRows(s.Values)
	if err != nil {
		return Translation{}, err
	}
	if len(rows) == 0 {
		return Translation{}, cqlerr.Invalidf("INSERT INTO %s has no rows", s.Table)
	}

	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tableName(s.Table), strings.Join(quoteIdentifiers(s.Columns), ", "))
	stmts := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Columns) {
			return Translation{}, cqlerr.Invalidf("row %d of INSERT INTO %s has %d values for %d columns",
				i+1, s.Table, len(row), len(s.Columns))
		}
		values := make([]string, 0, len(row))
		for _, cell := range row {
			v, err := r.value(cell)
			if err != nil {
				return Translation{}, err
			}
			values = append(values, v)
		}
		stmts = append(stmts, prefix+"("+strings.Join(values, ", ")+")")
	}

	if len(stmts) == 1 {
		return r.result(stmts[0]), nil
	}
	r.warn("%d rows were expanded into a batch; CQL batches are not atomic across partitions", len(stmts))
	return r.result(renderBatch(stmts)), nil
}

func renderBatch(stmts []string) string {
	var b strings.Builder
	b.WriteString(BatchDisclaimer)
	b.WriteString("\nBEGIN BATCH\n")
	for _, s := range stmts {
		b.WriteString("  ")
		b.WriteString(s)
		b.WriteString(";\n")
	}
	b.WriteString("APPLY BATCH;")
	return b.String()
}

func insertSubquery() error {
	err := cqlerr.Unsupportedf("INSERT ... SELECT is not supported by CQL")
	return cqlerr.WithHint(err, "query the source rows first and insert them as literal values")
}

// insertRows decodes the row source. Rows arrive as a list of lists, a list
// of expr_list objects, a {"type": "values", "values": [...]} wrapper or a
// single flat row.
func insertRows(n ast.Node) ([][]*ast.Expr, error) {
	switch v := n.(type) {
	case nil:
		return nil, nil
	case *ast.Expr:
		if v == nil {
			return nil, nil
		}
		if v.Type == ast.ExprSubquery {
			return nil, insertSubquery()
		}
	case map[string]any:
		switch ast.NodeType(v) {
		case "values":
			return insertRows(v["values"])
		case "select", "subquery":
			return nil, insertSubquery()
		}
		if _, ok := v["ast"]; ok {
			return nil, insertSubquery()
		}
	}

	if isRow(n) {
		if list, ok := ast.AsList(n); ok && allRows(list) {
			return rowsOf(list)
		}
		if e, ok := n.(*ast.Expr); ok && allRows(exprNodes(e.Items)) {
			return rowsOf(exprNodes(e.Items))
		}
		row, err := rowOf(n)
		if err != nil {
			return nil, err
		}
		return [][]*ast.Expr{row}, nil
	}
	return nil, cqlerr.Invalidf("unrecognised INSERT value list of type %T", n)
}

func rowsOf(list []any) ([][]*ast.Expr, error) {
	rows := make([][]*ast.Expr, 0, len(list))
	for _, item := range list {
		row, err := rowOf(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func allRows(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, item := range list {
		if !isRow(item) {
			return false
		}
	}
	return true
}

func isRow(n ast.Node) bool {
	if _, ok := ast.AsList(n); ok {
		return true
	}
	switch ast.NodeType(n) {
	case string(ast.ExprList):
		return true
	}
	return false
}

func rowOf(n ast.Node) ([]*ast.Expr, error) {
	if e, ok := n.(*ast.Expr); ok {
		for _, cell := range e.Items {
			if cell != nil && cell.Type == ast.ExprSubquery {
				return nil, insertSubquery()
			}
		}
		return e.Items, nil
	}
	e, err := ast.ExprFromNode(n)
	if err != nil {
		return nil, err
	}
	if e.Type != ast.ExprList {
		return []*ast.Expr{e}, nil
	}
	for _, cell := range e.Items {
		if cell.Type == ast.ExprSubquery {
			return nil, insertSubquery()
		}
	}
	return e.Items, nil
}

func exprNodes(list []*ast.Expr) []any {
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}
