package translate

import (
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// UpdateTranslator handles UPDATE.
type UpdateTranslator struct{}

func (t *UpdateTranslator) Name() string { return "update" }

func (t *UpdateTranslator) CanHandle(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.Update)
	return ok
}

func (t *UpdateTranslator) Translate(stmt ast.Statement) (Translation, error) {
	s, ok := stmt.(*ast.Update)
	if !ok {
		return Translation{}, wrongStatement(t, stmt)
	}
	r := &renderer{}

	if s.Table.Name == "" {
		return Translation{}, cqlerr.MissingClausef("UPDATE requires a target table")
	}
	if err := singleSource("UPDATE", s.From); err != nil {
		return Translation{}, err
	}
	if len(s.Set) == 0 {
		return Translation{}, cqlerr.MissingClausef("UPDATE %s has no SET clause", s.Table)
	}
	where, err := mutationPredicate(r, "UPDATE", s.Table, s.Where)
	if err != nil {
		return Translation{}, err
	}

	assignments := make([]string, 0, len(s.Set))
	for _, a := range s.Set {
		if a.Column == "" {
			return Translation{}, cqlerr.Invalidf("UPDATE %s assigns to an unnamed column", s.Table)
		}
		v, err := r.value(a.Value)
		if err != nil {
			return Translation{}, err
		}
		assignments = append(assignments, quoteIdentifier(a.Column)+" = "+v)
	}
	dropOrderAndLimit(r, "UPDATE", s.OrderBy, s.Limit)

	return r.result("UPDATE " + tableName(s.Table) + " SET " + strings.Join(assignments, ", ") + " WHERE " + where), nil
}

// DeleteTranslator handles DELETE, including deletion of specific columns.
type DeleteTranslator struct{}

func (t *DeleteTranslator) Name() string { return "delete" }

func (t *DeleteTranslator) CanHandle(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.Delete)
	return ok
}

func (t *DeleteTranslator) Translate(stmt ast.Statement) (Translation, error) {
	s, ok := stmt.(*ast.Delete)
	if !ok {
		return Translation{}, wrongStatement(t, stmt)
	}
	r := &renderer{}

	if s.Table.Name == "" {
		return Translation{}, cqlerr.MissingClausef("DELETE requires a target table")
	}
	if err := singleSource("DELETE", s.From); err != nil {
		return Translation{}, err
	}
	where, err := mutationPredicate(r, "DELETE", s.Table, s.Where)
	if err != nil {
		return Translation{}, err
	}
	dropOrderAndLimit(r, "DELETE", s.OrderBy, s.Limit)

	columns := ""
	if len(s.Columns) > 0 {
		columns = strings.Join(quoteIdentifiers(s.Columns), ", ") + " "
	}
	return r.result("DELETE " + columns + "FROM " + tableName(s.Table) + " WHERE " + where), nil
}

// singleSource rejects mutations that read from additional tables.
func singleSource(statement string, from []ast.TableRef) error {
	for _, ref := range from {
		if ref.Join != "" {
			return cqlerr.Unsupportedf("%s with JOIN is not supported by CQL", statement)
		}
	}
	if len(from) > 1 {
		return cqlerr.Unsupportedf("%s over multiple tables is not supported by CQL", statement)
	}
	return nil
}

func mutationPredicate(r *renderer, statement string, table ast.TableName, where *ast.Expr) (string, error) {
	if where == nil {
		err := cqlerr.MissingClausef("%s %s has no WHERE clause; CQL does not allow unconditional mutations", statement, table)
		return "", cqlerr.WithHint(err, "restrict the statement by primary key, or use TRUNCATE to empty the table")
	}
	return r.expr(where)
}

func dropOrderAndLimit(r *renderer, statement string, order []ast.OrderItem, limit ast.Node) {
	if len(order) > 0 {
		r.warn("ORDER BY is not supported in %s; dropped", statement)
	}
	if limitGiven(limit) {
		r.warn("LIMIT is not supported in %s; dropped", statement)
	}
}
