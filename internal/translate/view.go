package translate

import (
	"fmt"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// fallbackKey is the primary key assumed for views whose definition has no
// equality predicate.
const fallbackKey = "id"

// ViewTranslator maps views onto materialized views.
type ViewTranslator struct{}

func (t *ViewTranslator) Name() string { return "view" }

func (t *ViewTranslator) CanHandle(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.CreateView, *ast.DropView:
		return true
	}
	return false
}

func (t *ViewTranslator) Translate(stmt ast.Statement) (Translation, error) {
	switch s := stmt.(type) {
	case *ast.CreateView:
		return t.createView(s)
	case *ast.DropView:
		if s.Name.Name == "" {
			return Translation{}, missingName("DROP VIEW")
		}
		ifExists := ""
		if s.IfExists {
			ifExists = "IF EXISTS "
		}
		return Translation{Text: "DROP MATERIALIZED VIEW " + ifExists + tableName(s.Name)}, nil
	}
	return Translation{}, wrongStatement(t, stmt)
}

func (t *ViewTranslator) createView(s *ast.CreateView) (Translation, error) {
	r := &renderer{}
	if s.Name.Name == "" {
		return Translation{}, missingName("CREATE VIEW")
	}
	def := s.Definition
	if def == nil {
		err := cqlerr.MissingClausef("CREATE VIEW %s has no SELECT definition", s.Name)
		return Translation{}, cqlerr.WithHint(err, "materialized views need an explicit AS SELECT ... FROM ...")
	}

	base, err := baseTable(r, def.From, "CREATE VIEW")
	if err != nil {
		return Translation{}, err
	}
	columns, err := columnList(r, def.Columns)
	if err != nil {
		return Translation{}, err
	}

	key, keyed := firstEquality(def.Where)
	if !keyed {
		key = fallbackKey
		r.warn("no equality predicate to infer the view key from; using %s", fallbackKey)
	}

	var where string
	switch {
	case def.Where == nil:
		where = quoteIdentifier(key) + " IS NOT NULL"
	default:
		pred, err := r.expr(def.Where)
		if err != nil {
			return Translation{}, err
		}
		where = pred
		if !keyed {
			where = pred + " AND " + quoteIdentifier(key) + " IS NOT NULL"
		}
	}

	if len(def.GroupBy) > 0 || def.Having != nil {
		r.warn("materialized views cannot aggregate; GROUP BY and HAVING dropped")
	}
	if len(def.OrderBy) > 0 {
		r.warn("ORDER BY in a view definition is not supported; dropped")
	}

	ifNotExists := ""
	if s.IfNotExists || s.OrReplace {
		ifNotExists = "IF NOT EXISTS "
	}
	if s.OrReplace {
		r.warn("OR REPLACE is not supported for materialized views; using IF NOT EXISTS")
	}

	lines := []string{
		fmt.Sprintf("CREATE MATERIALIZED VIEW %s%s AS", ifNotExists, tableName(s.Name)),
		"  SELECT " + columns,
		"  FROM " + tableName(base),
		"  WHERE " + where,
		"  PRIMARY KEY (" + quoteIdentifier(key) + ")",
	}
	return r.result(strings.Join(lines, "\n")), nil
}
