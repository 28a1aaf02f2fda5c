package translate

import (
	"strconv"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// DefaultLimit is applied to queries without a usable LIMIT.
const DefaultLimit = 100

// SelectTranslator handles queries.
type SelectTranslator struct {
	defaultLimit int64
}

// NewSelectTranslator creates a query translator. A non-positive
// defaultLimit selects DefaultLimit.
func NewSelectTranslator(defaultLimit int64) *SelectTranslator {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &SelectTranslator{defaultLimit: defaultLimit}
}

func (t *SelectTranslator) Name() string { return "select" }

func (t *SelectTranslator) CanHandle(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.Select)
	return ok
}

func (t *SelectTranslator) Translate(stmt ast.Statement) (Translation, error) {
	s, ok := stmt.(*ast.Select)
	if !ok {
		return Translation{}, wrongStatement(t, stmt)
	}
	r := &renderer{}

	table, err := baseTable(r, s.From, "SELECT")
	if err != nil {
		return Translation{}, err
	}
	columns, err := columnList(r, s.Columns)
	if err != nil {
		return Translation{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		r.warn("CQL only allows DISTINCT on partition key columns")
		b.WriteString("DISTINCT ")
	}
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(tableName(table))

	if s.Where != nil {
		where, err := r.expr(s.Where)
		if err != nil {
			return Translation{}, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(s.GroupBy) > 0 {
		r.warn("GROUP BY is not supported; dropped")
	}
	if s.Having != nil {
		r.warn("HAVING is not supported; dropped")
	}
	if s.SetOp != "" {
		r.warn("%s is not supported by CQL; only the first query was translated", strings.ToUpper(s.SetOp))
	}

	if len(s.OrderBy) > 0 {
		order, err := orderBy(r, s.OrderBy)
		if err != nil {
			return Translation{}, err
		}
		r.warn("CQL only orders by clustering columns within a partition; ORDER BY was not validated")
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}

	count, hasOffset, ok := limit(s.Limit)
	if !ok {
		if limitGiven(s.Limit) {
			r.warn("LIMIT is not a positive integer; using %d", t.defaultLimit)
		}
		count = t.defaultLimit
	}
	if hasOffset || s.Offset != nil {
		r.warn("OFFSET is not supported by CQL; dropped")
	}
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.FormatInt(count, 10))

	return r.result(b.String()), nil
}

// baseTable returns the first FROM source. Further sources are reported and
// ignored.
func baseTable(r *renderer, from []ast.TableRef, statement string) (ast.TableName, error) {
	if len(from) == 0 || (from[0].Name == "" && from[0].Subquery == nil) {
		return ast.TableName{}, cqlerr.MissingClausef("%s requires a FROM table", statement)
	}
	if from[0].Subquery != nil {
		return ast.TableName{}, cqlerr.Unsupportedf("subqueries in FROM are not supported by CQL")
	}
	if len(from) > 1 {
		joined := false
		for _, ref := range from[1:] {
			if ref.Join != "" {
				joined = true
			}
		}
		if joined {
			r.warn("JOIN is not supported by CQL; only %s is queried", from[0].TableName)
		} else {
			r.warn("multiple FROM sources are not supported by CQL; only %s is queried", from[0].TableName)
		}
	}
	return from[0].TableName, nil
}

func columnList(r *renderer, columns []ast.SelectColumn) (string, error) {
	if len(columns) == 0 {
		return "*", nil
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		s, err := r.expr(c.Expr)
		if err != nil {
			return "", err
		}
		if c.Alias != "" {
			s += " AS " + quoteIdentifier(c.Alias)
		}
		out = append(out, s)
	}
	return strings.Join(out, ", "), nil
}

func orderBy(r *renderer, items []ast.OrderItem) (string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := r.expr(item.Expr)
		if err != nil {
			return "", err
		}
		if item.Desc {
			s += " DESC"
		} else {
			s += " ASC"
		}
		out = append(out, s)
	}
	return strings.Join(out, ", "), nil
}
