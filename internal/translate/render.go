package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/cqltypes"
)

// renderer renders expressions and collects the warnings raised while doing
// so. A renderer is used for a single statement.
type renderer struct {
	warnings []string
	seen     map[string]bool
}

func (r *renderer) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	if r.seen[msg] {
		return
	}
	r.seen[msg] = true
	r.warnings = append(r.warnings, msg)
}

func (r *renderer) result(text string) Translation {
	return Translation{Text: text, Warnings: r.warnings}
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reservedWords = map[string]bool{
	"ADD": true, "ALLOW": true, "ALTER": true, "AND": true, "APPLY": true,
	"ASC": true, "AUTHORIZE": true, "BATCH": true, "BEGIN": true, "BY": true,
	"COLUMNFAMILY": true, "CREATE": true, "DELETE": true, "DESC": true,
	"DESCRIBE": true, "DROP": true, "ENTRIES": true, "EXECUTE": true,
	"FROM": true, "FULL": true, "GRANT": true, "IF": true, "IN": true,
	"INDEX": true, "INFINITY": true, "INSERT": true, "INTO": true,
	"KEYSPACE": true, "LIMIT": true, "MODIFY": true, "NAN": true,
	"NORECURSIVE": true, "NOT": true, "NULL": true, "OF": true, "ON": true,
	"OR": true, "ORDER": true, "PRIMARY": true, "RENAME": true,
	"REPLACE": true, "REVOKE": true, "SCHEMA": true, "SELECT": true,
	"SET": true, "TABLE": true, "TO": true, "TOKEN": true, "TRUNCATE": true,
	"UNLOGGED": true, "UPDATE": true, "USE": true, "USING": true,
	"VIEW": true, "WHERE": true, "WITH": true,
}

// unquote strips source-dialect identifier quoting (`x`, "x", [x]).
func unquote(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 {
		first, last := name[0], name[len(name)-1]
		if (first == '`' && last == '`') || (first == '"' && last == '"') || (first == '[' && last == ']') {
			return name[1 : len(name)-1]
		}
	}
	return name
}

// quoteIdentifier leaves plain identifiers bare and double-quotes the rest.
func quoteIdentifier(name string) string {
	name = unquote(name)
	if plainIdentifier.MatchString(name) && !reservedWords[strings.ToUpper(name)] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdentifiers(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdentifier(name)
	}
	return quoted
}

func tableName(t ast.TableName) string {
	if t.Keyspace == "" {
		return quoteIdentifier(t.Name)
	}
	return quoteIdentifier(t.Keyspace) + "." + quoteIdentifier(t.Name)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// expr renders a predicate or scalar expression.
func (r *renderer) expr(e *ast.Expr) (string, error) {
	if e == nil {
		return "", cqlerr.Invalidf("missing expression")
	}
	switch e.Type {
	case ast.ExprColumn:
		if e.Column == "*" {
			return "*", nil
		}
		if e.Column == "" {
			return "", cqlerr.Invalidf("column reference without a column name")
		}
		return quoteIdentifier(e.Column), nil
	case ast.ExprStar:
		return "*", nil
	case ast.ExprString:
		s, _ := e.Value.(string)
		return quoteString(s), nil
	case ast.ExprNumber:
		return fmt.Sprint(e.Value), nil
	case ast.ExprBool:
		if b, _ := e.Value.(bool); b {
			return "true", nil
		}
		return "false", nil
	case ast.ExprNull:
		return "NULL", nil
	case ast.ExprParam:
		if e.Name == "" || e.Name == "?" {
			return "?", nil
		}
		return ":" + strings.TrimLeft(e.Name, ":$@"), nil
	case ast.ExprFunction, ast.ExprAggregate:
		return r.function(e)
	case ast.ExprList:
		items, err := r.exprs(e.Items)
		if err != nil {
			return "", err
		}
		return "(" + strings.Join(items, ", ") + ")", nil
	case ast.ExprBinary:
		return r.binary(e)
	case ast.ExprUnary:
		return r.unary(e)
	case ast.ExprSubquery:
		return "", cqlerr.Unsupportedf("subqueries are not supported by CQL")
	}
	return "", cqlerr.Invalidf("unrecognised expression type %q", e.Type)
}

func (r *renderer) exprs(list []*ast.Expr) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// value renders a literal in value position, where lists become CQL list
// literals.
func (r *renderer) value(e *ast.Expr) (string, error) {
	if e != nil && e.Type == ast.ExprList {
		items := make([]string, 0, len(e.Items))
		for _, item := range e.Items {
			s, err := r.value(item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	}
	return r.expr(e)
}

func (r *renderer) binary(e *ast.Expr) (string, error) {
	op := cqltypes.NormalizeOperator(e.Operator)
	if e.Left == nil || e.Right == nil {
		return "", cqlerr.Invalidf("operator %s is missing an operand", op)
	}

	if op == "BETWEEN" {
		if e.Right.Type != ast.ExprList || len(e.Right.Items) != 2 {
			return "", cqlerr.Invalidf("BETWEEN requires exactly two bounds")
		}
		left, err := r.expr(e.Left)
		if err != nil {
			return "", err
		}
		lo, err := r.expr(e.Right.Items[0])
		if err != nil {
			return "", err
		}
		hi, err := r.expr(e.Right.Items[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s >= %s AND %s <= %s", left, lo, left, hi), nil
	}

	mapped, err := cqltypes.MapOperator(op)
	if err != nil {
		return "", err
	}
	if mapped.Warning != "" {
		r.warn("%s", mapped.Warning)
	}
	if op == "OR" {
		r.warn("CQL does not support OR in WHERE clauses; the store is likely to reject this predicate")
	}

	left, err := r.operand(e.Left, op)
	if err != nil {
		return "", err
	}
	right, err := r.operand(e.Right, op)
	if err != nil {
		return "", err
	}
	if op == "IN" && e.Right.Type != ast.ExprList {
		right = "(" + right + ")"
	}
	return left + " " + mapped.CQL + " " + right, nil
}

// operand renders a child of a binary node, parenthesizing a logical child
// whose operator differs from its parent's.
func (r *renderer) operand(child *ast.Expr, parentOp string) (string, error) {
	s, err := r.expr(child)
	if err != nil {
		return "", err
	}
	if child.IsLogical() && cqltypes.NormalizeOperator(child.Operator) != parentOp {
		return "(" + s + ")", nil
	}
	return s, nil
}

func (r *renderer) unary(e *ast.Expr) (string, error) {
	op := cqltypes.NormalizeOperator(e.Operator)
	switch op {
	case "-", "+":
		operand, err := r.expr(e.Operand)
		if err != nil {
			return "", err
		}
		// "--1" would start a line comment.
		if strings.HasPrefix(operand, "-") || strings.HasPrefix(operand, "+") {
			operand = "(" + operand + ")"
		}
		return op + operand, nil
	case "NOT", "!":
		return "", cqlerr.Unsupportedf("NOT predicates are not supported by CQL")
	case "EXISTS", "NOT EXISTS":
		return "", cqlerr.Unsupportedf("%s subqueries are not supported by CQL", op)
	}
	return "", cqlerr.Unsupportedf("unary operator %q is not supported", e.Operator)
}

func (r *renderer) function(e *ast.Expr) (string, error) {
	f := cqltypes.MapFunction(e.Name)
	switch {
	case f.Kind == cqltypes.FunctionUnmapped && e.Type == ast.ExprAggregate:
		r.warn("aggregate %s has no CQL equivalent; passed through unchanged", strings.ToUpper(e.Name))
	case f.Kind == cqltypes.FunctionUnmapped:
		r.warn("function %s has no CQL equivalent; passed through unchanged", strings.ToUpper(e.Name))
	}
	if f.NoArgs {
		return f.Name + "()", nil
	}
	if e.Distinct {
		r.warn("DISTINCT inside %s is not supported by CQL; dropped", strings.ToUpper(e.Name))
	}
	if len(e.Args) == 0 && f.Kind == cqltypes.FunctionAggregate && f.Name == "COUNT" {
		return "COUNT(*)", nil
	}
	args, err := r.exprs(e.Args)
	if err != nil {
		return "", err
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")", nil
}

// limit interprets a raw LIMIT node. node-sql-parser emits a
// {"seperator": ..., "value": [...]} pair: "," puts the offset first
// ("LIMIT 5, 20") and "offset" puts the count first ("LIMIT 20 OFFSET 5").
// Either pair reports hasOffset.
func limit(n ast.Node) (count int64, hasOffset bool, ok bool) {
	if !limitGiven(n) {
		return 0, false, false
	}
	if m, isMap := ast.AsMap(n); isMap && ast.NodeType(m) == "" {
		if list, isList := ast.AsList(m["value"]); isList {
			if len(list) == 1 {
				c, ok := positive(list[0])
				return c, false, ok
			}
			if limitSeparator(m) == "offset" {
				c, ok := positive(list[0])
				return c, true, ok
			}
			c, ok := positive(list[len(list)-1])
			return c, true, ok
		}
	}
	if list, isList := ast.AsList(n); isList && len(list) == 1 {
		c, ok := positive(list[0])
		return c, false, ok
	}
	c, ok := positive(n)
	return c, false, ok
}

// limitGiven reports whether a raw LIMIT node carries a value. A pair with
// an empty value list is how node-sql-parser spells a missing LIMIT.
func limitGiven(n ast.Node) bool {
	if n == nil {
		return false
	}
	if m, isMap := ast.AsMap(n); isMap && ast.NodeType(m) == "" {
		if list, isList := ast.AsList(m["value"]); isList {
			return len(list) > 0
		}
	}
	return true
}

// limitSeparator accepts both node-sql-parser's "seperator" spelling and the
// corrected one.
func limitSeparator(m map[string]any) string {
	for _, key := range []string{"seperator", "separator"} {
		if s, ok := m[key].(string); ok && s != "" {
			return strings.ToLower(strings.TrimSpace(s))
		}
	}
	return ""
}

func positive(n ast.Node) (int64, bool) {
	v, ok := ast.Integer(n)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// firstEquality returns the column of the first column = literal comparison
// in the predicate.
func firstEquality(pred *ast.Expr) (string, bool) {
	var col string
	ast.Walk(pred, func(e *ast.Expr) bool {
		if e.Type != ast.ExprBinary || cqltypes.NormalizeOperator(e.Operator) != "=" {
			return true
		}
		if e.Left != nil && e.Left.Type == ast.ExprColumn && e.Right.IsLiteral() {
			col = e.Left.Column
			return false
		}
		return true
	})
	return col, col != ""
}
