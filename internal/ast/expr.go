package ast

import (
	"strconv"
	"strings"
)

// ExprType discriminates expression nodes.
type ExprType string

const (
	ExprBinary    ExprType = "binary_expr"
	ExprUnary     ExprType = "unary_expr"
	ExprColumn    ExprType = "column_ref"
	ExprString    ExprType = "string"
	ExprNumber    ExprType = "number"
	ExprBool      ExprType = "bool"
	ExprNull      ExprType = "null"
	ExprFunction  ExprType = "function"
	ExprAggregate ExprType = "aggr_func"
	ExprList      ExprType = "expr_list"
	ExprStar      ExprType = "star"
	ExprParam     ExprType = "param"
	ExprSubquery  ExprType = "subquery"
)

// Expr is a node of a predicate or value expression.
//
// Literal values are held in Value: string for ExprString, the literal text
// for ExprNumber, bool for ExprBool.
type Expr struct {
	Type     ExprType `json:"type"`
	Operator string   `json:"operator,omitempty"`
	Left     *Expr    `json:"left,omitempty"`
	Right    *Expr    `json:"right,omitempty"`
	Operand  *Expr    `json:"operand,omitempty"`
	Table    string   `json:"table,omitempty"`
	Column   string   `json:"column,omitempty"`
	Value    any      `json:"value,omitempty"`
	Name     string   `json:"name,omitempty"`
	Args     []*Expr  `json:"args,omitempty"`
	Items    []*Expr  `json:"items,omitempty"`
	Distinct bool     `json:"distinct,omitempty"`
	Select   *Select  `json:"select,omitempty"`
}

// Col returns a column reference.
func Col(name string) *Expr { return &Expr{Type: ExprColumn, Column: name} }

// Str returns a string literal.
func Str(s string) *Expr { return &Expr{Type: ExprString, Value: s} }

// Int returns an integer literal.
func Int(n int64) *Expr { return &Expr{Type: ExprNumber, Value: strconv.FormatInt(n, 10)} }

// Float returns a decimal literal.
func Float(f float64) *Expr {
	return &Expr{Type: ExprNumber, Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool returns a boolean literal.
func Bool(b bool) *Expr { return &Expr{Type: ExprBool, Value: b} }

// Null returns the NULL literal.
func Null() *Expr { return &Expr{Type: ExprNull} }

// Star returns the wildcard.
func Star() *Expr { return &Expr{Type: ExprStar} }

// Func returns a scalar function call.
func Func(name string, args ...*Expr) *Expr { return &Expr{Type: ExprFunction, Name: name, Args: args} }

// Agg returns an aggregate function call.
func Agg(name string, args ...*Expr) *Expr { return &Expr{Type: ExprAggregate, Name: name, Args: args} }

// List returns an expression list.
func List(items ...*Expr) *Expr { return &Expr{Type: ExprList, Items: items} }

// Binary returns a binary expression.
func Binary(op string, left, right *Expr) *Expr {
	return &Expr{Type: ExprBinary, Operator: op, Left: left, Right: right}
}

// Eq returns left = right.
func Eq(left, right *Expr) *Expr { return Binary("=", left, right) }

// And folds the operands into a left-deep AND chain.
func And(exprs ...*Expr) *Expr {
	var out *Expr
	for _, e := range exprs {
		if out == nil {
			out = e
			continue
		}
		out = Binary("AND", out, e)
	}
	return out
}

// Or returns left OR right.
func Or(left, right *Expr) *Expr { return Binary("OR", left, right) }

// IsLogical reports whether the expression is an AND/OR node.
func (e *Expr) IsLogical() bool {
	if e == nil || e.Type != ExprBinary {
		return false
	}
	op := strings.ToUpper(e.Operator)
	return op == "AND" || op == "OR"
}

// IsLiteral reports whether the expression is a constant.
func (e *Expr) IsLiteral() bool {
	if e == nil {
		return false
	}
	switch e.Type {
	case ExprString, ExprNumber, ExprBool, ExprNull, ExprParam:
		return true
	}
	return false
}

// Walk calls fn for e and every descendant in depth-first, left-to-right
// order until fn returns false.
func Walk(e *Expr, fn func(*Expr) bool) bool {
	if e == nil {
		return true
	}
	if !fn(e) {
		return false
	}
	for _, child := range []*Expr{e.Left, e.Right, e.Operand} {
		if !Walk(child, fn) {
			return false
		}
	}
	for _, list := range [][]*Expr{e.Args, e.Items} {
		for _, child := range list {
			if !Walk(child, fn) {
				return false
			}
		}
	}
	return true
}

// UnmarshalJSON accepts both the canonical encoding of Expr and the looser
// shapes emitted by upstream parsers.
func (e *Expr) UnmarshalJSON(data []byte) error {
	node, err := decodeNode(data)
	if err != nil {
		return err
	}
	out, err := ExprFromNode(node)
	if err != nil {
		return err
	}
	if out == nil {
		out = Null()
	}
	*e = *out
	return nil
}
