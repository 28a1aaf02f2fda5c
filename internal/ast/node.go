package ast

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/koba/cqlbridge/internal/cqlerr"
)

// Node is an uninterpreted AST fragment: the generic JSON value tree
// (map[string]any, []any, string, json.Number, bool, nil) or an *Expr built
// in Go.
type Node = any

// Rows builds an INSERT value node from typed rows.
func Rows(rows ...[]*Expr) Node {
	out := make([]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}

// AsMap returns n as an object node.
func AsMap(n Node) (map[string]any, bool) {
	m, ok := n.(map[string]any)
	return m, ok
}

// AsList returns n as an array node.
func AsList(n Node) ([]any, bool) {
	switch v := n.(type) {
	case []any:
		return v, true
	case []*Expr:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}

// NodeType returns the lower-cased "type" member of an object node, or the
// type of an *Expr.
func NodeType(n Node) string {
	switch v := n.(type) {
	case map[string]any:
		s, _ := v["type"].(string)
		return strings.ToLower(s)
	case *Expr:
		if v != nil {
			return string(v.Type)
		}
	}
	return ""
}

// Integer interprets n as an integer literal.
func Integer(n Node) (int64, bool) {
	switch v := n.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i, true
		}
	case *Expr:
		if v != nil && v.Type == ExprNumber {
			return Integer(numberText(v.Value))
		}
	case map[string]any:
		if NodeType(v) == "number" || NodeType(v) == "" {
			return Integer(v["value"])
		}
	}
	return 0, false
}

// ExprFromNode converts a raw node into an expression.
func ExprFromNode(n Node) (*Expr, error) {
	switch v := n.(type) {
	case nil:
		return Null(), nil
	case *Expr:
		if v == nil {
			return Null(), nil
		}
		return v, nil
	case Expr:
		return &v, nil
	case string:
		return Str(v), nil
	case json.Number:
		return &Expr{Type: ExprNumber, Value: v.String()}, nil
	case float64:
		return Float(v), nil
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case bool:
		return Bool(v), nil
	case []any:
		items, err := exprList(v)
		if err != nil {
			return nil, err
		}
		return List(items...), nil
	case []*Expr:
		return List(v...), nil
	case map[string]any:
		return exprFromMap(v)
	}
	return nil, cqlerr.Invalidf("unrecognised expression node of type %T", n)
}

func exprList(nodes []any) ([]*Expr, error) {
	out := make([]*Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := ExprFromNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func exprFromMap(m map[string]any) (*Expr, error) {
	typ := NodeType(m)
	switch typ {
	case "binary_expr":
		left, err := ExprFromNode(m["left"])
		if err != nil {
			return nil, err
		}
		right, err := ExprFromNode(m["right"])
		if err != nil {
			return nil, err
		}
		op, _ := m["operator"].(string)
		return Binary(op, left, right), nil

	case "unary_expr":
		operandNode, ok := m["operand"]
		if !ok {
			operandNode = m["expr"]
		}
		operand, err := ExprFromNode(operandNode)
		if err != nil {
			return nil, err
		}
		op, _ := m["operator"].(string)
		return &Expr{Type: ExprUnary, Operator: op, Operand: operand}, nil

	case "column_ref":
		col := nameOf(m["column"])
		if col == "*" {
			return Star(), nil
		}
		return &Expr{Type: ExprColumn, Table: nameOf(m["table"]), Column: col}, nil

	case "string", "single_quote_string", "double_quote_string", "natural_string", "var_string":
		return Str(scalarText(m["value"])), nil

	case "number":
		return &Expr{Type: ExprNumber, Value: numberText(m["value"])}, nil

	case "bool", "boolean":
		switch b := m["value"].(type) {
		case bool:
			return Bool(b), nil
		case string:
			return Bool(strings.EqualFold(b, "true")), nil
		}
		return Bool(false), nil

	case "null":
		return Null(), nil

	case "star":
		return Star(), nil

	case "param":
		name := nameOf(m["name"])
		if name == "" {
			name = scalarText(m["value"])
		}
		return &Expr{Type: ExprParam, Name: name}, nil

	case "function", "aggr_func":
		args, distinct, err := argsOf(m["args"])
		if err != nil {
			return nil, err
		}
		if d, ok := m["distinct"].(bool); ok && d {
			distinct = true
		}
		e := &Expr{Type: ExprFunction, Name: funcNameOf(m["name"]), Args: args, Distinct: distinct}
		if typ == "aggr_func" {
			e.Type = ExprAggregate
		}
		return e, nil

	case "expr_list":
		raw, ok := m["items"]
		if !ok {
			raw = m["value"]
		}
		list, _ := AsList(raw)
		items, err := exprList(list)
		if err != nil {
			return nil, err
		}
		return List(items...), nil

	case "select", "subquery":
		e := &Expr{Type: ExprSubquery}
		if sel, ok := m["select"]; ok {
			var s Select
			if err := remarshal(sel, &s); err == nil {
				e.Select = &s
			}
		}
		return e, nil

	case "":
		if _, ok := m["column"]; ok {
			return &Expr{Type: ExprColumn, Table: nameOf(m["table"]), Column: nameOf(m["column"])}, nil
		}
		if v, ok := m["value"]; ok {
			return ExprFromNode(v)
		}
	}
	return nil, cqlerr.Invalidf("unrecognised expression node type %q", typ)
}

// argsOf handles plain argument arrays, expr_list wrappers and the
// {"expr": ..., "distinct": "DISTINCT"} shape used for aggregates.
func argsOf(n Node) ([]*Expr, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	if list, ok := AsList(n); ok {
		args, err := exprList(list)
		return args, false, err
	}
	m, ok := AsMap(n)
	if !ok {
		e, err := ExprFromNode(n)
		if err != nil {
			return nil, false, err
		}
		return []*Expr{e}, false, nil
	}
	distinct := false
	if d, ok := m["distinct"].(string); ok && strings.EqualFold(d, "distinct") {
		distinct = true
	}
	if inner, ok := m["expr"]; ok && NodeType(m) == "" {
		e, err := ExprFromNode(inner)
		if err != nil {
			return nil, false, err
		}
		return []*Expr{e}, distinct, nil
	}
	e, err := ExprFromNode(m)
	if err != nil {
		return nil, false, err
	}
	if e.Type == ExprList {
		return e.Items, distinct, nil
	}
	return []*Expr{e}, distinct, nil
}

// nameOf extracts an identifier from a string or from the
// {"expr": {"value": ...}} and {"value": ...} wrappers.
func nameOf(n Node) string {
	switch v := n.(type) {
	case string:
		return v
	case map[string]any:
		if inner, ok := v["expr"]; ok {
			return nameOf(inner)
		}
		if inner, ok := v["value"]; ok {
			return nameOf(inner)
		}
		if inner, ok := v["name"]; ok {
			return nameOf(inner)
		}
	}
	return ""
}

// funcNameOf handles plain names and the {"name": [{"value": "NOW"}]}
// shape.
func funcNameOf(n Node) string {
	if list, ok := AsList(n); ok {
		parts := make([]string, 0, len(list))
		for _, part := range list {
			if s := nameOf(part); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ".")
	}
	if m, ok := AsMap(n); ok {
		if inner, ok := m["name"]; ok {
			return funcNameOf(inner)
		}
	}
	return nameOf(n)
}

func scalarText(n Node) string {
	switch v := n.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	}
	b, err := json.Marshal(n)
	if err != nil {
		return ""
	}
	return string(b)
}

func numberText(n Node) string {
	switch v := n.(type) {
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	}
	return scalarText(n)
}

func remarshal(in Node, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(out)
}

func decodeNode(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n Node
	if err := dec.Decode(&n); err != nil {
		return nil, err
	}
	return n, nil
}
