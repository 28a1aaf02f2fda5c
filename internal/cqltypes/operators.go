package cqltypes

import (
	"strings"

	"github.com/koba/cqlbridge/internal/cqlerr"
)

// Operator is the CQL rendering of a source operator.
type Operator struct {
	CQL string
	// Warning is set when the rendering only approximates the source
	// semantics.
	Warning string
}

var operators = map[string]Operator{
	"=":            {CQL: "="},
	"==":           {CQL: "="},
	"!=":           {CQL: "!="},
	"<>":           {CQL: "!="},
	"<":            {CQL: "<"},
	">":            {CQL: ">"},
	"<=":           {CQL: "<="},
	">=":           {CQL: ">="},
	"IN":           {CQL: "IN"},
	"CONTAINS":     {CQL: "CONTAINS"},
	"CONTAINS KEY": {CQL: "CONTAINS KEY"},
	"IS":           {CQL: "IS"},
	"IS NOT":       {CQL: "IS NOT"},
	"AND":          {CQL: "AND"},
	"OR":           {CQL: "OR"},
	"+":            {CQL: "+"},
	"-":            {CQL: "-"},
	"*":            {CQL: "*"},
	"/":            {CQL: "/"},
	"%":            {CQL: "%"},
	"LIKE": {
		CQL:     "CONTAINS",
		Warning: "LIKE has no CQL equivalent; approximated with CONTAINS, which matches collection elements rather than string patterns",
	},
}

var unsupportedOperators = map[string]bool{
	"NOT LIKE":       true,
	"ILIKE":          true,
	"NOT ILIKE":      true,
	"REGEXP":         true,
	"NOT REGEXP":     true,
	"RLIKE":          true,
	"SIMILAR TO":     true,
	"NOT SIMILAR TO": true,
	"NOT IN":         true,
	"NOT BETWEEN":    true,
	"||":             true,
	"EXISTS":         true,
	"NOT EXISTS":     true,
}

// NormalizeOperator upper-cases op and collapses internal whitespace.
func NormalizeOperator(op string) string {
	return strings.Join(strings.Fields(strings.ToUpper(op)), " ")
}

// MapOperator maps a source operator to CQL.
func MapOperator(op string) (Operator, error) {
	name := NormalizeOperator(op)
	if o, ok := operators[name]; ok {
		return o, nil
	}
	if unsupportedOperators[name] {
		return Operator{}, cqlerr.Unsupportedf("operator %s has no CQL equivalent", name)
	}
	return Operator{}, cqlerr.Unsupportedf("unknown operator %q", op)
}
