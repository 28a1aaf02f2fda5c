package cqltypes

import "strings"

// FunctionKind classifies a source function.
type FunctionKind int

const (
	// FunctionUnmapped has no CQL counterpart.
	FunctionUnmapped FunctionKind = iota
	// FunctionAggregate is one of the CQL native aggregates.
	FunctionAggregate
	// FunctionScalar maps to a CQL scalar function.
	FunctionScalar
)

// Function is the CQL rendering of a source function.
type Function struct {
	Kind FunctionKind
	// Name is the CQL function name.
	Name string
	// NoArgs is set when the CQL function takes no arguments regardless of
	// what the source passed.
	NoArgs bool
}

var aggregates = map[string]string{
	"COUNT": "COUNT",
	"MIN":   "MIN",
	"MAX":   "MAX",
	"SUM":   "SUM",
	"AVG":   "AVG",
}

var scalars = map[string]Function{
	"NOW":               {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"CURRENT_TIMESTAMP": {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"CURRENT_TIME":      {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"CURRENT_DATE":      {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"LOCALTIMESTAMP":    {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"LOCALTIME":         {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"SYSDATE":           {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"GETDATE":           {Kind: FunctionScalar, Name: "now", NoArgs: true},
	"UUID":              {Kind: FunctionScalar, Name: "uuid", NoArgs: true},
	"GEN_RANDOM_UUID":   {Kind: FunctionScalar, Name: "uuid", NoArgs: true},
	"NEWID":             {Kind: FunctionScalar, Name: "uuid", NoArgs: true},
	"TOKEN":             {Kind: FunctionScalar, Name: "token"},
	"TTL":               {Kind: FunctionScalar, Name: "TTL"},
	"WRITETIME":         {Kind: FunctionScalar, Name: "WRITETIME"},
	"TOTIMESTAMP":       {Kind: FunctionScalar, Name: "toTimestamp"},
	"TODATE":            {Kind: FunctionScalar, Name: "toDate"},
	"TOUNIXTIMESTAMP":   {Kind: FunctionScalar, Name: "toUnixTimestamp"},
}

// MapFunction maps a source function name to CQL. Unknown names, including
// every string and math function, come back as FunctionUnmapped with the
// source name preserved.
func MapFunction(name string) Function {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if agg, ok := aggregates[upper]; ok {
		return Function{Kind: FunctionAggregate, Name: agg}
	}
	if f, ok := scalars[upper]; ok {
		return f
	}
	return Function{Kind: FunctionUnmapped, Name: name}
}

// IsAggregate reports whether name is a CQL native aggregate.
func IsAggregate(name string) bool {
	_, ok := aggregates[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}
