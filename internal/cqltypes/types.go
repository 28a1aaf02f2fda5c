// Package cqltypes holds the mapping tables shared by the translators:
// source type names to CQL types, operators, and scalar/aggregate
// functions. Every table is read-only after package initialisation.
package cqltypes

import (
	"regexp"
	"strings"
)

// Text is the single CQL type every character type collapses to.
const Text = "text"

var typeMap = map[string]string{
	// integers
	"TINYINT":   "tinyint",
	"SMALLINT":  "smallint",
	"INT2":      "smallint",
	"MEDIUMINT": "int",
	"INT":       "int",
	"INTEGER":   "int",
	"INT4":      "int",
	"SERIAL":    "int",
	"BIGINT":    "bigint",
	"INT8":      "bigint",
	"BIGSERIAL": "bigint",
	"VARINT":    "varint",

	// exact and approximate numerics
	"DECIMAL":          "decimal",
	"DEC":              "decimal",
	"NUMERIC":          "decimal",
	"MONEY":            "decimal",
	"FLOAT":            "float",
	"FLOAT4":           "float",
	"REAL":             "float",
	"DOUBLE":           "double",
	"DOUBLE PRECISION": "double",
	"FLOAT8":           "double",

	// character types
	"CHAR":              Text,
	"CHARACTER":         Text,
	"NCHAR":             Text,
	"VARCHAR":           Text,
	"CHARACTER VARYING": Text,
	"NVARCHAR":          Text,
	"VARCHAR2":          Text,
	"TEXT":              Text,
	"TINYTEXT":          Text,
	"MEDIUMTEXT":        Text,
	"LONGTEXT":          Text,
	"CLOB":              Text,
	"STRING":            Text,
	"ENUM":              Text,
	"SET":               Text,
	"JSON":              Text,
	"JSONB":             Text,
	"XML":               Text,

	// boolean
	"BOOLEAN": "boolean",
	"BOOL":    "boolean",
	"BIT":     "boolean",

	// temporal
	"DATE":                        "date",
	"TIME":                        "time",
	"DATETIME":                    "timestamp",
	"TIMESTAMP":                   "timestamp",
	"TIMESTAMPTZ":                 "timestamp",
	"TIMESTAMP WITH TIME ZONE":    "timestamp",
	"TIMESTAMP WITHOUT TIME ZONE": "timestamp",
	"INTERVAL":                    "duration",
	"DURATION":                    "duration",

	// binary
	"BLOB":       "blob",
	"TINYBLOB":   "blob",
	"MEDIUMBLOB": "blob",
	"LONGBLOB":   "blob",
	"BINARY":     "blob",
	"VARBINARY":  "blob",
	"BYTEA":      "blob",

	// identifiers and network
	"UUID":             "uuid",
	"UNIQUEIDENTIFIER": "uuid",
	"TIMEUUID":         "timeuuid",
	"INET":             "inet",
}

var (
	typeParams    = regexp.MustCompile(`\s*\([^)]*\)`)
	typeModifiers = regexp.MustCompile(`(?i)\s+(UNSIGNED|SIGNED|ZEROFILL)\b`)
	typeSpaces    = regexp.MustCompile(`\s+`)
)

// MapType maps a source column type to its CQL type. Length, precision and
// sign modifiers are discarded. Array types (INT[], TEXT ARRAY) map to
// list<T>. Unknown types map to Text with known reported as false.
func MapType(source string) (target string, known bool) {
	name := strings.ToUpper(strings.TrimSpace(source))
	if strings.HasSuffix(name, "[]") {
		elem, ok := MapType(strings.TrimSuffix(name, "[]"))
		return "list<" + elem + ">", ok
	}
	if strings.HasSuffix(name, " ARRAY") {
		elem, ok := MapType(strings.TrimSuffix(name, " ARRAY"))
		return "list<" + elem + ">", ok
	}
	name = typeParams.ReplaceAllString(name, "")
	name = typeModifiers.ReplaceAllString(name, "")
	name = typeSpaces.ReplaceAllString(strings.TrimSpace(name), " ")

	if t, ok := typeMap[name]; ok {
		return t, true
	}
	return Text, false
}
