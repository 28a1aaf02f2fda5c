package translate

import (
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
)

var summaries = map[string]string{
	ast.OpSelect:   "Rows retrieved.",
	ast.OpInsert:   "Rows written.",
	ast.OpUpdate:   "Rows updated.",
	ast.OpDelete:   "Rows deleted.",
	ast.OpCreate:   "Schema object created.",
	ast.OpAlter:    "Schema object altered.",
	ast.OpDrop:     "Schema object dropped.",
	ast.OpTruncate: "Table truncated.",
	ast.OpUse:      "Keyspace selected.",
	ast.OpDescribe: "Schema described.",
}

// Summary returns a one-line description of a completed operation, or ""
// for an unknown operation.
func Summary(operation string) string {
	return summaries[strings.ToLower(strings.TrimSpace(operation))]
}
