package ast

// Operation categories checked by the permission guard.
const (
	OpSelect   = "select"
	OpInsert   = "insert"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpCreate   = "create"
	OpAlter    = "alter"
	OpDrop     = "drop"
	OpTruncate = "truncate"
	OpUse      = "use"
	OpDescribe = "describe"
)

// OperationFor returns the permission category a statement requires.
func OperationFor(stmt Statement) string {
	if stmt == nil {
		return ""
	}
	switch stmt.Kind() {
	case KindCreateKeyspace, KindCreateTable, KindCreateIndex, KindCreateView:
		return OpCreate
	case KindAlterKeyspace, KindAlterTable:
		return OpAlter
	case KindDropKeyspace, KindDropTable, KindDropIndex, KindDropView:
		return OpDrop
	case KindTruncateTable:
		return OpTruncate
	case KindUse:
		return OpUse
	case KindDescribe:
		return OpDescribe
	case KindSelect:
		return OpSelect
	case KindInsert:
		return OpInsert
	case KindUpdate:
		return OpUpdate
	case KindDelete:
		return OpDelete
	}
	return ""
}
