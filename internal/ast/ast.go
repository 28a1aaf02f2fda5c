// Package ast models a single parsed relational statement.
//
// Statements form a closed set: every concrete type below implements
// Statement and reports its Kind. Parts of the tree whose upstream encoding
// is unstable (INSERT value lists, LIMIT/OFFSET, DROP INDEX names) are kept
// as raw Node values and interpreted by the translators.
package ast

import "github.com/koba/cqlbridge/internal/schema"

// Kind discriminates statements.
type Kind int

const (
	KindCreateKeyspace Kind = iota
	KindAlterKeyspace
	KindDropKeyspace
	KindUse
	KindDescribe
	KindCreateTable
	KindAlterTable
	KindDropTable
	KindTruncateTable
	KindCreateIndex
	KindDropIndex
	KindCreateView
	KindDropView
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

var kindNames = [...]string{
	KindCreateKeyspace: "create_keyspace",
	KindAlterKeyspace:  "alter_keyspace",
	KindDropKeyspace:   "drop_keyspace",
	KindUse:            "use",
	KindDescribe:       "describe",
	KindCreateTable:    "create_table",
	KindAlterTable:     "alter_table",
	KindDropTable:      "drop_table",
	KindTruncateTable:  "truncate_table",
	KindCreateIndex:    "create_index",
	KindDropIndex:      "drop_index",
	KindCreateView:     "create_view",
	KindDropView:       "drop_view",
	KindSelect:         "select",
	KindInsert:         "insert",
	KindUpdate:         "update",
	KindDelete:         "delete",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// AllKinds lists every statement kind.
func AllKinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Statement is a single top-level statement.
type Statement interface {
	Kind() Kind
	statement()
}

// TableName is an optionally keyspace-qualified object name.
type TableName struct {
	Keyspace string `json:"keyspace,omitempty"`
	Name     string `json:"name"`
}

// String returns the dotted form of the name.
func (t TableName) String() string {
	if t.Keyspace == "" {
		return t.Name
	}
	return t.Keyspace + "." + t.Name
}

// TableRef is a FROM source.
type TableRef struct {
	TableName
	Alias string `json:"alias,omitempty"`
	// Join is the join type ("INNER JOIN", "LEFT JOIN", ...) for every source
	// after the first that was joined rather than listed.
	Join     string  `json:"join,omitempty"`
	On       *Expr   `json:"on,omitempty"`
	Subquery *Select `json:"subquery,omitempty"`
}

type CreateKeyspace struct {
	Name        string            `json:"name"`
	IfNotExists bool              `json:"if_not_exists,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

type AlterKeyspace struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"options,omitempty"`
}

type DropKeyspace struct {
	Name     string `json:"name"`
	IfExists bool   `json:"if_exists,omitempty"`
}

type Use struct {
	Keyspace string `json:"keyspace"`
}

// DescribeObject names what a metadata-inspection statement lists.
type DescribeObject string

const (
	DescribeKeyspaces DescribeObject = "keyspaces"
	DescribeDatabases DescribeObject = "databases"
	DescribeSchemas   DescribeObject = "schemas"
	DescribeTables    DescribeObject = "tables"
	DescribeTable     DescribeObject = "table"
	DescribeColumns   DescribeObject = "columns"
)

// ListsKeyspaces reports whether the object is a keyspace listing.
func (o DescribeObject) ListsKeyspaces() bool {
	switch o {
	case DescribeKeyspaces, DescribeDatabases, DescribeSchemas:
		return true
	}
	return false
}

// Describe covers SHOW and DESCRIBE statements.
type Describe struct {
	Object DescribeObject `json:"object"`
	Table  TableName      `json:"table,omitempty"`
}

type CreateTable struct {
	Table       TableName       `json:"table"`
	IfNotExists bool            `json:"if_not_exists,omitempty"`
	Columns     []schema.Column `json:"columns"`
	// PrimaryKey holds the columns of a table-level PRIMARY KEY constraint.
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// AlterAction is the operation of one ALTER TABLE specification.
type AlterAction string

const (
	AlterAdd         AlterAction = "add"
	AlterDrop        AlterAction = "drop"
	AlterRename      AlterAction = "rename"
	AlterModify      AlterAction = "modify"
	AlterChange      AlterAction = "change"
	AlterRenameTable AlterAction = "rename_table"
)

type AlterSpec struct {
	Action  AlterAction   `json:"action"`
	Column  schema.Column `json:"column,omitempty"`
	OldName string        `json:"old_name,omitempty"`
	NewName string        `json:"new_name,omitempty"`
}

type AlterTable struct {
	Table TableName   `json:"table"`
	Specs []AlterSpec `json:"specs"`
}

type DropTable struct {
	Tables   []TableName `json:"tables"`
	IfExists bool        `json:"if_exists,omitempty"`
}

type TruncateTable struct {
	Table TableName `json:"table"`
}

// IndexColumn is one indexed column or expression.
type IndexColumn struct {
	Name string `json:"name,omitempty"`
	Expr *Expr  `json:"expr,omitempty"`
	Desc bool   `json:"desc,omitempty"`
}

type CreateIndex struct {
	Name        string        `json:"name,omitempty"`
	Table       TableName     `json:"table"`
	Columns     []IndexColumn `json:"columns"`
	Unique      bool          `json:"unique,omitempty"`
	IfNotExists bool          `json:"if_not_exists,omitempty"`
	Where       *Expr         `json:"where,omitempty"`
	Include     []string      `json:"include,omitempty"`
}

type DropIndex struct {
	// Name is the raw name node; its shape varies with the parser version.
	Name     Node      `json:"name"`
	Table    TableName `json:"table,omitempty"`
	IfExists bool      `json:"if_exists,omitempty"`
}

type CreateView struct {
	Name        TableName `json:"name"`
	OrReplace   bool      `json:"or_replace,omitempty"`
	IfNotExists bool      `json:"if_not_exists,omitempty"`
	Definition  *Select   `json:"definition"`
}

type DropView struct {
	Name     TableName `json:"name"`
	IfExists bool      `json:"if_exists,omitempty"`
}

type SelectColumn struct {
	Expr  *Expr  `json:"expr"`
	Alias string `json:"alias,omitempty"`
}

type OrderItem struct {
	Expr *Expr `json:"expr"`
	Desc bool  `json:"desc,omitempty"`
}

type Select struct {
	Distinct bool           `json:"distinct,omitempty"`
	Columns  []SelectColumn `json:"columns,omitempty"`
	From     []TableRef     `json:"from"`
	Where    *Expr          `json:"where,omitempty"`
	GroupBy  []*Expr        `json:"group_by,omitempty"`
	Having   *Expr          `json:"having,omitempty"`
	OrderBy  []OrderItem    `json:"order_by,omitempty"`
	Limit    Node           `json:"limit,omitempty"`
	Offset   Node           `json:"offset,omitempty"`
	// SetOp is UNION, INTERSECT or EXCEPT when the statement is compound.
	SetOp string `json:"set_op,omitempty"`
}

type Insert struct {
	Table   TableName `json:"table"`
	Columns []string  `json:"columns,omitempty"`
	// Values is the raw row source: a list of rows, a single flat row, or a
	// wrapper object depending on the parser.
	Values Node    `json:"values,omitempty"`
	Select *Select `json:"select,omitempty"`
}

type Assignment struct {
	Column string `json:"column"`
	Value  *Expr  `json:"value"`
}

type Update struct {
	Table   TableName    `json:"table"`
	From    []TableRef   `json:"from,omitempty"`
	Set     []Assignment `json:"set"`
	Where   *Expr        `json:"where,omitempty"`
	OrderBy []OrderItem  `json:"order_by,omitempty"`
	Limit   Node         `json:"limit,omitempty"`
}

type Delete struct {
	Table   TableName   `json:"table"`
	Columns []string    `json:"columns,omitempty"`
	From    []TableRef  `json:"from,omitempty"`
	Where   *Expr       `json:"where,omitempty"`
	OrderBy []OrderItem `json:"order_by,omitempty"`
	Limit   Node        `json:"limit,omitempty"`
}

func (*CreateKeyspace) Kind() Kind { return KindCreateKeyspace }
func (*AlterKeyspace) Kind() Kind  { return KindAlterKeyspace }
func (*DropKeyspace) Kind() Kind   { return KindDropKeyspace }
func (*Use) Kind() Kind            { return KindUse }
func (*Describe) Kind() Kind       { return KindDescribe }
func (*CreateTable) Kind() Kind    { return KindCreateTable }
func (*AlterTable) Kind() Kind     { return KindAlterTable }
func (*DropTable) Kind() Kind      { return KindDropTable }
func (*TruncateTable) Kind() Kind  { return KindTruncateTable }
func (*CreateIndex) Kind() Kind    { return KindCreateIndex }
func (*DropIndex) Kind() Kind      { return KindDropIndex }
func (*CreateView) Kind() Kind     { return KindCreateView }
func (*DropView) Kind() Kind       { return KindDropView }
func (*Select) Kind() Kind         { return KindSelect }
func (*Insert) Kind() Kind         { return KindInsert }
func (*Update) Kind() Kind         { return KindUpdate }
func (*Delete) Kind() Kind         { return KindDelete }

func (*CreateKeyspace) statement() {}
func (*AlterKeyspace) statement()  {}
func (*DropKeyspace) statement()   {}
func (*Use) statement()            {}
func (*Describe) statement()       {}
func (*CreateTable) statement()    {}
func (*AlterTable) statement()     {}
func (*DropTable) statement()      {}
func (*TruncateTable) statement()  {}
func (*CreateIndex) statement()    {}
func (*DropIndex) statement()      {}
func (*CreateView) statement()     {}
func (*DropView) statement()       {}
func (*Select) statement()         {}
func (*Insert) statement()         {}
func (*Update) statement()         {}
func (*Delete) statement()         {}

// New returns an empty statement of the given kind.
func New(k Kind) (Statement, bool) {
	switch k {
	case KindCreateKeyspace:
		return &CreateKeyspace{}, true
	case KindAlterKeyspace:
		return &AlterKeyspace{}, true
	case KindDropKeyspace:
		return &DropKeyspace{}, true
	case KindUse:
		return &Use{}, true
	case KindDescribe:
		return &Describe{}, true
	case KindCreateTable:
		return &CreateTable{}, true
	case KindAlterTable:
		return &AlterTable{}, true
	case KindDropTable:
		return &DropTable{}, true
	case KindTruncateTable:
		return &TruncateTable{}, true
	case KindCreateIndex:
		return &CreateIndex{}, true
	case KindDropIndex:
		return &DropIndex{}, true
	case KindCreateView:
		return &CreateView{}, true
	case KindDropView:
		return &DropView{}, true
	case KindSelect:
		return &Select{}, true
	case KindInsert:
		return &Insert{}, true
	case KindUpdate:
		return &Update{}, true
	case KindDelete:
		return &Delete{}, true
	}
	return nil, false
}
