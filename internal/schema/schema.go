package schema

import "strings"

// Column represents a column definition as declared in a source statement
// or read from a relational catalog
type Column struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	PrimaryKey    bool    `json:"primary_key,omitempty"`
	Nullable      bool    `json:"nullable,omitempty"`
	DefaultValue  *string `json:"default_value,omitempty"`
	AutoIncrement bool    `json:"auto_increment,omitempty"`
	Position      int     `json:"position,omitempty"`
}

// Index represents a relational index
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// TableSchema represents a relational table read from a catalog
type TableSchema struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// PrimaryKey returns the primary key columns, in key order
func (t *TableSchema) PrimaryKey() []string {
	for _, idx := range t.Indexes {
		if idx.Primary {
			return idx.Columns
		}
	}
	var key []string
	for _, col := range t.Columns {
		if col.PrimaryKey {
			key = append(key, col.Name)
		}
	}
	return key
}

// FindColumn returns the column with the given name, ignoring case
func FindColumn(columns []Column, name string) (*Column, bool) {
	for i := range columns {
		if strings.EqualFold(columns[i].Name, name) {
			return &columns[i], true
		}
	}
	return nil, false
}

// Row represents a single row returned by the store
type Row map[string]interface{}
