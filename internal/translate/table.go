package translate

import (
	"fmt"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/cqltypes"
	"github.com/koba/cqlbridge/internal/schema"
)

// TableTranslator handles table DDL and table listings.
type TableTranslator struct{}

func (t *TableTranslator) Name() string { return "table" }

func (t *TableTranslator) CanHandle(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.CreateTable, *ast.AlterTable, *ast.DropTable, *ast.TruncateTable:
		return true
	case *ast.Describe:
		return !s.Object.ListsKeyspaces()
	}
	return false
}

func (t *TableTranslator) Translate(stmt ast.Statement) (Translation, error) {
	switch s := stmt.(type) {
	case *ast.CreateTable:
		return t.createTable(s)
	case *ast.AlterTable:
		return t.alterTable(s)
	case *ast.DropTable:
		return t.dropTable(s)
	case *ast.TruncateTable:
		if s.Table.Name == "" {
			return Translation{}, missingName("TRUNCATE")
		}
		return Translation{Text: "TRUNCATE " + tableName(s.Table)}, nil
	case *ast.Describe:
		if !s.Object.ListsKeyspaces() {
			return Translation{Text: describeText(normalizeDescribe(s))}, nil
		}
	}
	return Translation{}, wrongStatement(t, stmt)
}

func (t *TableTranslator) createTable(s *ast.CreateTable) (Translation, error) {
	r := &renderer{}
	if s.Table.Name == "" {
		return Translation{}, missingName("CREATE TABLE")
	}
	if len(s.Columns) == 0 {
		return Translation{}, cqlerr.MissingClausef("CREATE TABLE %s declares no columns", s.Table)
	}

	pk, err := resolvePrimaryKey(r, s)
	if err != nil {
		return Translation{}, err
	}

	var parts []string
	for i := range s.Columns {
		parts = append(parts, columnDefinition(r, &s.Columns[i]))
	}
	parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteIdentifiers(pk), ", ")))

	ifNotExists := ""
	if s.IfNotExists {
		ifNotExists = "IF NOT EXISTS "
	}
	return r.result(fmt.Sprintf("CREATE TABLE %s%s (\n  %s\n)",
		ifNotExists, tableName(s.Table), strings.Join(parts, ",\n  "))), nil
}

// resolvePrimaryKey picks the key from the table constraint, then from
// columns marked primary, then from an existing id column.
func resolvePrimaryKey(r *renderer, s *ast.CreateTable) ([]string, error) {
	if len(s.PrimaryKey) > 0 {
		key := make([]string, 0, len(s.PrimaryKey))
		for _, name := range s.PrimaryKey {
			col, ok := schema.FindColumn(s.Columns, unquote(name))
			if !ok {
				return nil, cqlerr.Invalidf("primary key column %q is not declared in table %s", name, s.Table)
			}
			key = append(key, col.Name)
		}
		return key, nil
	}

	var marked []string
	for _, col := range s.Columns {
		if col.PrimaryKey {
			marked = append(marked, col.Name)
		}
	}
	if len(marked) > 0 {
		return marked, nil
	}

	if col, ok := schema.FindColumn(s.Columns, "id"); ok {
		r.warn("table %s declares no primary key; using column %s", s.Table, col.Name)
		return []string{col.Name}, nil
	}

	err := cqlerr.MissingClausef("table %s has no primary key and no id column to fall back on", s.Table)
	return nil, cqlerr.WithHint(err, "mark a column PRIMARY KEY or add an id column")
}

func columnDefinition(r *renderer, col *schema.Column) string {
	typ, known := cqltypes.MapType(col.Type)
	if !known {
		r.warn("column %s: type %q has no CQL equivalent; mapped to %s", col.Name, col.Type, typ)
	}
	if col.DefaultValue != nil {
		r.warn("column %s: DEFAULT values are not supported by CQL; dropped", col.Name)
	}
	if col.AutoIncrement {
		r.warn("column %s: AUTO_INCREMENT is not supported by CQL; consider a uuid key", col.Name)
	}
	return quoteIdentifier(col.Name) + " " + typ
}

func (t *TableTranslator) alterTable(s *ast.AlterTable) (Translation, error) {
	r := &renderer{}
	if s.Table.Name == "" {
		return Translation{}, missingName("ALTER TABLE")
	}
	if len(s.Specs) == 0 {
		return Translation{}, cqlerr.MissingClausef("ALTER TABLE %s has no alterations", s.Table)
	}

	var adds, drops, renames []string
	for i := range s.Specs {
		spec := &s.Specs[i]
		switch spec.Action {
		case ast.AlterAdd:
			if spec.Column.Name == "" {
				return Translation{}, missingName("ADD COLUMN")
			}
			adds = append(adds, columnDefinition(r, &spec.Column))

		case ast.AlterDrop:
			name := spec.Column.Name
			if name == "" {
				name = spec.OldName
			}
			if name == "" {
				return Translation{}, missingName("DROP COLUMN")
			}
			drops = append(drops, quoteIdentifier(name))

		case ast.AlterRename:
			if spec.OldName == "" || spec.NewName == "" {
				return Translation{}, cqlerr.MissingClausef("RENAME COLUMN requires the old and the new name")
			}
			r.warn("CQL only allows renaming primary key columns; the store rejects renaming %s otherwise", spec.OldName)
			renames = append(renames, quoteIdentifier(spec.OldName)+" TO "+quoteIdentifier(spec.NewName))

		case ast.AlterModify, ast.AlterChange:
			name := spec.Column.Name
			if name == "" {
				name = spec.OldName
			}
			err := cqlerr.Unsupportedf("changing the type of column %s is not supported: CQL cannot alter a column's type in place", name)
			return Translation{}, cqlerr.WithHint(err, "add a new column with the desired type and migrate the data")

		case ast.AlterRenameTable:
			return Translation{}, cqlerr.Unsupportedf("renaming table %s is not supported by CQL", s.Table)

		default:
			return Translation{}, cqlerr.Invalidf("unknown ALTER TABLE action %q", spec.Action)
		}
	}

	prefix := "ALTER TABLE " + tableName(s.Table)
	var stmts []string
	switch len(adds) {
	case 0:
	case 1:
		stmts = append(stmts, prefix+" ADD "+adds[0])
	default:
		stmts = append(stmts, prefix+" ADD ("+strings.Join(adds, ", ")+")")
	}
	switch len(drops) {
	case 0:
	case 1:
		stmts = append(stmts, prefix+" DROP "+drops[0])
	default:
		stmts = append(stmts, prefix+" DROP ("+strings.Join(drops, ", ")+")")
	}
	if len(renames) > 0 {
		stmts = append(stmts, prefix+" RENAME "+strings.Join(renames, " AND "))
	}
	return r.result(sequence(stmts)), nil
}

func (t *TableTranslator) dropTable(s *ast.DropTable) (Translation, error) {
	if len(s.Tables) == 0 {
		return Translation{}, missingName("DROP TABLE")
	}
	ifExists := ""
	if s.IfExists {
		ifExists = "IF EXISTS "
	}
	stmts := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		if table.Name == "" {
			return Translation{}, missingName("DROP TABLE")
		}
		stmts = append(stmts, "DROP TABLE "+ifExists+tableName(table))
	}
	return Translation{Text: sequence(stmts)}, nil
}

// sequence renders statements executed one after another. A single
// statement is returned bare.
func sequence(stmts []string) string {
	if len(stmts) == 1 {
		return stmts[0]
	}
	return strings.Join(stmts, ";\n") + ";"
}
