package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/cqlbridge/internal/diff"
	"github.com/koba/cqlbridge/internal/schema"
	"github.com/koba/cqlbridge/internal/snapshot"
	"github.com/koba/cqlbridge/internal/translate"
)

func catalogOf(tables ...*schema.TableSchema) *snapshot.Catalog {
	c := &snapshot.Catalog{Tables: map[string]*schema.TableSchema{}}
	for _, t := range tables {
		c.Tables[t.Name] = t
	}
	return c
}

func TestMigrateTables(t *testing.T) {
	gen := NewGenerator(translate.NewEngine(translate.Options{}), "shop")
	audit := &schema.TableSchema{Name: "audit", Columns: []schema.Column{{Name: "id", Type: "INT"}}}

	script := gen.Migrate(diff.Compare(catalogOf(audit), catalogOf(usersTable())))
	assert.Equal(t, []string{
		"DROP TABLE IF EXISTS shop.audit",
		"CREATE TABLE IF NOT EXISTS shop.users (\n  id bigint,\n  email text,\n  PRIMARY KEY (id)\n)",
		"CREATE INDEX IF NOT EXISTS idx_email ON shop.users (email)",
	}, script.Statements)
	assert.Empty(t, script.Warnings)
}

func TestMigrateAlteredTable(t *testing.T) {
	gen := NewGenerator(translate.NewEngine(translate.Options{}), "")

	before := usersTable()
	before.Columns = append(before.Columns, schema.Column{Name: "legacy", Type: "TEXT"})
	before.Indexes = append(before.Indexes, schema.Index{Name: "idx_legacy", Columns: []string{"legacy"}})

	after := usersTable()
	after.Columns[1].Type = "TEXT"
	after.Columns = append(after.Columns, schema.Column{Name: "age", Type: "INT"})
	after.Indexes = append(after.Indexes, schema.Index{Name: "idx_age", Columns: []string{"age"}})
	after.ForeignKeys = []schema.ForeignKey{{Name: "fk_team", Column: "team_id", ReferencedTable: "teams", ReferencedColumn: "id"}}

	script := gen.Migrate(diff.Compare(catalogOf(before), catalogOf(after)))
	assert.Equal(t, []string{
		"DROP INDEX IF EXISTS idx_legacy",
		"ALTER TABLE users ADD age int;\nALTER TABLE users DROP legacy;",
		"CREATE INDEX IF NOT EXISTS idx_age ON users (age)",
	}, script.Statements)

	require.Len(t, script.Warnings, 2)
	assert.Contains(t, script.Warnings[0], "users: alter_table skipped: changing the type of column email is not supported")
	assert.Equal(t, "users: foreign key fk_team ADD ignored; CQL has no referential constraints", script.Warnings[1])
}

func TestMigratePrimaryKeyChange(t *testing.T) {
	gen := NewGenerator(translate.NewEngine(translate.Options{}), "")
	after := usersTable()
	after.Indexes[0].Columns = []string{"id", "email"}

	script := gen.Migrate(diff.Compare(catalogOf(usersTable()), catalogOf(after)))
	assert.Empty(t, script.Statements)
	require.Len(t, script.Warnings, 1)
	assert.Contains(t, script.Warnings[0], "primary key changed")
}

func TestMigrateSkipsUntranslatableNewTable(t *testing.T) {
	gen := NewGenerator(translate.NewEngine(translate.Options{}), "")
	notes := &schema.TableSchema{Name: "notes", Columns: []schema.Column{{Name: "body", Type: "TEXT"}}}

	script := gen.Migrate(diff.Compare(catalogOf(), catalogOf(notes)))
	assert.Empty(t, script.Statements)
	assert.Equal(t, []string{"notes"}, script.Skipped)
	require.Len(t, script.Warnings, 1)
	assert.Contains(t, script.Warnings[0], "notes: create_table skipped")
}
