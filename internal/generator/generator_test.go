package generator

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/cqlbridge/internal/database"
	"github.com/koba/cqlbridge/internal/schema"
	"github.com/koba/cqlbridge/internal/translate"
)

type fakeCatalog map[string]*schema.TableSchema

func (c fakeCatalog) Tables(ctx context.Context) ([]string, error) {
	return []string{"users", "orders"}, nil
}

func (c fakeCatalog) TableSchema(ctx context.Context, table string) (*schema.TableSchema, error) {
	t, ok := c[table]
	if !ok {
		return nil, errors.Newf("table %s does not exist", table)
	}
	return t, nil
}

func usersTable() *schema.TableSchema {
	return &schema.TableSchema{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: "BIGINT", PrimaryKey: true, Position: 1},
			{Name: "email", Type: "VARCHAR(255)", Position: 2},
		},
		Indexes: []schema.Index{
			{Name: "PRIMARY", Columns: []string{"id"}, Unique: true, Primary: true},
			{Name: "idx_email", Columns: []string{"email"}},
		},
	}
}

func ordersTable() *schema.TableSchema {
	return &schema.TableSchema{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "user_id", Type: "BIGINT", Position: 1},
			{Name: "placed", Type: "DATETIME", Position: 2},
			{Name: "shape", Type: "GEOMETRY", Position: 3},
		},
		Indexes: []schema.Index{
			{Name: "PRIMARY", Columns: []string{"user_id", "placed"}, Unique: true, Primary: true},
		},
		ForeignKeys: []schema.ForeignKey{
			{Name: "fk_orders_user", Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id"},
		},
	}
}

func TestGenerate(t *testing.T) {
	gen := NewGenerator(translate.NewEngine(translate.Options{}), "shop")
	src := fakeCatalog{"users": usersTable(), "orders": ordersTable()}

	script, err := gen.Generate(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE KEYSPACE IF NOT EXISTS shop WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}",
		"CREATE TABLE IF NOT EXISTS shop.users (\n  id bigint,\n  email text,\n  PRIMARY KEY (id)\n)",
		"CREATE INDEX IF NOT EXISTS idx_email ON shop.users (email)",
		"CREATE TABLE IF NOT EXISTS shop.orders (\n  user_id bigint,\n  placed timestamp,\n  shape text,\n  PRIMARY KEY (user_id, placed)\n)",
	}, script.Statements)
	assert.Equal(t, []string{
		`orders: column shape: type "GEOMETRY" has no CQL equivalent; mapped to text`,
		"orders: foreign key fk_orders_user on user_id dropped; CQL has no referential constraints",
	}, script.Warnings)
	assert.Empty(t, script.Skipped)
}

func TestGenerateSkipsUntranslatableTables(t *testing.T) {
	gen := NewGenerator(translate.NewEngine(translate.Options{}), "")
	src := fakeCatalog{
		"users": usersTable(),
		"notes": {Name: "notes", Columns: []schema.Column{{Name: "body", Type: "TEXT"}}},
	}

	script, err := gen.Generate(context.Background(), src, []string{"notes", "users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, script.Skipped)
	require.NotEmpty(t, script.Warnings)
	assert.Contains(t, script.Warnings[0], "notes: skipped: table notes has no primary key")
	require.Len(t, script.Statements, 2)
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_email ON users (email)", script.Statements[1])

	_, err = gen.Generate(context.Background(), src, []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read table missing")
}

func TestScriptString(t *testing.T) {
	script := &Script{
		Statements: []string{"CREATE TABLE t (\n  id int,\n  PRIMARY KEY (id)\n)", "ALTER TABLE t ADD a int;\nALTER TABLE t DROP b;"},
		Warnings:   []string{"t: something"},
	}
	assert.Equal(t,
		"-- t: something\n\nCREATE TABLE t (\n  id int,\n  PRIMARY KEY (id)\n);\n\nALTER TABLE t ADD a int;\nALTER TABLE t DROP b;\n",
		script.String())
	assert.Empty(t, (&Script{}).String())
}

func TestGenerateFromSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Type: database.TypeSQLite})
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE accounts (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, active BOOLEAN)`,
		`CREATE INDEX idx_accounts_name ON accounts (name)`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	script, err := NewGenerator(translate.NewEngine(translate.Options{}), "").Generate(ctx, db.Introspector(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS accounts (\n  id int,\n  name text,\n  active boolean,\n  PRIMARY KEY (id)\n)",
		"CREATE INDEX IF NOT EXISTS idx_accounts_name ON accounts (name)",
	}, script.Statements)
	assert.Equal(t, []string{
		"accounts: column id: AUTO_INCREMENT is not supported by CQL; consider a uuid key",
	}, script.Warnings)
}
