package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"

	"github.com/koba/cqlbridge/internal/schema"
)

func postgresDSN(config Config) string {
	port := config.Port
	if port == "" {
		port = DefaultPort(TypePostgres)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.Host,
		port,
		config.User,
		config.Password,
		config.Database,
	)
}

// Postgres reads table definitions from the public schema
type Postgres struct {
	db *sql.DB
}

// Tables retrieves all table names in the public schema
func (p *Postgres) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, errors.Wrap(err, "failed to scan table name")
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// TableSchema retrieves the schema for a specific table
func (p *Postgres) TableSchema(ctx context.Context, tableName string) (*schema.TableSchema, error) {
	columns, err := p.columns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.Newf("table %s does not exist", tableName)
	}
	indexes, err := p.indexes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := p.foreignKeys(ctx, tableName)
	if err != nil {
		return nil, err
	}

	t := &schema.TableSchema{Name: tableName, Columns: columns, Indexes: indexes, ForeignKeys: foreignKeys}
	markPrimaryKey(t)
	return t, nil
}

func (p *Postgres) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`
	rows, err := p.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get columns")
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultValue, &col.Position); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}

		col.Nullable = nullable == "YES"
		// serial columns default to nextval(); that is the auto increment,
		// not a user default
		if strings.Contains(strings.ToLower(defaultValue.String), "nextval") {
			col.AutoIncrement = true
		} else if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (p *Postgres) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			a.attname AS column_name,
			ix.indisunique AS is_unique,
			ix.indisprimary AS is_primary
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1 AND t.relkind = 'r'
		ORDER BY i.relname, array_position(ix.indkey::int2[], a.attnum)
	`
	rows, err := p.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get indexes")
	}
	defer rows.Close()

	indexMap := make(map[string]*schema.Index)
	for rows.Next() {
		var indexName, columnName string
		var isUnique, isPrimary bool

		if err := rows.Scan(&indexName, &columnName, &isUnique, &isPrimary); err != nil {
			return nil, errors.Wrap(err, "failed to scan index")
		}

		if idx, exists := indexMap[indexName]; exists {
			idx.Columns = append(idx.Columns, columnName)
		} else {
			indexMap[indexName] = &schema.Index{
				Name:    indexName,
				Columns: []string{columnName},
				Unique:  isUnique,
				Primary: isPrimary,
			}
		}
	}

	return sortedIndexes(indexMap), rows.Err()
}

func (p *Postgres) foreignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = 'public'
			AND tc.table_name = $1
	`
	rows, err := p.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get foreign keys")
	}
	defer rows.Close()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, errors.Wrap(err, "failed to scan foreign key")
		}
		foreignKeys = append(foreignKeys, fk)
	}

	return foreignKeys, rows.Err()
}
