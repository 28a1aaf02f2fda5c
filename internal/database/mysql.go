package database

import (
	"context"
	"database/sql"
	"net"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"

	"github.com/koba/cqlbridge/internal/schema"
)

func mysqlDSN(config Config) string {
	cfg := mysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	port := config.Port
	if port == "" {
		port = DefaultPort(TypeMySQL)
	}
	cfg.Addr = net.JoinHostPort(config.Host, port)
	cfg.DBName = config.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// MySQL reads table definitions from information_schema
type MySQL struct {
	db       *sql.DB
	database string
}

// Tables retrieves all table names in the database
func (m *MySQL) Tables(ctx context.Context) ([]string, error) {
	query := "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"
	rows, err := m.db.QueryContext(ctx, query, m.database)
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
func (m *MySQL) TableSchema(ctx context.Context, tableName string) (*schema.TableSchema, error) {
	columns, err := m.columns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.Newf("table %s does not exist", tableName)
	}
	indexes, err := m.indexes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := m.foreignKeys(ctx, tableName)
	if err != nil {
		return nil, err
	}

	t := &schema.TableSchema{Name: tableName, Columns: columns, Indexes: indexes, ForeignKeys: foreignKeys}
	markPrimaryKey(t)
	return t, nil
}

func (m *MySQL) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			EXTRA,
			ORDINAL_POSITION
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := m.db.QueryContext(ctx, query, m.database, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get columns")
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultValue sql.NullString
		var extra string

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultValue, &extra, &col.Position); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}

		col.Nullable = nullable == "YES"
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (m *MySQL) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			INDEX_NAME,
			COLUMN_NAME,
			NON_UNIQUE
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`
	rows, err := m.db.QueryContext(ctx, query, m.database, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get indexes")
	}
	defer rows.Close()

	indexMap := make(map[string]*schema.Index)
	for rows.Next() {
		var indexName, columnName string
		var nonUnique int

		if err := rows.Scan(&indexName, &columnName, &nonUnique); err != nil {
			return nil, errors.Wrap(err, "failed to scan index")
		}

		if idx, exists := indexMap[indexName]; exists {
			idx.Columns = append(idx.Columns, columnName)
		} else {
			indexMap[indexName] = &schema.Index{
				Name:    indexName,
				Columns: []string{columnName},
				Unique:  nonUnique == 0,
				Primary: indexName == "PRIMARY",
			}
		}
	}

	return sortedIndexes(indexMap), rows.Err()
}

func (m *MySQL) foreignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			CONSTRAINT_NAME,
			COLUMN_NAME,
			REFERENCED_TABLE_NAME,
			REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
	`
	rows, err := m.db.QueryContext(ctx, query, m.database, tableName)
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

func sortedIndexes(indexMap map[string]*schema.Index) []schema.Index {
	indexes := make([]schema.Index, 0, len(indexMap))
	for _, idx := range indexMap {
		indexes = append(indexes, *idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes
}

// markPrimaryKey flags the columns of the primary index
func markPrimaryKey(t *schema.TableSchema) {
	for _, idx := range t.Indexes {
		if !idx.Primary {
			continue
		}
		for _, name := range idx.Columns {
			if col, ok := schema.FindColumn(t.Columns, name); ok {
				col.PrimaryKey = true
			}
		}
	}
}
