package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/koba/cqlbridge/internal/schema"
)

func sqliteDSN(config Config) string {
	if config.Path == "" {
		return ":memory:"
	}
	return config.Path
}

// SQLite reads table definitions through the table-valued pragmas. Rows are
// always closed before the next query because the pool holds a single
// connection.
type SQLite struct {
	db *sql.DB
}

// Tables retrieves all user table names
func (s *SQLite) Tables(ctx context.Context) ([]string, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	return s.queryStrings(ctx, query)
}

// TableSchema retrieves the schema for a specific table
func (s *SQLite) TableSchema(ctx context.Context, tableName string) (*schema.TableSchema, error) {
	columns, pkOrder, err := s.columns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.Newf("table %s does not exist", tableName)
	}
	indexes, err := s.indexes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := s.foreignKeys(ctx, tableName)
	if err != nil {
		return nil, err
	}

	hasPrimary := false
	for _, idx := range indexes {
		hasPrimary = hasPrimary || idx.Primary
	}
	// An INTEGER PRIMARY KEY aliases the rowid and has no index of its own.
	if !hasPrimary && len(pkOrder) > 0 {
		indexes = append(indexes, schema.Index{Name: "PRIMARY", Columns: pkOrder, Unique: true, Primary: true})
	}

	t := &schema.TableSchema{Name: tableName, Columns: columns, Indexes: indexes, ForeignKeys: foreignKeys}
	markPrimaryKey(t)

	if len(pkOrder) == 1 {
		ddl, err := s.tableSQL(ctx, tableName)
		if err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
			if col, ok := schema.FindColumn(t.Columns, pkOrder[0]); ok {
				col.AutoIncrement = true
			}
		}
	}
	return t, nil
}

func (s *SQLite) columns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	query := `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`
	rows, err := s.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get columns")
	}
	defer rows.Close()

	type keyPart struct {
		seq  int
		name string
	}
	var columns []schema.Column
	var key []keyPart
	for rows.Next() {
		var col schema.Column
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Position, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan column")
		}
		col.Position++
		col.Nullable = notNull == 0
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			key = append(key, keyPart{seq: pk, name: col.Name})
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(key, func(i, j int) bool { return key[i].seq < key[j].seq })
	pkOrder := make([]string, len(key))
	for i, k := range key {
		pkOrder[i] = k.name
	}
	return columns, pkOrder, nil
}

func (s *SQLite) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, "unique", origin FROM pragma_index_list(?)`, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get indexes")
	}

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var unique int
		var origin string
		if err := rows.Scan(&idx.Name, &unique, &origin); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan index")
		}
		idx.Unique = unique == 1
		idx.Primary = origin == "pk"
		indexes = append(indexes, idx)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range indexes {
		cols, err := s.queryStrings(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, indexes[i].Name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get columns of index %s", indexes[i].Name)
		}
		indexes[i].Columns = cols
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes, nil
}

func (s *SQLite) foreignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `SELECT id, "from", "table", "to" FROM pragma_foreign_key_list(?)`
	rows, err := s.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get foreign keys")
	}
	defer rows.Close()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var id int
		var fk schema.ForeignKey
		var to sql.NullString
		if err := rows.Scan(&id, &fk.Column, &fk.ReferencedTable, &to); err != nil {
			return nil, errors.Wrap(err, "failed to scan foreign key")
		}
		fk.Name = fmt.Sprintf("fk_%s_%d", tableName, id)
		fk.ReferencedColumn = to.String
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

func (s *SQLite) tableSQL(ctx context.Context, tableName string) (string, error) {
	var ddl sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Scan(&ddl)
	if err != nil {
		return "", errors.Wrap(err, "failed to read table definition")
	}
	return ddl.String, nil
}

func (s *SQLite) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
