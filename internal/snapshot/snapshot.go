// Package snapshot captures relational catalogs and stores them in SQLite
// files so that later catalogs can be compared against them.
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/koba/cqlbridge/internal/database"
	"github.com/koba/cqlbridge/internal/schema"
)

const (
	createMetadataTable = `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`

	createTableSchemasTable = `
		CREATE TABLE IF NOT EXISTS table_schemas (
			table_name TEXT PRIMARY KEY,
			schema_json TEXT NOT NULL
		)
	`
)

// Catalog is the set of table definitions read from one database
type Catalog struct {
	CreatedAt time.Time
	Source    string
	Tables    map[string]*schema.TableSchema
}

// Capture reads the given tables, or every table when none are named
func Capture(ctx context.Context, src database.Introspector, source string, tables []string) (*Catalog, error) {
	if len(tables) == 0 {
		var err error
		tables, err = src.Tables(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list tables")
		}
	}

	catalog := &Catalog{
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Tables:    make(map[string]*schema.TableSchema, len(tables)),
	}
	for _, name := range tables {
		t, err := src.TableSchema(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read table %s", name)
		}
		catalog.Tables[name] = t
	}
	return catalog, nil
}

// Names returns the table names of the catalog
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	return names
}

// Save writes the catalog to a new SQLite file at path, replacing any
// existing file
func Save(ctx context.Context, catalog *Catalog, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return errors.Wrap(err, "failed to remove existing snapshot")
		}
	}

	db, err := database.Open(ctx, database.Config{Type: database.TypeSQLite, Path: path})
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot database")
	}
	defer db.Close()

	for _, stmt := range []string{createMetadataTable, createTableSchemasTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to initialize snapshot schema")
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	metadata := map[string]string{
		"created_at": catalog.CreatedAt.Format(time.RFC3339),
		"source":     catalog.Source,
	}
	for key, value := range metadata {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
			return errors.Wrap(err, "failed to insert metadata")
		}
	}

	for name, t := range catalog.Tables {
		schemaJSON, err := json.Marshal(t)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal schema of %s", name)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO table_schemas (table_name, schema_json) VALUES (?, ?)", name, string(schemaJSON)); err != nil {
			return errors.Wrapf(err, "failed to insert schema of %s", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Load reads a catalog written by Save
func Load(ctx context.Context, path string) (*Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Newf("snapshot file does not exist: %s", path)
	}

	db, err := database.Open(ctx, database.Config{Type: database.TypeSQLite, Path: path})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot database")
	}
	defer db.Close()

	catalog := &Catalog{Tables: make(map[string]*schema.TableSchema)}

	metadata, err := loadMetadata(ctx, db)
	if err != nil {
		return nil, err
	}
	catalog.Source = metadata["source"]
	if ts := metadata["created_at"]; ts != "" {
		if catalog.CreatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, errors.Wrap(err, "invalid snapshot timestamp")
		}
	}

	rows, err := db.QueryContext(ctx, "SELECT table_name, schema_json FROM table_schemas")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query table schemas")
	}
	defer rows.Close()

	for rows.Next() {
		var name, schemaJSON string
		if err := rows.Scan(&name, &schemaJSON); err != nil {
			return nil, errors.Wrap(err, "failed to scan table schema")
		}
		var t schema.TableSchema
		if err := json.Unmarshal([]byte(schemaJSON), &t); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal schema of %s", name)
		}
		catalog.Tables[name] = &t
	}
	return catalog, rows.Err()
}

func loadMetadata(ctx context.Context, db *database.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metadata")
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan metadata")
		}
		metadata[key] = value
	}
	return metadata, rows.Err()
}
