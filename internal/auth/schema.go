package auth

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

const (
	// Tables of the SQL permission authority. VARCHAR keys keep the DDL
	// valid on mysql, postgres and sqlite alike.
	createSubjectOperationsTable = `
		CREATE TABLE IF NOT EXISTS subject_operations (
			subject VARCHAR(255) NOT NULL,
			operation VARCHAR(64) NOT NULL,
			PRIMARY KEY (subject, operation)
		)
	`

	createSubjectKeyspacesTable = `
		CREATE TABLE IF NOT EXISTS subject_keyspaces (
			subject VARCHAR(255) NOT NULL,
			keyspace VARCHAR(255) NOT NULL,
			PRIMARY KEY (subject, keyspace)
		)
	`
)

func initializeSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		createSubjectOperationsTable,
		createSubjectKeyspacesTable,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create permission tables")
		}
	}

	return nil
}
