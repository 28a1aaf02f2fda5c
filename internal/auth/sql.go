package auth

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/koba/cqlbridge/internal/database"
)

// SQLAuthority keeps permissions in relational tables. The database is a
// trusted store, so credentials are not checked.
type SQLAuthority struct {
	db *database.DB
}

var _ Authority = (*SQLAuthority)(nil)

// NewSQLAuthority creates the permission tables if needed.
func NewSQLAuthority(ctx context.Context, db *database.DB) (*SQLAuthority, error) {
	if err := initializeSchema(ctx, db.DB); err != nil {
		return nil, err
	}
	return &SQLAuthority{db: db}, nil
}

func (a *SQLAuthority) AllowedOperations(ctx context.Context, subject, _ string) ([]string, error) {
	return a.list(ctx, "SELECT operation FROM subject_operations WHERE subject = ? ORDER BY operation", subject)
}

// Keyspaces returns the keyspaces recorded for subject.
func (a *SQLAuthority) Keyspaces(ctx context.Context, subject string) ([]string, error) {
	return a.list(ctx, "SELECT keyspace FROM subject_keyspaces WHERE subject = ? ORDER BY keyspace", subject)
}

func (a *SQLAuthority) AddKeyspace(ctx context.Context, subject, _, keyspace string) error {
	return a.replace(ctx, "subject_keyspaces", "keyspace", subject, keyspace)
}

func (a *SQLAuthority) RemoveKeyspace(ctx context.Context, subject, _, keyspace string) error {
	_, err := a.db.ExecContext(ctx,
		a.db.Rebind("DELETE FROM subject_keyspaces WHERE subject = ? AND keyspace = ?"), subject, keyspace)
	if err != nil {
		return errors.Wrapf(err, "failed to remove keyspace %s for %s", keyspace, subject)
	}
	return nil
}

// Grant allows subject to run the given operations.
func (a *SQLAuthority) Grant(ctx context.Context, subject string, operations ...string) error {
	for _, op := range operations {
		if err := a.replace(ctx, "subject_operations", "operation", subject, strings.ToLower(op)); err != nil {
			return err
		}
	}
	return nil
}

// Revoke withdraws the given operations from subject.
func (a *SQLAuthority) Revoke(ctx context.Context, subject string, operations ...string) error {
	for _, op := range operations {
		_, err := a.db.ExecContext(ctx,
			a.db.Rebind("DELETE FROM subject_operations WHERE subject = ? AND operation = ?"), subject, strings.ToLower(op))
		if err != nil {
			return errors.Wrapf(err, "failed to revoke %s from %s", op, subject)
		}
	}
	return nil
}

// replace writes one (subject, value) row, tolerating an existing row.
func (a *SQLAuthority) replace(ctx context.Context, table, column, subject, value string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	del := "DELETE FROM " + table + " WHERE subject = ? AND " + column + " = ?"
	if _, err := tx.ExecContext(ctx, a.db.Rebind(del), subject, value); err != nil {
		return errors.Wrapf(err, "failed to update %s", table)
	}
	ins := "INSERT INTO " + table + " (subject, " + column + ") VALUES (?, ?)"
	if _, err := tx.ExecContext(ctx, a.db.Rebind(ins), subject, value); err != nil {
		return errors.Wrapf(err, "failed to update %s", table)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (a *SQLAuthority) list(ctx context.Context, query, subject string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, a.db.Rebind(query), subject)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query permissions")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "failed to scan permission")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
