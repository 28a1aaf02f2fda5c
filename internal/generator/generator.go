// Package generator produces a CQL schema script from a relational catalog.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/database"
	"github.com/koba/cqlbridge/internal/translate"
)

// Script is a generated CQL schema
type Script struct {
	Statements []string
	Warnings   []string
	// Skipped lists tables that could not be translated
	Skipped []string
}

// String renders the script with warnings as leading comments
func (s *Script) String() string {
	var b strings.Builder
	for _, w := range s.Warnings {
		b.WriteString("-- ")
		b.WriteString(w)
		b.WriteString("\n")
	}
	if len(s.Warnings) > 0 && len(s.Statements) > 0 {
		b.WriteString("\n")
	}
	for i, stmt := range s.Statements {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(stmt)
		if !strings.HasSuffix(stmt, ";") {
			b.WriteString(";")
		}
	}
	if len(s.Statements) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// Generator converts relational tables into CQL DDL
type Generator struct {
	engine   *translate.Engine
	keyspace string
}

// NewGenerator creates a generator that places tables in keyspace. An empty
// keyspace leaves table names unqualified.
func NewGenerator(engine *translate.Engine, keyspace string) *Generator {
	return &Generator{engine: engine, keyspace: keyspace}
}

// Generate reads the given tables, or every table when none are named, and
// translates their definitions.
func (g *Generator) Generate(ctx context.Context, src database.Introspector, tables []string) (*Script, error) {
	if len(tables) == 0 {
		var err error
		tables, err = src.Tables(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list tables")
		}
	}

	script := &Script{}
	if g.keyspace != "" {
		if err := g.add(script, "", &ast.CreateKeyspace{Name: g.keyspace, IfNotExists: true}); err != nil {
			return nil, err
		}
	}

	for _, tableName := range tables {
		t, err := src.TableSchema(ctx, tableName)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read table %s", tableName)
		}

		if err := g.add(script, tableName, CreateTableStatement(t, g.keyspace)); err != nil {
			script.Skipped = append(script.Skipped, tableName)
			script.Warnings = append(script.Warnings,
				fmt.Sprintf("%s: skipped: %s", tableName, cqlerr.Diagnostic(err)))
			continue
		}
		for _, idx := range CreateIndexStatements(t, g.keyspace) {
			if err := g.add(script, tableName, idx); err != nil {
				script.Warnings = append(script.Warnings,
					fmt.Sprintf("%s: index %s skipped: %s", tableName, idx.Name, cqlerr.Diagnostic(err)))
			}
		}
		for _, fk := range t.ForeignKeys {
			script.Warnings = append(script.Warnings,
				fmt.Sprintf("%s: foreign key %s on %s dropped; CQL has no referential constraints", tableName, fk.Name, fk.Column))
		}
	}
	return script, nil
}

func (g *Generator) add(script *Script, table string, stmt ast.Statement) error {
	out, err := g.engine.Translate(stmt)
	if err != nil {
		return err
	}
	script.Statements = append(script.Statements, out.Text)
	for _, w := range out.Warnings {
		if table != "" {
			w = table + ": " + w
		}
		script.Warnings = append(script.Warnings, w)
	}
	return nil
}
