// Package translate turns statement ASTs into CQL text.
//
// Each statement family has its own translator. The Engine normalizes a
// statement, selects the one translator responsible for it and records the
// outcome.
package translate

import (
	"github.com/cockroachdb/errors"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// Translation is the CQL rendering of one statement. Text holds a single
// statement without a terminator, or several terminated statements (a
// batch block or a DDL sequence).
type Translation struct {
	Text     string
	Warnings []string
}

// Translator translates one family of statements.
type Translator interface {
	// Name identifies the translator in logs.
	Name() string
	// CanHandle reports whether the translator accepts stmt.
	CanHandle(stmt ast.Statement) bool
	// Translate renders stmt as CQL.
	Translate(stmt ast.Statement) (Translation, error)
}

// Parser turns statement text into an AST.
type Parser interface {
	Parse(text string) (ast.Statement, error)
}

// wrongStatement reports a statement routed to a translator that does not
// claim it.
func wrongStatement(t Translator, stmt ast.Statement) error {
	return errors.Wrapf(cqlerr.NoTranslator(stmt.Kind().String()), "%s translator", t.Name())
}

func missingName(statement string) error {
	return cqlerr.MissingClausef("%s requires a name", statement)
}
