package translate

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/metrics"
)

// Options configures an Engine.
type Options struct {
	Replication  Replication
	DefaultLimit int64
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// Engine normalizes statements and routes them to their translator.
type Engine struct {
	keyspace *KeyspaceTranslator
	table    *TableTranslator
	index    *IndexTranslator
	view     *ViewTranslator
	query    *SelectTranslator
	insert   *InsertTranslator
	update   *UpdateTranslator
	delete   *DeleteTranslator

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEngine creates an engine with one translator per statement family.
func NewEngine(opts Options) *Engine {
	return &Engine{
		keyspace: NewKeyspaceTranslator(opts.Replication),
		table:    &TableTranslator{},
		index:    &IndexTranslator{},
		view:     &ViewTranslator{},
		query:    NewSelectTranslator(opts.DefaultLimit),
		insert:   &InsertTranslator{},
		update:   &UpdateTranslator{},
		delete:   &DeleteTranslator{},
		logger:   logging.OrNop(opts.Logger),
		metrics:  opts.Metrics,
	}
}

// Translators returns every translator the engine dispatches to.
func (e *Engine) Translators() []Translator {
	return []Translator{e.keyspace, e.table, e.index, e.view, e.query, e.insert, e.update, e.delete}
}

// Dispatch returns the translator responsible for stmt.
func (e *Engine) Dispatch(stmt ast.Statement) (Translator, error) {
	switch s := stmt.(type) {
	case *ast.CreateKeyspace, *ast.AlterKeyspace, *ast.DropKeyspace, *ast.Use:
		return e.keyspace, nil
	case *ast.Describe:
		if s.Object.ListsKeyspaces() {
			return e.keyspace, nil
		}
		return e.table, nil
	case *ast.CreateTable, *ast.AlterTable, *ast.DropTable, *ast.TruncateTable:
		return e.table, nil
	case *ast.CreateIndex, *ast.DropIndex:
		return e.index, nil
	case *ast.CreateView, *ast.DropView:
		return e.view, nil
	case *ast.Select:
		return e.query, nil
	case *ast.Insert:
		return e.insert, nil
	case *ast.Update:
		return e.update, nil
	case *ast.Delete:
		return e.delete, nil
	}
	return nil, cqlerr.NoTranslator(fmt.Sprintf("%T", stmt))
}

// Translate normalizes stmt and renders it as CQL.
func (e *Engine) Translate(stmt ast.Statement) (Translation, error) {
	stmt = Normalize(stmt)
	kind := "unknown"
	if stmt != nil {
		kind = stmt.Kind().String()
	}

	out, err := e.translate(stmt)
	e.metrics.ObserveTranslation(kind, err)
	if err != nil {
		e.logger.Debug("translation failed",
			zap.String("kind", kind),
			zap.String("category", cqlerr.Category(err)),
			zap.Error(err))
		return Translation{}, err
	}
	for _, w := range out.Warnings {
		e.logger.Debug("translation warning", zap.String("kind", kind), zap.String("warning", w))
	}
	return out, nil
}

func (e *Engine) translate(stmt ast.Statement) (Translation, error) {
	t, err := e.Dispatch(stmt)
	if err != nil {
		return Translation{}, err
	}
	out, err := t.Translate(stmt)
	if err != nil {
		return Translation{}, err
	}
	if out.Text == "" {
		return Translation{}, errors.AssertionFailedf("%s translator produced no output", t.Name())
	}
	return out, nil
}

// TranslateText translates statement text. Metadata commands the parser
// cannot represent are recognised first; everything else goes through
// parser. The parsed statement is returned alongside the translation.
func (e *Engine) TranslateText(text string, parser Parser) (Translation, ast.Statement, error) {
	if d, ok := describeFromText(text); ok {
		out, err := e.Translate(d)
		return out, d, err
	}
	if parser == nil {
		return Translation{}, nil, errors.New("no parser configured")
	}
	stmt, err := parser.Parse(text)
	if err != nil {
		e.metrics.ObserveTranslation("unknown", err)
		return Translation{}, nil, cqlerr.Parse(err, text)
	}
	out, err := e.Translate(stmt)
	return out, stmt, err
}
