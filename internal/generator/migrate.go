package generator

import (
	"fmt"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/diff"
	"github.com/koba/cqlbridge/internal/schema"
)

// Migrate translates catalog differences into the CQL statements that bring
// a keyspace created from the old catalog in line with the new one. Changes
// CQL cannot express are reported as warnings.
func (g *Generator) Migrate(diffs []*diff.TableDiff) *Script {
	script := &Script{}
	for _, d := range diffs {
		switch d.Action {
		case diff.ActionAdd:
			g.addTable(script, d.NewSchema)
		case diff.ActionDrop:
			g.try(script, d.TableName, &ast.DropTable{Tables: []ast.TableName{g.table(d.TableName)}, IfExists: true})
		case diff.ActionModify:
			g.alterTable(script, d)
		}
	}
	return script
}

func (g *Generator) addTable(script *Script, t *schema.TableSchema) {
	if !g.try(script, t.Name, CreateTableStatement(t, g.keyspace)) {
		script.Skipped = append(script.Skipped, t.Name)
		return
	}
	for _, idx := range CreateIndexStatements(t, g.keyspace) {
		g.try(script, t.Name, idx)
	}
}

func (g *Generator) alterTable(script *Script, d *diff.TableDiff) {
	name := d.TableName
	if d.KeyChanged {
		script.Warnings = append(script.Warnings,
			fmt.Sprintf("%s: primary key changed; CQL cannot alter a primary key, recreate the table", name))
	}

	// Indexes on dropped columns must go first.
	for _, c := range d.IndexChanges {
		if c.Action == diff.ActionDrop || c.Action == diff.ActionModify {
			g.try(script, name, g.dropIndex(name, c.Old.Name))
		}
	}

	var specs []ast.AlterSpec
	for _, c := range d.ColumnChanges {
		switch c.Action {
		case diff.ActionDrop:
			specs = append(specs, ast.AlterSpec{Action: ast.AlterDrop, Column: schema.Column{Name: c.Old.Name}})
		case diff.ActionAdd:
			specs = append(specs, ast.AlterSpec{Action: ast.AlterAdd, Column: *c.New})
		case diff.ActionModify:
			// Rejected by the translator; report it on its own.
			g.try(script, name, &ast.AlterTable{
				Table: g.table(name),
				Specs: []ast.AlterSpec{{Action: ast.AlterModify, Column: *c.New}},
			})
		}
	}
	// Drops and adds translate to separate statements.
	if len(specs) > 0 {
		g.try(script, name, &ast.AlterTable{Table: g.table(name), Specs: specs})
	}

	for _, c := range d.IndexChanges {
		if c.Action == diff.ActionAdd || c.Action == diff.ActionModify {
			cols := make([]ast.IndexColumn, len(c.New.Columns))
			for i, col := range c.New.Columns {
				cols[i] = ast.IndexColumn{Name: col}
			}
			g.try(script, name, &ast.CreateIndex{
				Name:        c.New.Name,
				Table:       g.table(name),
				Columns:     cols,
				Unique:      c.New.Unique,
				IfNotExists: true,
			})
		}
	}

	for _, c := range d.ForeignKeyChanges {
		script.Warnings = append(script.Warnings,
			fmt.Sprintf("%s: foreign key %s %s ignored; CQL has no referential constraints", name, c.Name, c.Action))
	}
}

func (g *Generator) dropIndex(table, index string) *ast.DropIndex {
	return &ast.DropIndex{Name: index, Table: g.table(table), IfExists: true}
}

func (g *Generator) table(name string) ast.TableName {
	return ast.TableName{Keyspace: g.keyspace, Name: name}
}

// try translates stmt into the script, turning a failure into a warning
func (g *Generator) try(script *Script, table string, stmt ast.Statement) bool {
	if err := g.add(script, table, stmt); err != nil {
		script.Warnings = append(script.Warnings,
			fmt.Sprintf("%s: %s skipped: %s", table, stmt.Kind(), cqlerr.Diagnostic(err)))
		return false
	}
	return true
}
