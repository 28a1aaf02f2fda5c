package generator

import (
	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/schema"
)

// CreateTableStatement builds the CREATE TABLE statement for a catalog table
func CreateTableStatement(t *schema.TableSchema, keyspace string) *ast.CreateTable {
	columns := make([]schema.Column, len(t.Columns))
	copy(columns, t.Columns)

	return &ast.CreateTable{
		Table:       ast.TableName{Keyspace: keyspace, Name: t.Name},
		IfNotExists: true,
		Columns:     columns,
		PrimaryKey:  t.PrimaryKey(),
	}
}

// CreateIndexStatements builds one CREATE INDEX per secondary index. The
// primary key index is part of CREATE TABLE.
func CreateIndexStatements(t *schema.TableSchema, keyspace string) []*ast.CreateIndex {
	var stmts []*ast.CreateIndex
	for _, idx := range t.Indexes {
		if idx.Primary || len(idx.Columns) == 0 {
			continue
		}
		cols := make([]ast.IndexColumn, len(idx.Columns))
		for i, name := range idx.Columns {
			cols[i] = ast.IndexColumn{Name: name}
		}
		stmts = append(stmts, &ast.CreateIndex{
			Name:        idx.Name,
			Table:       ast.TableName{Keyspace: keyspace, Name: t.Name},
			Columns:     cols,
			Unique:      idx.Unique,
			IfNotExists: true,
		})
	}
	return stmts
}
