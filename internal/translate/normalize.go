package translate

import (
	"regexp"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
)

// Metadata words the upstream parser mistakes for table names.
var reservedMetadataNames = map[string]bool{
	"keyspaces": true,
	"databases": true,
	"schemas":   true,
}

const identifierPattern = "(`[^`]+`|\"[^\"]+\"|\\[[^\\]]+\\]|[A-Za-z_][\\w]*)"

var (
	listKeyspacesPattern = regexp.MustCompile(`(?i)^\s*(?:SHOW|DESCRIBE|DESC)\s+(?:TABLE\s+)?(?:DATABASES|SCHEMAS|KEYSPACES)\s*;?\s*$`)
	listTablesPattern    = regexp.MustCompile(`(?i)^\s*(?:SHOW|DESCRIBE|DESC)\s+(?:FULL\s+)?TABLES\s*;?\s*$`)
	describeTablePattern = regexp.MustCompile(`(?i)^\s*(?:DESCRIBE|DESC)\s+(?:TABLE\s+)?` +
		`(?:` + identifierPattern + `\.)?` + identifierPattern + `\s*;?\s*$`)
	showColumnsPattern = regexp.MustCompile(`(?i)^\s*SHOW\s+(?:FULL\s+)?(?:COLUMNS|FIELDS)\s+(?:FROM|IN)\s+` +
		`(?:` + identifierPattern + `\.)?` + identifierPattern + `\s*;?\s*$`)
)

// NormalizeText rewrites metadata-inspection commands the upstream parser
// cannot represent into their canonical CQL form. It returns false when the
// text is not such a command and should be parsed normally.
func NormalizeText(raw string) (string, bool) {
	d, ok := describeFromText(raw)
	if !ok {
		return "", false
	}
	return describeText(d), true
}

func describeFromText(raw string) (*ast.Describe, bool) {
	if listKeyspacesPattern.MatchString(raw) {
		return &ast.Describe{Object: ast.DescribeKeyspaces}, true
	}
	if listTablesPattern.MatchString(raw) {
		return &ast.Describe{Object: ast.DescribeTables}, true
	}
	if m := describeTablePattern.FindStringSubmatch(raw); m != nil {
		return normalizeDescribe(&ast.Describe{
			Object: ast.DescribeTable,
			Table:  ast.TableName{Keyspace: unquote(m[1]), Name: unquote(m[2])},
		}), true
	}
	if m := showColumnsPattern.FindStringSubmatch(raw); m != nil {
		return &ast.Describe{
			Object: ast.DescribeTable,
			Table:  ast.TableName{Keyspace: unquote(m[1]), Name: unquote(m[2])},
		}, true
	}
	return nil, false
}

// Normalize applies the AST-level rewrites. It is the single place where
// metadata words are reserved: a describe over a table named like a
// metadata listing becomes that listing.
func Normalize(stmt ast.Statement) ast.Statement {
	if d, ok := stmt.(*ast.Describe); ok {
		return normalizeDescribe(d)
	}
	return stmt
}

func normalizeDescribe(d *ast.Describe) *ast.Describe {
	switch {
	case d.Object.ListsKeyspaces():
		return &ast.Describe{Object: ast.DescribeKeyspaces}
	case d.Object == ast.DescribeTable || d.Object == ast.DescribeColumns:
		if d.Table.Keyspace == "" && reservedMetadataNames[strings.ToLower(unquote(d.Table.Name))] {
			return &ast.Describe{Object: ast.DescribeKeyspaces}
		}
		if d.Table.Name == "" {
			return &ast.Describe{Object: ast.DescribeTables}
		}
	}
	return d
}

// describeText renders a normalized describe statement.
func describeText(d *ast.Describe) string {
	switch d.Object {
	case ast.DescribeKeyspaces:
		return "DESCRIBE KEYSPACES"
	case ast.DescribeTables:
		return "DESCRIBE TABLES"
	}
	return "DESCRIBE TABLE " + tableName(d.Table)
}
