package translate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koba/cqlbridge/internal/ast"
)

// Replication is the replication clause synthesized for new keyspaces.
type Replication struct {
	Class      string
	Factor     int
	DataCenter string
}

// DefaultReplication is a single-node SimpleStrategy placement.
var DefaultReplication = Replication{Class: "SimpleStrategy", Factor: 1}

func (r Replication) clause() string {
	class := r.Class
	if class == "" {
		class = DefaultReplication.Class
	}
	factor := r.Factor
	if factor <= 0 {
		factor = DefaultReplication.Factor
	}
	if class == "NetworkTopologyStrategy" && r.DataCenter != "" {
		return fmt.Sprintf("{'class': '%s', %s: %d}", class, quoteString(r.DataCenter), factor)
	}
	return fmt.Sprintf("{'class': '%s', 'replication_factor': %d}", class, factor)
}

// KeyspaceTranslator handles schema-level DDL, USE and keyspace listings.
type KeyspaceTranslator struct {
	replication Replication
}

// NewKeyspaceTranslator creates a keyspace translator that synthesizes the
// given replication clause.
func NewKeyspaceTranslator(replication Replication) *KeyspaceTranslator {
	return &KeyspaceTranslator{replication: replication}
}

func (t *KeyspaceTranslator) Name() string { return "keyspace" }

func (t *KeyspaceTranslator) CanHandle(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.CreateKeyspace, *ast.AlterKeyspace, *ast.DropKeyspace, *ast.Use:
		return true
	case *ast.Describe:
		return s.Object.ListsKeyspaces()
	}
	return false
}

func (t *KeyspaceTranslator) Translate(stmt ast.Statement) (Translation, error) {
	r := &renderer{}
	switch s := stmt.(type) {
	case *ast.CreateKeyspace:
		if s.Name == "" {
			return Translation{}, missingName("CREATE KEYSPACE")
		}
		warnIgnoredOptions(r, s.Options)
		ifNotExists := ""
		if s.IfNotExists {
			ifNotExists = "IF NOT EXISTS "
		}
		return r.result(fmt.Sprintf("CREATE KEYSPACE %s%s WITH replication = %s",
			ifNotExists, quoteIdentifier(s.Name), t.replication.clause())), nil

	case *ast.AlterKeyspace:
		if s.Name == "" {
			return Translation{}, missingName("ALTER KEYSPACE")
		}
		warnIgnoredOptions(r, s.Options)
		return r.result(fmt.Sprintf("ALTER KEYSPACE %s WITH replication = %s",
			quoteIdentifier(s.Name), t.replication.clause())), nil

	case *ast.DropKeyspace:
		if s.Name == "" {
			return Translation{}, missingName("DROP KEYSPACE")
		}
		ifExists := ""
		if s.IfExists {
			ifExists = "IF EXISTS "
		}
		return r.result(fmt.Sprintf("DROP KEYSPACE %s%s", ifExists, quoteIdentifier(s.Name))), nil

	case *ast.Use:
		if s.Keyspace == "" {
			return Translation{}, missingName("USE")
		}
		return r.result("USE " + quoteIdentifier(s.Keyspace)), nil

	case *ast.Describe:
		if s.Object.ListsKeyspaces() {
			return r.result(describeText(&ast.Describe{Object: ast.DescribeKeyspaces})), nil
		}
	}
	return Translation{}, wrongStatement(t, stmt)
}

// warnIgnoredOptions reports schema options (character set, collation, ...)
// that have no keyspace equivalent.
func warnIgnoredOptions(r *renderer, options map[string]string) {
	if len(options) == 0 {
		return
	}
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, strings.ToUpper(name))
	}
	sort.Strings(names)
	r.warn("schema options %s have no keyspace equivalent and were ignored", strings.Join(names, ", "))
}
