// Package diff compares two relational catalogs table by table.
package diff

import (
	"fmt"
	"io"
	"sort"

	"github.com/koba/cqlbridge/internal/snapshot"
)

// Compare returns the changed tables between two catalogs, ordered by table
// name
func Compare(old, new *snapshot.Catalog) []*TableDiff {
	names := make(map[string]bool)
	for name := range old.Tables {
		names[name] = true
	}
	for name := range new.Tables {
		names[name] = true
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var result []*TableDiff
	for _, name := range sorted {
		before, inOld := old.Tables[name]
		after, inNew := new.Tables[name]

		switch {
		case !inOld:
			result = append(result, &TableDiff{TableName: name, Action: ActionAdd, NewSchema: after})
		case !inNew:
			result = append(result, &TableDiff{TableName: name, Action: ActionDrop, OldSchema: before})
		default:
			if d := compareSchemas(before, after); d != nil {
				result = append(result, d)
			}
		}
	}
	return result
}

// Display writes the differences in a human-readable format
func Display(w io.Writer, diffs []*TableDiff) {
	if len(diffs) == 0 {
		fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, d := range diffs {
		fmt.Fprintf(w, "Table: %s\n", d.TableName)
		switch d.Action {
		case ActionAdd:
			fmt.Fprintf(w, "  Action: ADD (new table)\n")
			fmt.Fprintf(w, "  Columns: %d\n", len(d.NewSchema.Columns))
		case ActionDrop:
			fmt.Fprintf(w, "  Action: DROP (removed table)\n")
		case ActionModify:
			fmt.Fprintf(w, "  Action: MODIFY\n")
			if d.KeyChanged {
				fmt.Fprintf(w, "  Primary key changed\n")
			}
			displayChanges(w, "Column", d.ColumnChanges)
			displayChanges(w, "Index", d.IndexChanges)
			displayChanges(w, "Foreign key", d.ForeignKeyChanges)
		}
		fmt.Fprintln(w)
	}
}

func displayChanges[T any](w io.Writer, label string, changes []Change[T]) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s changes:\n", label)
	for _, c := range changes {
		fmt.Fprintf(w, "    - %s: %s\n", c.Name, c.Action)
	}
}
