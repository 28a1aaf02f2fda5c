package diff

import (
	"slices"
	"sort"
	"strings"

	"github.com/koba/cqlbridge/internal/schema"
)

// Action represents the type of change
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionDrop   Action = "DROP"
	ActionModify Action = "MODIFY"
)

// Change is one added, dropped or modified element of a table. Old is nil
// for ADD and New is nil for DROP.
type Change[T any] struct {
	Name   string
	Action Action
	Old    *T
	New    *T
}

// TableDiff holds the differences of one table between two catalogs
type TableDiff struct {
	TableName         string
	Action            Action
	OldSchema         *schema.TableSchema
	NewSchema         *schema.TableSchema
	ColumnChanges     []Change[schema.Column]
	IndexChanges      []Change[schema.Index]
	ForeignKeyChanges []Change[schema.ForeignKey]
	// KeyChanged is set when the primary key columns differ
	KeyChanged bool
}

// Empty reports whether the table is unchanged
func (d *TableDiff) Empty() bool {
	return d.Action == ActionModify && !d.KeyChanged &&
		len(d.ColumnChanges) == 0 && len(d.IndexChanges) == 0 && len(d.ForeignKeyChanges) == 0
}

// compareSchemas compares two versions of a table. It returns nil when they
// are equivalent.
func compareSchemas(old, new *schema.TableSchema) *TableDiff {
	d := &TableDiff{
		TableName: new.Name,
		Action:    ActionModify,
		OldSchema: old,
		NewSchema: new,
	}

	d.ColumnChanges = changes(old.Columns, new.Columns,
		func(c schema.Column) string { return strings.ToLower(c.Name) }, columnsEqual)
	d.IndexChanges = changes(secondary(old.Indexes), secondary(new.Indexes),
		func(i schema.Index) string { return i.Name }, indexesEqual)
	d.ForeignKeyChanges = changes(old.ForeignKeys, new.ForeignKeys,
		func(fk schema.ForeignKey) string { return fk.Name }, foreignKeysEqual)
	d.KeyChanged = !slices.Equal(old.PrimaryKey(), new.PrimaryKey())

	if d.Empty() {
		return nil
	}
	return d
}

// changes matches old and new elements by key. Results are ordered by
// action (drops first) and then by name.
func changes[T any](old, new []T, key func(T) string, equal func(a, b *T) bool) []Change[T] {
	oldByKey := make(map[string]*T, len(old))
	for i := range old {
		oldByKey[key(old[i])] = &old[i]
	}
	newByKey := make(map[string]*T, len(new))
	for i := range new {
		newByKey[key(new[i])] = &new[i]
	}

	var out []Change[T]
	for k, o := range oldByKey {
		if _, ok := newByKey[k]; !ok {
			out = append(out, Change[T]{Name: k, Action: ActionDrop, Old: o})
		}
	}
	for k, n := range newByKey {
		o, ok := oldByKey[k]
		switch {
		case !ok:
			out = append(out, Change[T]{Name: k, Action: ActionAdd, New: n})
		case !equal(o, n):
			out = append(out, Change[T]{Name: k, Action: ActionModify, Old: o, New: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Action != out[j].Action {
			return actionOrder[out[i].Action] < actionOrder[out[j].Action]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var actionOrder = map[Action]int{ActionDrop: 0, ActionAdd: 1, ActionModify: 2}

// secondary filters out the primary key index, which is compared through
// PrimaryKey instead
func secondary(indexes []schema.Index) []schema.Index {
	var out []schema.Index
	for _, idx := range indexes {
		if !idx.Primary {
			out = append(out, idx)
		}
	}
	return out
}

// columnsEqual ignores position so that reordered columns are not changes
func columnsEqual(a, b *schema.Column) bool {
	if !strings.EqualFold(a.Type, b.Type) || a.Nullable != b.Nullable || a.AutoIncrement != b.AutoIncrement {
		return false
	}
	if (a.DefaultValue == nil) != (b.DefaultValue == nil) {
		return false
	}
	return a.DefaultValue == nil || *a.DefaultValue == *b.DefaultValue
}

func indexesEqual(a, b *schema.Index) bool {
	return a.Unique == b.Unique && slices.Equal(a.Columns, b.Columns)
}

func foreignKeysEqual(a, b *schema.ForeignKey) bool {
	return *a == *b
}
