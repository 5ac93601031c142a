// Package diff derives the DDL statements that migrate one parsed schema to
// another.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tordrt/sqldiff/internal/schema"
)

// Kind identifies the statement type
type Kind int

const (
	DropTable Kind = iota
	CreateTable
	AlterTable
)

func (k Kind) String() string {
	switch k {
	case DropTable:
		return "DROP TABLE"
	case CreateTable:
		return "CREATE TABLE"
	case AlterTable:
		return "ALTER TABLE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Stmt is a single DDL statement
type Stmt struct {
	Kind  Kind
	Table string
	// Clauses holds the ALTER TABLE clauses in emission order
	Clauses []string
	SQL     string
}

func (s Stmt) String() string {
	return s.SQL
}

// Stmts is an ordered list of statements
type Stmts []Stmt

// Strings returns the SQL text of every statement
func (s Stmts) Strings() []string {
	out := make([]string, len(s))
	for i, stmt := range s {
		out[i] = stmt.SQL
	}
	return out
}

// Count returns how many statements have the given kind
func (s Stmts) Count(kind Kind) int {
	n := 0
	for _, stmt := range s {
		if stmt.Kind == kind {
			n++
		}
	}
	return n
}

// Diff computes the statements that turn from into to. Dropped tables come
// first, then created or altered tables in name order. An empty result means
// the schemas are equivalent.
func Diff(from, to schema.Schema) Stmts {
	var stmts Stmts

	for _, name := range from.Names() {
		if _, ok := to[name]; !ok {
			stmts = append(stmts, Stmt{
				Kind:  DropTable,
				Table: name,
				SQL:   fmt.Sprintf("DROP TABLE %s;", name),
			})
		}
	}

	for _, name := range to.Names() {
		newTable := to[name]
		oldTable, ok := from[name]
		if !ok {
			stmts = append(stmts, Stmt{
				Kind:  CreateTable,
				Table: name,
				SQL:   newTable.CreateStatement(),
			})
			continue
		}

		clauses := TableClauses(oldTable, newTable)
		if len(clauses) == 0 {
			continue
		}
		stmts = append(stmts, Stmt{
			Kind:    AlterTable,
			Table:   name,
			Clauses: clauses,
			SQL:     fmt.Sprintf("ALTER TABLE %s\n  %s;", name, strings.Join(clauses, ",\n  ")),
		})
	}

	return stmts
}

// TableClauses lists the ALTER TABLE clauses between two versions of a table:
// dropped columns, added columns, modified columns, dropped attributes and
// added attributes, in that order.
func TableClauses(oldTable, newTable *schema.Table) []string {
	var clauses []string

	var dropped []string
	for _, col := range oldTable.Columns {
		if _, ok := newTable.Column(col); !ok {
			dropped = append(dropped, col)
		}
	}
	sort.Strings(dropped)
	for _, col := range dropped {
		clauses = append(clauses, "DROP COLUMN "+col)
	}

	// Added and modified columns follow the new column order so AFTER chains
	for _, col := range newTable.Columns {
		if _, ok := oldTable.Column(col); !ok {
			clauses = append(clauses, newTable.AddColumnClause(col))
		}
	}
	for _, col := range newTable.Columns {
		oldDef, ok := oldTable.Column(col)
		if ok && oldDef != newTable.Definitions[col] {
			clauses = append(clauses, newTable.AlterColumnClause(col))
		}
	}

	oldAttrs := canonicalSet(oldTable.Attributes)
	newAttrs := canonicalSet(newTable.Attributes)
	for _, attr := range oldTable.Attributes {
		if !newAttrs[attr.Canonical] {
			clauses = append(clauses, "DROP "+strings.Replace(attr.Key, "UNIQUE KEY", "KEY", 1))
		}
	}
	for _, attr := range newTable.Attributes {
		if !oldAttrs[attr.Canonical] {
			clauses = append(clauses, "ADD "+attr.Definition)
		}
	}

	return clauses
}

func canonicalSet(attrs []schema.Attribute) map[string]bool {
	set := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		set[attr.Canonical] = true
	}
	return set
}
