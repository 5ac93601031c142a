package schema

import (
	"fmt"
	"sort"
	"strings"
)

const (
	defaultEngine  = "InnoDB"
	defaultCharset = "utf8"

	primaryKeyName = "PRIMARY KEY"
)

// Schema maps a quoted table name to its definition
type Schema map[string]*Table

// Names returns the table names in sorted order
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attribute is a key or constraint declared on a table.
//
// Key is synthesized from the declaration and identifies the attribute for
// DROP clauses. Definition is the declaration as written (trailing comma
// removed). Canonical is the text used to decide whether two attributes are
// the same: for foreign keys the constraint name is dropped, so the same
// foreign key declared through KEY or CONSTRAINT compares on its body.
type Attribute struct {
	Key        string
	Definition string
	Canonical  string
}

// Table represents one CREATE TABLE block of a dump
type Table struct {
	Name        string
	Engine      string
	Charset     string
	Columns     []string
	Definitions map[string]string
	Attributes  []Attribute
}

// NewTable creates an empty table with the default engine and charset
func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		Engine:      defaultEngine,
		Charset:     defaultCharset,
		Definitions: make(map[string]string),
	}
}

// AddColumn appends a column declaration
func (t *Table) AddColumn(name, definition string) error {
	if _, ok := t.Definitions[name]; ok {
		return fmt.Errorf("column %s in table %s: %w", name, t.Name, ErrDuplicateName)
	}
	t.Definitions[name] = definition
	t.Columns = append(t.Columns, name)
	return nil
}

// AddAttribute appends a key or constraint
func (t *Table) AddAttribute(attr Attribute) error {
	if _, ok := t.Attribute(attr.Key); ok {
		return fmt.Errorf("attribute %s in table %s: %w", attr.Key, t.Name, ErrDuplicateName)
	}
	t.Attributes = append(t.Attributes, attr)
	return nil
}

// Column returns the declaration of a column
func (t *Table) Column(name string) (string, bool) {
	def, ok := t.Definitions[name]
	return def, ok
}

// Attribute looks up an attribute by its synthesized key
func (t *Table) Attribute(key string) (Attribute, bool) {
	for _, attr := range t.Attributes {
		if attr.Key == key {
			return attr, true
		}
	}
	return Attribute{}, false
}

// CreateStatement renders the full CREATE TABLE statement. Columns keep their
// declared order; attributes are sorted by their text.
func (t *Table) CreateStatement() string {
	lines := make([]string, 0, len(t.Columns)+len(t.Attributes))
	for _, name := range t.Columns {
		lines = append(lines, t.Definitions[name])
	}

	attrs := make([]string, 0, len(t.Attributes))
	for _, attr := range t.Attributes {
		attrs = append(attrs, attr.Definition)
	}
	sort.Strings(attrs)
	lines = append(lines, attrs...)

	body := ""
	if len(lines) > 0 {
		body = "  " + strings.Join(lines, ",\n  ") + "\n"
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s) ENGINE=%s DEFAULT CHARSET=%s;",
		t.Name, body, t.Engine, t.Charset)
}

// AddColumnClause renders the ADD COLUMN clause placing name after its
// predecessor, or FIRST when it leads the table.
func (t *Table) AddColumnClause(name string) string {
	position := "FIRST"
	for i, col := range t.Columns {
		if col == name {
			if i > 0 {
				position = "AFTER " + t.Columns[i-1]
			}
			break
		}
	}
	return fmt.Sprintf("ADD COLUMN %s %s", t.Definitions[name], position)
}

// AlterColumnClause renders the MODIFY COLUMN clause for name
func (t *Table) AlterColumnClause(name string) string {
	return "MODIFY COLUMN " + t.Definitions[name]
}
