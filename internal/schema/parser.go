package schema

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	tableStartRe = regexp.MustCompile("(?i)^CREATE TABLE (`.*?`) \\(\\s*$")
	tableEndRe   = regexp.MustCompile("(?i)^\\) ENGINE=(.*?)(?:\\s.*)?\\sDEFAULT CHARSET=(.*?)(?:[;\\s]|$)")
	columnRe     = regexp.MustCompile("^(`.*?`)\\s+(.*)")
	attributeRe  = regexp.MustCompile("(?i)^(\\s*((?:UNIQUE\\s+)?KEY|CONSTRAINT))\\s+(`.*?`)\\s+((?:FOREIGN\\s+KEY\\s)?)")
)

// boundaryRule handles a line that opens or closes a table block
type boundaryRule struct {
	pattern *regexp.Regexp
	apply   func(p *parser, m []string) error
}

// declarationRule classifies a line inside a table block
type declarationRule struct {
	match func(line string) []string
	apply func(t *Table, line string, m []string) error
}

var boundaryRules = []boundaryRule{
	{pattern: tableStartRe, apply: (*parser).openTable},
	{pattern: tableEndRe, apply: (*parser).closeTable},
}

var declarationRules = []declarationRule{
	{match: columnRe.FindStringSubmatch, apply: addColumn},
	{match: matchPrimaryKey, apply: addPrimaryKey},
	{match: attributeRe.FindStringSubmatch, apply: addKey},
}

type parser struct {
	schema Schema
	table  *Table
	line   int
}

// Parse reads a schema dump and returns its tables keyed by name
func Parse(r io.Reader) (Schema, error) {
	p := &parser{schema: make(Schema)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := p.feed(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.schema, nil
}

// ParseLines parses a dump that has already been split into lines
func ParseLines(lines []string) (Schema, error) {
	p := &parser{schema: make(Schema)}
	for _, line := range lines {
		if err := p.feed(line); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.schema, nil
}

func (p *parser) feed(line string) error {
	p.line++
	line = strings.TrimSuffix(line, "\r")

	for _, rule := range boundaryRules {
		if m := rule.pattern.FindStringSubmatch(line); m != nil {
			if err := rule.apply(p, m); err != nil {
				return p.errorf(line, err)
			}
			return nil
		}
	}

	// Lines between tables (comments, SET statements, blanks) are skipped
	if p.table == nil {
		return nil
	}

	if err := p.table.AddLine(line); err != nil {
		return p.errorf(line, err)
	}
	return nil
}

func (p *parser) finish() error {
	if p.table != nil {
		return &ParseError{
			Line: p.line,
			Err:  fmt.Errorf("table %s not terminated at end of input: %w", p.table.Name, ErrStructural),
		}
	}
	return nil
}

func (p *parser) openTable(m []string) error {
	if p.table != nil {
		return fmt.Errorf("table %s opened inside table %s: %w", m[1], p.table.Name, ErrStructural)
	}
	p.table = NewTable(m[1])
	return nil
}

func (p *parser) closeTable(m []string) error {
	if p.table == nil {
		return fmt.Errorf("table end without open table: %w", ErrStructural)
	}
	if _, ok := p.schema[p.table.Name]; ok {
		return fmt.Errorf("table %s: %w", p.table.Name, ErrDuplicateName)
	}
	p.table.Engine = m[1]
	p.table.Charset = m[2]
	p.schema[p.table.Name] = p.table
	p.table = nil
	return nil
}

func (p *parser) errorf(line string, err error) error {
	return &ParseError{Line: p.line, Text: line, Err: err}
}

// AddLine classifies one declaration line of the table body
func (t *Table) AddLine(line string) error {
	line = strings.TrimSuffix(strings.TrimSpace(line), ",")

	for _, rule := range declarationRules {
		if m := rule.match(line); m != nil {
			return rule.apply(t, line, m)
		}
	}
	return ErrUnrecognizedDeclaration
}

func matchPrimaryKey(line string) []string {
	if strings.HasPrefix(line, primaryKeyName+" ") {
		return []string{line}
	}
	return nil
}

func addColumn(t *Table, line string, m []string) error {
	return t.AddColumn(m[1], line)
}

func addPrimaryKey(t *Table, line string, _ []string) error {
	return t.AddAttribute(Attribute{
		Key:        primaryKeyName,
		Definition: line,
		Canonical:  line,
	})
}

func addKey(t *Table, line string, m []string) error {
	keyword := strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
	name, fkey := m[3], m[4]

	attr := Attribute{
		Key:        keyword + " " + name,
		Definition: line,
		Canonical:  line,
	}
	if fkey != "" {
		attr.Key = "FOREIGN KEY " + name
		attr.Canonical = m[1] + " " + fkey + line[len(m[0]):]
	}
	return t.AddAttribute(attr)
}
