package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/sqldiff/internal/diff"
)

// MarkdownFormatter formats statements as a migration report
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the report in markdown format
func (f *MarkdownFormatter) Format(stmts diff.Stmts) error {
	_, _ = fmt.Fprintln(f.writer, "# Schema Migration")
	_, _ = fmt.Fprintln(f.writer)

	if len(stmts) == 0 {
		_, err := fmt.Fprintln(f.writer, "No changes.")
		return err
	}

	f.formatSummary(stmts)

	for _, stmt := range stmts {
		f.formatStmt(stmt)
	}
	return nil
}

func (f *MarkdownFormatter) formatSummary(stmts diff.Stmts) {
	_, _ = fmt.Fprintln(f.writer, "## Summary")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintf(f.writer, "- **Dropped tables:** %d\n", stmts.Count(diff.DropTable))
	_, _ = fmt.Fprintf(f.writer, "- **Created tables:** %d\n", stmts.Count(diff.CreateTable))
	_, _ = fmt.Fprintf(f.writer, "- **Altered tables:** %d\n", stmts.Count(diff.AlterTable))
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatStmt(stmt diff.Stmt) {
	_, _ = fmt.Fprintf(f.writer, "## %s %s\n\n", stmt.Kind, stmt.Table)

	if len(stmt.Clauses) > 0 {
		for _, clause := range stmt.Clauses {
			_, _ = fmt.Fprintf(f.writer, "- `` %s ``\n", clause)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	_, _ = fmt.Fprintln(f.writer, "```sql")
	_, _ = fmt.Fprintln(f.writer, stmt.SQL)
	_, _ = fmt.Fprintln(f.writer, "```")
	_, _ = fmt.Fprintln(f.writer)
}
