package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/sqldiff/internal/diff"
)

const (
	// DefaultCharset is used for SET NAMES when none is configured
	DefaultCharset = "utf8"

	noChanges = "-- No changes"
	finished  = "-- Finished"
)

// TextFormatter writes statements as an executable SQL script
type TextFormatter struct {
	writer  io.Writer
	charset string
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer, charset string) *TextFormatter {
	if charset == "" {
		charset = DefaultCharset
	}
	return &TextFormatter{writer: w, charset: charset}
}

// Format writes the migration script, or a no-op marker when stmts is empty
func (f *TextFormatter) Format(stmts diff.Stmts) error {
	if len(stmts) == 0 {
		_, err := fmt.Fprintln(f.writer, noChanges)
		return err
	}

	writePreamble(f.writer, f.charset)
	for _, stmt := range stmts {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", stmt.SQL)
	}
	_, err := fmt.Fprintln(f.writer, finished)
	return err
}

// writePreamble disables the checks that would reject statements applied out
// of dependency order
func writePreamble(w io.Writer, charset string) {
	_, _ = fmt.Fprintf(w, "SET NAMES %s;\n", charset)
	_, _ = fmt.Fprintln(w, "SET UNIQUE_CHECKS=0;")
	_, _ = fmt.Fprintln(w, "SET FOREIGN_KEY_CHECKS=0;")
	_, _ = fmt.Fprintln(w)
}
