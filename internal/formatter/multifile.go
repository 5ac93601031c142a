package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/sqldiff/internal/diff"
)

const overviewFile = "_overview.sql"

// MultiFileFormatter writes one script per statement into a directory, plus
// an overview script that sets up the session and sources them in order
type MultiFileFormatter struct {
	OutputDir string
	Charset   string
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, charset string) *MultiFileFormatter {
	if charset == "" {
		charset = DefaultCharset
	}
	return &MultiFileFormatter{
		OutputDir: outputDir,
		Charset:   charset,
	}
}

// Format writes the statements to multiple files
func (f *MultiFileFormatter) Format(stmts diff.Stmts) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, len(stmts))
	for i, stmt := range stmts {
		names[i] = StmtFileName(i, stmt)
		if err := f.writeStmtFile(names[i], stmt); err != nil {
			return fmt.Errorf("failed to write statement file for %s: %w", stmt.Table, err)
		}
	}

	if err := f.writeOverview(names); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}
	return nil
}

func (f *MultiFileFormatter) writeOverview(names []string) error {
	file, err := os.Create(filepath.Join(f.OutputDir, overviewFile))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if len(names) == 0 {
		_, err := fmt.Fprintln(file, noChanges)
		return err
	}

	writePreamble(file, f.Charset)
	for _, name := range names {
		_, _ = fmt.Fprintf(file, "SOURCE %s;\n", name)
	}
	_, _ = fmt.Fprintln(file)
	_, err = fmt.Fprintln(file, finished)
	return err
}

func (f *MultiFileFormatter) writeStmtFile(name string, stmt diff.Stmt) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, stmt.SQL)
	return err
}

// StmtFileName names the file holding the i-th statement, e.g. 003_alter_users.sql
func StmtFileName(i int, stmt diff.Stmt) string {
	verb := strings.ToLower(strings.Fields(stmt.Kind.String())[0])
	table := strings.Trim(stmt.Table, "`\"")
	table = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' || r == ' ' {
			return '_'
		}
		return r
	}, table)
	return fmt.Sprintf("%03d_%s_%s.sql", i+1, verb, table)
}
