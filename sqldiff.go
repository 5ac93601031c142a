// Package sqldiff computes the DDL statements that migrate a MySQL schema dump
// from an old state to a new one.
//
// Both states are given as CREATE TABLE dumps, e.g. the output of
// `mysqldump --no-data`. The result drops removed tables, creates new ones and
// alters changed ones column by column and key by key.
//
// # Quick Start
//
//	stmts, err := sqldiff.DiffFiles(ctx, "old.sql", "new.sql", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = sqldiff.FormatChanges(stmts, &sqldiff.OutputOptions{Writer: os.Stdout})
//
// # Output Formats
//
// Script output writes one SQL script, prefixed with the session settings
// needed to apply it:
//
//	&OutputOptions{Writer: os.Stdout}
//
// Report output writes a markdown summary of the migration:
//
//	&OutputOptions{Writer: os.Stdout, Format: "markdown"}
//
// Multi-file output writes one script per statement plus an _overview.sql
// that sources them in order:
//
//	&OutputOptions{OutputDir: "migrations/0042"}
package sqldiff

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/sqldiff/internal/diff"
	"github.com/tordrt/sqldiff/internal/formatter"
	"github.com/tordrt/sqldiff/internal/schema"
)

// Options configures which tables take part in the diff.
//
// Table names are given without quotes. If Tables is set, only those tables
// are compared; ExcludeTables is applied afterwards.
type Options struct {
	// Tables restricts the diff to the named tables.
	// Example: []string{"users", "orders"}
	Tables []string

	// ExcludeTables omits tables from both schemas.
	// Example: []string{"schema_migrations"}
	ExcludeTables []string
}

// OutputOptions configures how statements are written.
//
// If OutputDir is set, Writer and Format are ignored. If neither Writer nor
// OutputDir is set, output goes to os.Stdout.
type OutputOptions struct {
	// Writer receives single-file output
	Writer io.Writer

	// OutputDir receives one file per statement
	OutputDir string

	// Format is "text" (SQL script, default) or "markdown" (report)
	Format string

	// Charset is used for SET NAMES; defaults to utf8
	Charset string
}

// ParseSchema parses one schema dump and applies the table filters in opts
func ParseSchema(r io.Reader, opts *Options) (schema.Schema, error) {
	s, err := schema.Parse(r)
	if err != nil {
		return nil, err
	}
	if opts != nil {
		filterTables(s, opts.Tables, opts.ExcludeTables)
	}
	return s, nil
}

// Diff parses both dumps concurrently and returns the statements migrating
// oldDump to newDump. An empty result means the schemas are equivalent.
func Diff(ctx context.Context, oldDump, newDump io.Reader, opts *Options) (diff.Stmts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var oldSchema, newSchema schema.Schema

	var g errgroup.Group
	g.Go(func() error {
		s, err := ParseSchema(oldDump, opts)
		if err != nil {
			return fmt.Errorf("failed to parse old schema: %w", err)
		}
		oldSchema = s
		return nil
	})
	g.Go(func() error {
		s, err := ParseSchema(newDump, opts)
		if err != nil {
			return fmt.Errorf("failed to parse new schema: %w", err)
		}
		newSchema = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return diff.Diff(oldSchema, newSchema), nil
}

// DiffFiles is Diff over two dump files
func DiffFiles(ctx context.Context, oldPath, newPath string, opts *Options) (diff.Stmts, error) {
	oldFile, err := os.Open(oldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open old schema: %w", err)
	}
	defer func() { _ = oldFile.Close() }()

	newFile, err := os.Open(newPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open new schema: %w", err)
	}
	defer func() { _ = newFile.Close() }()

	return Diff(ctx, oldFile, newFile, opts)
}

// FormatChanges writes statements in the format selected by opts
func FormatChanges(stmts diff.Stmts, opts *OutputOptions) error {
	if opts == nil {
		opts = &OutputOptions{Writer: os.Stdout}
	}

	// Multi-file output
	if opts.OutputDir != "" {
		f := formatter.NewMultiFileFormatter(opts.OutputDir, opts.Charset)
		return f.Format(stmts)
	}

	// Single-file output
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	switch opts.Format {
	case "", "text":
		return formatter.NewTextFormatter(writer, opts.Charset).Format(stmts)
	case "markdown":
		return formatter.NewMarkdownFormatter(writer).Format(stmts)
	default:
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", opts.Format)
	}
}

func filterTables(s schema.Schema, includeList, excludeList []string) {
	if len(includeList) == 0 && len(excludeList) == 0 {
		return
	}

	includeSet := make(map[string]bool)
	for _, tableName := range includeList {
		includeSet[tableName] = true
	}
	excludeSet := make(map[string]bool)
	for _, tableName := range excludeList {
		excludeSet[tableName] = true
	}

	for name := range s {
		bare := strings.Trim(name, "`")
		if (len(includeSet) > 0 && !includeSet[bare]) || excludeSet[bare] {
			delete(s, name)
		}
	}
}
