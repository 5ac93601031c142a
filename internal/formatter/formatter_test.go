package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/sqldiff/internal/diff"
)

var sampleStmts = diff.Stmts{
	{
		Kind:  diff.DropTable,
		Table: "`old`",
		SQL:   "DROP TABLE `old`;",
	},
	{
		Kind:  diff.CreateTable,
		Table: "`new`",
		SQL:   "CREATE TABLE `new` (\n  `id` int\n) ENGINE=InnoDB DEFAULT CHARSET=utf8;",
	},
	{
		Kind:  diff.AlterTable,
		Table: "`t`",
		Clauses: []string{
			"ADD COLUMN `name` varchar(50) AFTER `id`",
			"DROP KEY `k`",
		},
		SQL: "ALTER TABLE `t`\n  ADD COLUMN `name` varchar(50) AFTER `id`,\n  DROP KEY `k`;",
	},
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		charset string
		stmts   diff.Stmts
	}{
		{name: "text-script", stmts: sampleStmts},
		{name: "text-script-utf8mb4", charset: "utf8mb4", stmts: sampleStmts[:1]},
		{name: "text-no-changes", stmts: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewTextFormatter(&buf, tt.charset).Format(tt.stmts))

			g := goldie.New(t)
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestMarkdownFormatter(t *testing.T) {
	tests := []struct {
		name  string
		stmts diff.Stmts
	}{
		{name: "markdown-report", stmts: sampleStmts},
		{name: "markdown-no-changes", stmts: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewMarkdownFormatter(&buf).Format(tt.stmts))

			g := goldie.New(t)
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestMultiFileFormatter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migration")

	require.NoError(t, NewMultiFileFormatter(dir, "").Format(sampleStmts))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"001_drop_old.sql",
		"002_create_new.sql",
		"003_alter_t.sql",
		"_overview.sql",
	}, names)

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SET NAMES utf8;\n"+
		"SET UNIQUE_CHECKS=0;\n"+
		"SET FOREIGN_KEY_CHECKS=0;\n"+
		"\n"+
		"SOURCE 001_drop_old.sql;\n"+
		"SOURCE 002_create_new.sql;\n"+
		"SOURCE 003_alter_t.sql;\n"+
		"\n"+
		"-- Finished\n", string(overview))

	alter, err := os.ReadFile(filepath.Join(dir, "003_alter_t.sql"))
	require.NoError(t, err)
	assert.Equal(t, sampleStmts[2].SQL+"\n", string(alter))
}

func TestMultiFileFormatterNoChanges(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, NewMultiFileFormatter(dir, "utf8").Format(nil))

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.sql"))
	require.NoError(t, err)
	assert.Equal(t, "-- No changes\n", string(overview))
}

func TestStmtFileName(t *testing.T) {
	tests := []struct {
		i    int
		stmt diff.Stmt
		want string
	}{
		{i: 0, stmt: diff.Stmt{Kind: diff.DropTable, Table: "`users`"}, want: "001_drop_users.sql"},
		{i: 41, stmt: diff.Stmt{Kind: diff.AlterTable, Table: "`a.b`"}, want: "042_alter_a_b.sql"},
		{i: 9, stmt: diff.Stmt{Kind: diff.CreateTable, Table: "`../x`"}, want: "010_create____x.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, StmtFileName(tt.i, tt.stmt))
		})
	}
}
