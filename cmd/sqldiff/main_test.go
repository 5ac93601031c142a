package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/sqldiff/internal/schema"
	"github.com/tordrt/sqldiff/internal/store"
)

const oldDump = "CREATE TABLE `users` (\n" +
	"  `id` int NOT NULL,\n" +
	"  PRIMARY KEY (`id`)\n" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8;\n"

const newDump = "CREATE TABLE `users` (\n" +
	"  `id` int NOT NULL,\n" +
	"  `email` varchar(255) NOT NULL,\n" +
	"  PRIMARY KEY (`id`)\n" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8;\n"

const wantScript = "SET NAMES utf8;\n" +
	"SET UNIQUE_CHECKS=0;\n" +
	"SET FOREIGN_KEY_CHECKS=0;\n" +
	"\n" +
	"ALTER TABLE `users`\n" +
	"  ADD COLUMN `email` varchar(255) NOT NULL AFTER `id`;\n" +
	"\n" +
	"-- Finished\n"

func writeDumps(t *testing.T) (dir, oldPath, newPath string) {
	t.Helper()

	dir = t.TempDir()
	oldPath = filepath.Join(dir, "old.sql")
	newPath = filepath.Join(dir, "new.sql")
	require.NoError(t, os.WriteFile(oldPath, []byte(oldDump), 0o600))
	require.NoError(t, os.WriteFile(newPath, []byte(newDump), 0o600))
	return dir, oldPath, newPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestDiffCommand(t *testing.T) {
	_, oldPath, newPath := writeDumps(t)

	out, err := execute(t, "", oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, wantScript, out)
}

func TestDiffCommandNoChanges(t *testing.T) {
	_, oldPath, _ := writeDumps(t)

	out, err := execute(t, "", oldPath, oldPath)
	require.NoError(t, err)
	assert.Equal(t, "-- No changes\n", out)
}

func TestDiffCommandFlags(t *testing.T) {
	dir, oldPath, newPath := writeDumps(t)

	t.Run("charset", func(t *testing.T) {
		out, err := execute(t, "", "--charset", "utf8mb4", oldPath, newPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "SET NAMES utf8mb4;\n"))
	})

	t.Run("exclude tables", func(t *testing.T) {
		out, err := execute(t, "", "--exclude-tables", "users", oldPath, newPath)
		require.NoError(t, err)
		assert.Equal(t, "-- No changes\n", out)
	})

	t.Run("markdown", func(t *testing.T) {
		out, err := execute(t, "", "-f", "markdown", oldPath, newPath)
		require.NoError(t, err)
		assert.Contains(t, out, "# Schema Migration")
	})

	t.Run("output file", func(t *testing.T) {
		target := filepath.Join(dir, "migration.sql")
		out, err := execute(t, "", "-o", target, oldPath, newPath)
		require.NoError(t, err)
		assert.Empty(t, out)

		content, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, wantScript, string(content))
	})

	t.Run("output dir", func(t *testing.T) {
		target := filepath.Join(dir, "migration")
		_, err := execute(t, "", "-d", target, oldPath, newPath)
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(target, "001_alter_users.sql"))
		assert.NoError(t, err)
	})
}

func TestDiffCommandErrors(t *testing.T) {
	dir, oldPath, _ := writeDumps(t)

	broken := filepath.Join(dir, "broken.sql")
	require.NoError(t, os.WriteFile(broken, []byte("CREATE TABLE `x` (\n"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing argument", args: []string{oldPath}},
		{name: "missing file", args: []string{oldPath, filepath.Join(dir, "nope.sql")}},
		{name: "malformed dump", args: []string{oldPath, broken}},
		{name: "invalid format", args: []string{"-f", "html", oldPath, oldPath}},
		{name: "output and output dir", args: []string{"-o", "a.sql", "-d", "b", oldPath, oldPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeCommand(t *testing.T) {
	input := "-- dump\n" +
		"CREATE TABLE `t` (\n" +
		"  `id` int,\n" +
		"  UNIQUE KEY `b` (`id`),\n" +
		"  KEY `a` (`id`)\n" +
		") ENGINE=InnoDB AUTO_INCREMENT=5 DEFAULT CHARSET=utf8;\n"
	want := "CREATE TABLE `t` (\n" +
		"  `id` int,\n" +
		"  KEY ... (`id`)\n" +
		"  UNIQUE KEY ... (`id`)\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8;\n"

	t.Run("stdin", func(t *testing.T) {
		out, err := execute(t, input, "normalize")
		require.NoError(t, err)
		assert.Equal(t, want, out)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.sql")
		require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

		out, err := execute(t, "", "normalize", path)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	})
}

func TestSnapshotCommands(t *testing.T) {
	dir, oldPath, newPath := writeDumps(t)
	storeFlag := "--store=sqlite://" + filepath.Join(dir, "snapshots.db")

	out, err := execute(t, "", "snapshot", "save", "prod", oldPath, storeFlag)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	firstID := fields[0]

	out, err = execute(t, "", "snapshot", "diff", "prod", newPath, storeFlag)
	require.NoError(t, err)
	assert.Equal(t, wantScript, out)

	// The previous diff did not save, so the change is still pending
	out, err = execute(t, "", "snapshot", "diff", "prod", newPath, "--save", storeFlag)
	require.NoError(t, err)
	assert.Equal(t, wantScript, out)

	out, err = execute(t, "", "snapshot", "diff", "prod", newPath, storeFlag)
	require.NoError(t, err)
	assert.Equal(t, "-- No changes\n", out)

	out, err = execute(t, "", "snapshot", "list", "prod", storeFlag)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[2], firstID))

	_, err = execute(t, "", "snapshot", "diff", "unknown", newPath, storeFlag)
	assert.Error(t, err)
}

func TestSnapshotSaveRejectsMalformedDump(t *testing.T) {
	dir := t.TempDir()
	storeFlag := "--store=sqlite://" + filepath.Join(dir, "snapshots.db")

	broken := filepath.Join(dir, "broken.sql")
	require.NoError(t, os.WriteFile(broken, []byte("CREATE TABLE `x` (\n  `id` int\n"), 0o600))

	_, err := execute(t, "", "snapshot", "save", "prod", broken, storeFlag)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrStructural))

	out, err := execute(t, "", "snapshot", "list", "prod", storeFlag)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID  CREATED  CHECKSUM"}, strings.Split(strings.TrimSpace(out), "\n"))
}

func TestSnapshotDiffFrom(t *testing.T) {
	dir, oldPath, newPath := writeDumps(t)
	storeFlag := "--store=sqlite://" + filepath.Join(dir, "snapshots.db")

	out, err := execute(t, "", "snapshot", "save", "prod", oldPath, storeFlag)
	require.NoError(t, err)
	oldID := strings.Fields(out)[0]

	_, err = execute(t, "", "snapshot", "save", "prod", newPath, storeFlag)
	require.NoError(t, err)

	out, err = execute(t, "", "snapshot", "diff", "prod", newPath, storeFlag)
	require.NoError(t, err)
	assert.Equal(t, "-- No changes\n", out)

	out, err = execute(t, "", "snapshot", "diff", "prod", newPath, "--from", oldID, storeFlag)
	require.NoError(t, err)
	assert.Equal(t, wantScript, out)

	_, err = execute(t, "", "snapshot", "diff", "staging", newPath, "--from", oldID, storeFlag)
	assert.Error(t, err)

	_, err = execute(t, "", "snapshot", "diff", "prod", newPath, "--from", "00000000-0000-0000-0000-000000000000", storeFlag)
	assert.True(t, errors.Is(err, store.ErrSnapshotNotFound))
}

func TestNewLoggerWritesJSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, zerolog.InfoLevel)

	log.Info().Str("table", "`users`").Msg("computed schema diff")
	log.Debug().Msg("filtered out")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "`users`", entry["table"])
	assert.Equal(t, "computed schema diff", entry["message"])
}
