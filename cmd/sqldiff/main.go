package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tordrt/sqldiff"
	"github.com/tordrt/sqldiff/internal/config"
	"github.com/tordrt/sqldiff/internal/diff"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqldiff OLD NEW",
		Short: "Generate the DDL that migrates one MySQL schema dump to another",
		Long: `sqldiff compares two CREATE TABLE dumps (for example mysqldump --no-data output)
and prints the DROP, CREATE and ALTER TABLE statements that turn the old schema into the new one.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDiff,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: ./sqldiff.yaml if present)")
	pf.StringSliceP("tables", "t", nil, "Only compare these tables (comma-separated, optional)")
	pf.StringSlice("exclude-tables", nil, "Tables to ignore (comma-separated, optional)")
	pf.String("charset", "utf8", "Charset for the SET NAMES preamble")
	pf.StringP("format", "f", config.FormatText, "Output format: text or markdown")
	pf.StringP("output", "o", "", "Output file (default: stdout)")
	pf.StringP("output-dir", "d", "", "Output directory, one file per statement")
	pf.String("store", "sqlite://sqldiff.db", "Snapshot store URL (sqlite://, postgres:// or mysql://)")
	pf.String("log-level", "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newNormalizeCmd(), newSnapshotCmd())
	return rootCmd
}

// setup loads the configuration and builds the logger for a command run
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	return cfg, newLogger(cmd.ErrOrStderr(), cfg.Level()), nil
}

// newLogger writes human-readable logs to a terminal and JSON anywhere else
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := w
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		out = zerolog.ConsoleWriter{Out: f}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger().
		Level(level)
}

func diffOptions(cfg config.Config) *sqldiff.Options {
	return &sqldiff.Options{
		Tables:        cfg.Tables,
		ExcludeTables: cfg.ExcludeTables,
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	log.Debug().Str("old", args[0]).Str("new", args[1]).Msg("diffing schemas")

	stmts, err := sqldiff.DiffFiles(cmd.Context(), args[0], args[1], diffOptions(cfg))
	if err != nil {
		return err
	}

	log.Info().
		Int("drop", stmts.Count(diff.DropTable)).
		Int("create", stmts.Count(diff.CreateTable)).
		Int("alter", stmts.Count(diff.AlterTable)).
		Msg("computed schema diff")

	return writeChanges(cmd, cfg, log, stmts)
}

// writeChanges renders stmts to the configured destination
func writeChanges(cmd *cobra.Command, cfg config.Config, log zerolog.Logger, stmts diff.Stmts) error {
	outOpts := &sqldiff.OutputOptions{
		OutputDir: cfg.OutputDir,
		Format:    cfg.Format,
		Charset:   cfg.Charset,
	}

	if cfg.OutputDir == "" {
		w, closeFn, err := openOutput(cmd, cfg.Output, log)
		if err != nil {
			return err
		}
		defer closeFn()
		outOpts.Writer = w
	}

	if err := sqldiff.FormatChanges(stmts, outOpts); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// openOutput returns the command's stdout, or the named file when path is set
func openOutput(cmd *cobra.Command, path string, log zerolog.Logger) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to close output file")
		}
	}, nil
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
