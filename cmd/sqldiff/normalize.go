package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/sqldiff/internal/normalize"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [FILE]",
		Short: "Rewrite a schema dump into a stable form for text diffing",
		Long: `normalize drops comment lines, masks key and constraint names and AUTO_INCREMENT
counters, and sorts runs of key lines, so two dumps can be compared with diff(1).
Reads standard input when FILE is omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNormalize,
	}
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open dump: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	out, closeFn, err := openOutput(cmd, cfg.Output, log)
	if err != nil {
		return err
	}
	defer closeFn()

	return normalize.Normalize(in, out)
}
