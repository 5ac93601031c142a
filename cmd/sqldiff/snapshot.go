package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tordrt/sqldiff"
	"github.com/tordrt/sqldiff/internal/config"
	"github.com/tordrt/sqldiff/internal/store"
)

func newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record schema dumps and diff against the last recorded one",
	}

	saveCmd := &cobra.Command{
		Use:   "save NAME FILE",
		Short: "Record FILE as the latest snapshot of NAME",
		Args:  cobra.ExactArgs(2),
		RunE:  runSnapshotSave,
	}

	listCmd := &cobra.Command{
		Use:   "list NAME",
		Short: "List the snapshots of NAME, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotList,
	}

	diffCmd := &cobra.Command{
		Use:   "diff NAME FILE",
		Short: "Print the DDL migrating the latest snapshot of NAME to FILE",
		Args:  cobra.ExactArgs(2),
		RunE:  runSnapshotDiff,
	}
	diffCmd.Flags().Bool("save", false, "Record FILE as the new latest snapshot after diffing")
	diffCmd.Flags().String("from", "", "Diff against the snapshot with this ID instead of the latest")

	snapshotCmd.AddCommand(saveCmd, listCmd, diffCmd)
	return snapshotCmd
}

// withStore opens the configured snapshot store for the duration of fn
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store, cfg config.Config, log zerolog.Logger) error) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := store.Open(ctx, cfg.StoreURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to close snapshot store")
		}
	}()

	return fn(ctx, s, cfg, log)
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	dump, err := readDump(path)
	if err != nil {
		return err
	}

	// A dump that does not parse would break every later diff against it
	if _, err := sqldiff.ParseSchema(bytes.NewReader(dump), nil); err != nil {
		return fmt.Errorf("refusing to save %s: %w", path, err)
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store, _ config.Config, _ zerolog.Logger) error {
		snap, err := s.Save(ctx, name, dump)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", snap.ID, snap.Checksum)
		return nil
	})
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, s *store.Store, _ config.Config, _ zerolog.Logger) error {
		snaps, err := s.List(ctx, args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tCREATED\tCHECKSUM")
		for _, snap := range snaps {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", snap.ID, snap.CreatedAt.Format(time.RFC3339), snap.Checksum[:12])
		}
		return w.Flush()
	})
}

func runSnapshotDiff(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return err
	}

	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}

	dump, err := readDump(path)
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store, cfg config.Config, log zerolog.Logger) error {
		base, err := baseSnapshot(ctx, s, name, from)
		if err != nil {
			return err
		}

		log.Debug().Str("name", name).Str("id", base.ID).Msg("diffing against snapshot")

		stmts, err := sqldiff.Diff(ctx, bytes.NewReader(base.Dump), bytes.NewReader(dump), diffOptions(cfg))
		if err != nil {
			return err
		}

		if err := writeChanges(cmd, cfg, log, stmts); err != nil {
			return err
		}

		if save {
			if _, err := s.Save(ctx, name, dump); err != nil {
				return err
			}
		}
		return nil
	})
}

// baseSnapshot returns the snapshot with id from, or the latest of name when
// from is empty
func baseSnapshot(ctx context.Context, s *store.Store, name, from string) (store.Snapshot, error) {
	if from == "" {
		return s.Latest(ctx, name)
	}

	snap, err := s.Get(ctx, from)
	if err != nil {
		return store.Snapshot{}, err
	}
	if snap.Name != name {
		return store.Snapshot{}, fmt.Errorf("snapshot %s belongs to %s, not %s", from, snap.Name, name)
	}
	return snap, nil
}

func readDump(path string) ([]byte, error) {
	dump, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	return dump, nil
}
