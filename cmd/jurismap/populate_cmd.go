package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/jurismap/internal/config"
	"github.com/alucardeht/jurismap/internal/daemon"
	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/logger"
	"github.com/alucardeht/jurismap/internal/progress"
	"github.com/alucardeht/jurismap/internal/store"
)

func newPopulateCmd(opts *globalOptions) *cobra.Command {
	var atomic bool

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Import every top-level jurisdiction whose manifest version is newer than the stored one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("atomic") {
				cfg.Import.Atomic = atomic
			}
			return runPopulate(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&atomic, "atomic", true, "Purge and import each jurisdiction in a single transaction")
	return cmd
}

func runPopulate(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	if err := cfg.EnsureDirectories(); err != nil {
		return withCode(exitStore, err)
	}

	lock := daemon.NewLockFile(cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, daemon.ErrLockHeld) {
			return withCode(exitLockHeld, err)
		}
		return withCode(exitStore, err)
	}
	defer lock.Release()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return withCode(exitStore, err)
	}
	defer st.Close()

	report, err := populate(ctx, cfg, st)
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Failed > 0 || len(report.Missing) > 0 {
		return withCode(exitPartial, fmt.Errorf("%d failed, %d missing", report.Failed, len(report.Missing)))
	}
	return nil
}

func populate(ctx context.Context, cfg *config.Config, st *store.Store) (*importer.PopulateReport, error) {
	sink := progress.LogSink{Logger: logger.ForComponent("populate")}
	svc := importer.NewService(cfg.Service(), st, nil, sink)
	return svc.Init(ctx)
}
