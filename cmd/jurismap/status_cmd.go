package main

import (
	"github.com/spf13/cobra"

	"github.com/alucardeht/jurismap/internal/daemon"
	"github.com/alucardeht/jurismap/internal/rpc"
	"github.com/alucardeht/jurismap/internal/store"
)

type localStatus struct {
	Daemon   bool            `json:"daemon"`
	PID      int             `json:"pid,omitempty"`
	Stats    *store.Stats    `json:"stats"`
	Versions []store.Version `json:"versions"`
}

type daemonStatus struct {
	Daemon bool `json:"daemon"`
	*rpc.StatusResult
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report daemon state and store contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			lc := daemon.NewLifecycle(cfg.LockPath(), cfg.PIDPath(), cfg.SocketPath)
			if lc.IsSocketResponsive() {
				client, err := dialDaemon(ctx, cfg)
				if err != nil {
					return err
				}
				defer client.Close()

				res, err := client.Status(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), daemonStatus{Daemon: true, StatusResult: res})
			}

			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return withCode(exitStore, err)
			}
			defer st.Close()

			q := st.Queries()
			stats, err := q.Stats(ctx)
			if err != nil {
				return withCode(exitStore, err)
			}
			versions, err := q.Versions(ctx)
			if err != nil {
				return withCode(exitStore, err)
			}

			pid, _ := lc.PIDFile().Read()
			if !lc.PIDFile().IsProcessAlive() {
				pid = 0
			}
			return writeJSON(cmd.OutOrStdout(), localStatus{PID: pid, Stats: stats, Versions: versions})
		},
	}
}
