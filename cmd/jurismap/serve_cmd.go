package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/alucardeht/jurismap/internal/daemon"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var metricsAddr string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: populate, watch the maps directory and serve the control socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if noWatch {
				cfg.Watcher.Enabled = false
			}

			d, err := daemon.New(cfg)
			if errors.Is(err, daemon.ErrLockHeld) {
				return withCode(exitLockHeld, err)
			}
			if err != nil {
				return withCode(exitStore, err)
			}
			return d.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the maps directory for changes")
	return cmd
}
