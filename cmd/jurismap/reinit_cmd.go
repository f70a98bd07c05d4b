package main

import (
	"github.com/spf13/cobra"
)

func newReinitCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reinit",
		Short: "Ask the daemon to rescan the maps directory and populate again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			client, err := dialDaemon(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			report, err := client.Reinit(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}
