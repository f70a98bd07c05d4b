package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMapsCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "maps",
		Short: "List the descriptors the daemon found",
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

			res, err := client.Maps(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILE")
			for _, m := range res.Maps {
				fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.FileName)
			}
			for _, d := range res.Duplicates {
				fmt.Fprintf(tw, "%s\t%s (ignored, duplicate of %s)\n", d.ID, d.Ignored, d.Kept)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
