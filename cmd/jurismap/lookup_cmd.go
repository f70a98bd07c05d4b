package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLookupCmd(opts *globalOptions) *cobra.Command {
	var lang string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup <jurisdiction-id>",
		Short: "Show a stored jurisdiction and its courts",
		Args:  cobra.ExactArgs(1),
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

			res, err := client.Lookup(cmd.Context(), args[0], lang)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			j := res.Jurisdiction
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\t(index %d, %d segments)\n", j.FullID, j.FullName, j.Index, j.SegmentCount)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, c := range res.Courts {
				fmt.Fprintf(tw, "  %s\t%s\t%d\n", c.CourtID, c.CourtName, c.Index)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Language tag; empty selects the default rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
