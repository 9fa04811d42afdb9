package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tweetmap",
		Short: "Geocode a news timeline into a spreadsheet of points",
		Long: `tweetmap reads a news account's timeline, pulls the place phrase out of
each post, geocodes it, and writes one row per post to an .xlsx workbook.

Settings come from the environment (see internal/config); flags override
the most common ones.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newExtractCmd())
	return root
}
