package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect and maintain daily send usage",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Drop usage entries from previous days",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.limiter.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale entries\n", removed)
			return nil
		},
	})
	return cmd
}

func newAuthoritiesCmd() *cobra.Command {
	var country string
	cmd := &cobra.Command{
		Use:   "authorities",
		Short: "List the agencies offered for a country",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tNAME")
			for _, auth := range a.authorities.ForCountry(country) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", auth.ID, auth.Type, auth.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "ISO country code (blank for the default list)")
	return cmd
}

func newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Print the public feed as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			feed, err := a.bluntService.Feed(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(feed)
		},
	}
}
