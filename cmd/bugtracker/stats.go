package main

import (
	"encoding/json"

	"bugtracker/internal/app"
	"bugtracker/internal/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var recompute bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print issue statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			store, closeStore, err := opts.openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			svc := app.NewStatisticsService(store, app.NewStatsCache(metrics.New(nil)), clockwork.NewRealClock())
			if recompute {
				if err := svc.Invalidate(cmd.Context()); err != nil {
					return err
				}
			}
			st, err := svc.Get(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "discard the cached maximum first")
	return cmd
}
