package main

import (
	"fmt"
	"text/tabwriter"

	"bugtracker/internal/app"
	"bugtracker/internal/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users ordered by email",
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

			gate := app.NewSessionGate(clockwork.NewRealClock(), cfg.SessionTimeout, metrics.New(nil))
			users, err := app.NewAuthService(store, gate).ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Email, u.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}
