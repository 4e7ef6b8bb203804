package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"bugtracker/internal/adapter/memory"
	"bugtracker/internal/adapter/postgres"
	"bugtracker/internal/config"
	"bugtracker/internal/domain"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	inMemory   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "bugtracker",
		Short:         "Issue tracker with cached concurrency statistics",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.inMemory, "memory", false, "use a non-persistent in-memory store")

	cmd.AddCommand(newServeCmd(opts), newStatsCmd(opts), newUsersCmd(opts))
	return cmd
}

func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, cfg.Log.NewLogger(os.Stderr), nil
}

// openStore returns the configured store and a function releasing it.
func (o *rootOptions) openStore(cfg config.Config) (domain.Transactor, func() error, error) {
	if o.inMemory {
		return memory.New(), func() error { return nil }, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required (or pass --memory)")
	}
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	return db, db.Close, nil
}
