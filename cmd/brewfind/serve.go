package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roastlab/brewfind/pkg/budget"
	cachepkg "github.com/roastlab/brewfind/pkg/cache/sqlite"
	"github.com/roastlab/brewfind/pkg/catalog"
	"github.com/roastlab/brewfind/pkg/config"
	"github.com/roastlab/brewfind/pkg/logging"
	"github.com/roastlab/brewfind/pkg/resolver"
	"github.com/roastlab/brewfind/pkg/server"
	"github.com/roastlab/brewfind/pkg/translator"
	"github.com/roastlab/brewfind/pkg/translog"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search and cache-admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel)

			store, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, err := catalog.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = cat.Close() }()

			tr, err := translator.New(translator.Options{
				Provider: cfg.Translator.Provider,
				URL:      cfg.Translator.URL,
				APIKey:   cfg.Translator.APIKey,
				Model:    cfg.Translator.Model,
				Timeout:  cfg.Translator.Timeout,
			})
			if err != nil {
				return err
			}

			opts := resolver.Options{TTL: cfg.Cache.TTL}
			if cfg.TransLog.Enabled {
				tlog, err := translog.New(cfg.DBPath, cfg.TransLog.RetentionDays)
				if err != nil {
					return err
				}
				defer func() { _ = tlog.Close() }()
				opts.Log = tlog
				if cfg.Budget.Enabled {
					opts.Budget = budget.New(cfg.Budget.MaxCallsPerDay, tlog)
				}
			}

			// The admin endpoints keep the store either way; only the
			// resolver's read/write path honors cache.enabled.
			var cacheStore resolver.Store
			if cfg.Cache.Enabled {
				cacheStore = store
			}
			r := resolver.New(cacheStore, tr, logger, opts)
			srv := server.New(cfg, r, store, cat, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "brewfind.yaml", "path to config file")
	return cmd
}
