package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roastlab/brewfind/pkg/budget"
	cachepkg "github.com/roastlab/brewfind/pkg/cache/sqlite"
	"github.com/roastlab/brewfind/pkg/catalog"
	"github.com/roastlab/brewfind/pkg/config"
	"github.com/roastlab/brewfind/pkg/logging"
	"github.com/roastlab/brewfind/pkg/models"
	"github.com/roastlab/brewfind/pkg/resolver"
	"github.com/roastlab/brewfind/pkg/translator"
	"github.com/roastlab/brewfind/pkg/translog"
)

func newSearchCmd() *cobra.Command {
	var (
		configPath string
		imagePath  string
		jsonOut    bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog with a natural-language query or label photo",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel)

			q := models.Query{Text: strings.Join(args, " ")}
			if imagePath != "" {
				img, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				q.Image = img
			}
			if q.Text == "" && q.Image == nil {
				return fmt.Errorf("provide a query or --image")
			}

			var cacheStore resolver.Store
			if cfg.Cache.Enabled {
				store, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				cacheStore = store
			}

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

			r := resolver.New(cacheStore, tr, logger, opts)

			ctx := context.Background()
			res, err := r.Resolve(ctx, q)
			if err != nil {
				return err
			}

			cat, err := catalog.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = cat.Close() }()

			coffees, err := cat.Search(ctx, res.Params, limit)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Params  models.SearchParams `json:"params"`
					Cached  bool                `json:"cached"`
					Results []models.Coffee     `json:"results"`
				}{res.Params, res.Cached, coffees})
			}

			source := "translated"
			if res.Cached {
				source = "cached"
			}
			fmt.Printf("Search: %q (%s, confidence %.2f)\n\n", res.Params.SearchText, source, res.Params.Confidence)

			if len(coffees) == 0 {
				fmt.Println("No matching coffees found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROASTER\tORIGIN\tROAST\tNOTES\tPRICE")
			for _, c := range coffees {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t$%.2f\n",
					c.Name, c.Roaster, c.Origin, c.Roast, strings.Join(c.TastingNotes, ", "), c.PriceUSD)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "brewfind.yaml", "path to config file")
	cmd.Flags().StringVar(&imagePath, "image", "", "search by label photo instead of text")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum number of results")
	return cmd
}
