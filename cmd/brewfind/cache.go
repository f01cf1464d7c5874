package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cachepkg "github.com/roastlab/brewfind/pkg/cache/sqlite"
	"github.com/roastlab/brewfind/pkg/config"
	"github.com/roastlab/brewfind/pkg/models"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the query-translation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(context.Background(), cfg.Cache.TopQueries)
			if err != nil {
				return err
			}

			fmt.Printf("Entries:   %d\n", stats.TotalCached)
			for _, kind := range []models.QueryKind{models.KindText, models.KindImage} {
				if n, ok := stats.ByKind[kind]; ok {
					fmt.Printf("  %-8s %d\n", kind+":", n)
				}
			}
			fmt.Printf("Hits:      %d\n", stats.TotalHits)
			fmt.Printf("Hit rate:  %.1f%%\n", stats.HitRate*100)
			fmt.Printf("Expired:   %d\n", stats.ExpiredCount)

			if len(stats.TopQueries) > 0 {
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "QUERY\tHITS\tLAST ACCESSED")
				for _, q := range stats.TopQueries {
					fmt.Fprintf(w, "%s\t%d\t%s\n",
						q.Text, q.HitCount, q.LastAccessedAt.Local().Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			}
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := store.DeleteExpired(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired entries.\n", removed)
			return nil
		},
	}

	var (
		kindFlag string
		force    bool
	)
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cache entries (all, or one kind)",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.QueryKind(kindFlag)
			if kind != "" && !kind.Valid() {
				return fmt.Errorf("--kind must be %s or %s", models.KindText, models.KindImage)
			}
			if !force {
				return fmt.Errorf("refusing to clear the cache without --force")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := store.DeleteAll(context.Background(), kind)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries.\n", removed)
			return nil
		},
	}
	clearCmd.Flags().StringVar(&kindFlag, "kind", "", "only clear entries of this kind (text|image)")
	clearCmd.Flags().BoolVar(&force, "force", false, "confirm the clear")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "brewfind.yaml", "path to config file")
	cmd.AddCommand(statsCmd, cleanupCmd, clearCmd)
	return cmd
}
