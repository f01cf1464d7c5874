package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roastlab/brewfind/pkg/catalog"
	"github.com/roastlab/brewfind/pkg/config"
	"github.com/roastlab/brewfind/pkg/models"
)

func newCatalogCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the coffee catalog",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import coffees from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var coffees []models.Coffee
			if err := json.Unmarshal(data, &coffees); err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cat, err := catalog.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = cat.Close() }()

			ctx := context.Background()
			for _, coffee := range coffees {
				if _, err := cat.Add(ctx, coffee); err != nil {
					return err
				}
			}
			fmt.Printf("Imported %d coffees.\n", len(coffees))
			return nil
		},
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Show the number of catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cat, err := catalog.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = cat.Close() }()

			n, err := cat.Count(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("%d coffees in the catalog.\n", n)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "brewfind.yaml", "path to config file")
	cmd.AddCommand(importCmd, countCmd)
	return cmd
}
