package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roastlab/brewfind/pkg/config"
	"github.com/roastlab/brewfind/pkg/translog"
)

func newLogCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent translator invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			tlog, err := translog.New(cfg.DBPath, cfg.TransLog.RetentionDays)
			if err != nil {
				return err
			}
			defer func() { _ = tlog.Close() }()

			recs, err := tlog.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No translator invocations recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tPROVIDER\tLATENCY\tSTATUS\tFINGERPRINT")
			for _, r := range recs {
				status := "ok"
				if !r.OK {
					status = r.Error
				}
				fp := r.Fingerprint
				if len(fp) > 12 {
					fp = fp[:12]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Provider, r.LatencyMs, status, fp)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "brewfind.yaml", "path to config file")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records to show")
	return cmd
}
