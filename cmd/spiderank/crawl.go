package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mycok/spiderank/ranking"
)

func newCrawlCmd(a *app) *cobra.Command {
	var (
		maxPages int
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl from the pending pages or the seeds and rank the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxPages > 0 {
				a.cfg.Crawler.MaxPages = maxPages
			}
			if workers > 0 {
				a.cfg.Crawler.Workers = workers
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			svc, err := a.indexerService(st)
			if err != nil {
				return err
			}

			stats, err := svc.Pass(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"crawled %d pages (%d non-html, %d blocked, %d errors)\n",
				stats.Crawled, stats.NonHTML, stats.Blocked, stats.Errors)

			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Crawl ceiling for this run [overrides the configuration file]")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of crawl workers [overrides the configuration file]")

	return cmd
}

func newRankCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rank",
		Short: "Recompute PageRank, TF-IDF scores and final ranks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			cfg := a.rankingConfig()
			cfg.Store = st
			cfg.Logger = a.logger.WithField("component", "ranking")

			engine, err := ranking.New(cfg)
			if err != nil {
				return err
			}

			return engine.Run(cmd.Context())
		},
	}
}
