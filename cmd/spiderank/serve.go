package main

import (
	"github.com/spf13/cobra"

	"github.com/mycok/spiderank/search"
	"github.com/mycok/spiderank/service"
	"github.com/mycok/spiderank/service/frontend"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listenAddr string
		crawl      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON search API, optionally crawling in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listenAddr != "" {
				a.cfg.Frontend.ListenAddr = listenAddr
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}

			front, err := frontend.New(frontend.Config{
				Searcher:            search.New(st, analyzer),
				Analyzer:            analyzer,
				ListenAddr:          a.cfg.Frontend.ListenAddr,
				NumOfResultsPerPage: a.cfg.Frontend.ResultsPerPage,
				Logger:              a.logger.WithField("service", "frontend"),
			})
			if err != nil {
				return err
			}

			group := service.Group{front}
			if crawl {
				svc, err := a.indexerService(st)
				if err != nil {
					return err
				}
				group = append(group, svc)
			}

			if err := group.Execute(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("shutdown complete")

			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on [overrides the configuration file]")
	cmd.Flags().BoolVar(&crawl, "crawl", false, "Run crawl and rank passes in the background")

	return cmd
}
