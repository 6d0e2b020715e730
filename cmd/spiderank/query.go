package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mycok/spiderank/search"
	"github.com/mycok/spiderank/store"
)

type pageFlags struct {
	page    int
	perPage int
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "Result page to show")
	cmd.Flags().IntVar(&f.perPage, "per-page", search.DefaultPerPage, "Number of results per page")
}

// withSearcher opens the store and hands a searcher to fn.
func (a *app) withSearcher(fn func(*search.Searcher) error) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer a.closeStore(st)

	analyzer, err := a.analyzer()
	if err != nil {
		return err
	}

	return fn(search.New(st, analyzer))
}

func newSearchCmd(a *app) *cobra.Command {
	var pf pageFlags

	cmd := &cobra.Command{
		Use:   "search <terms>...",
		Short: "Search crawled pages by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSearcher(func(s *search.Searcher) error {
				results, pageCount, err := s.Search(strings.Join(args, " "), pf.page, pf.perPage)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, res := range results {
					fmt.Fprintf(out, "%s\n  %s\n  %s\n", res.Title, res.URL, res.Description)
				}
				fmt.Fprintf(out, "page %d of %d\n", pf.page, pageCount)

				return nil
			})
		},
	}
	pf.register(cmd)

	return cmd
}

func newImagesCmd(a *app) *cobra.Command {
	var pf pageFlags

	cmd := &cobra.Command{
		Use:   "images <text>...",
		Short: "Search images by the text surrounding them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSearcher(func(s *search.Searcher) error {
				results, err := s.SearchImages(strings.Join(args, " "), pf.page, pf.perPage)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, res := range results {
					fmt.Fprintf(out, "%s\t%s\n", res.URL, res.Alt)
				}

				return nil
			})
		},
	}
	pf.register(cmd)

	return cmd
}

func newLuckyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lucky",
		Short: "Print the URL of a random crawled page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSearcher(func(s *search.Searcher) error {
				u, err := s.RandomPage()
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("no pages have been crawled yet")
					}
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), u)

				return nil
			})
		},
	}
}
