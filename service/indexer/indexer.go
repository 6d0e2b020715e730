// Package indexer provides the service that seeds the store, crawls the web
// and ranks what was crawled.
package indexer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/crawler"
	"github.com/mycok/spiderank/ranking"
)

// Service runs crawl and rank passes. It satisfies the service.Service
// interface.
type Service struct {
	config  Config
	crawler *crawler.Crawler
	ranker  *ranking.Engine
}

// New creates and returns a fully configured indexer service instance.
func New(config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("indexer service: config validation failed: %w", err)
	}

	cr, err := crawler.New(config.Crawler)
	if err != nil {
		return nil, fmt.Errorf("indexer service: %w", err)
	}

	ranker, err := ranking.New(config.Ranking)
	if err != nil {
		return nil, fmt.Errorf("indexer service: %w", err)
	}

	return &Service{config: config, crawler: cr, ranker: ranker}, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "indexer" }

// Run executes a pass immediately and then one every pass interval until the
// context gets cancelled or a pass fails.
func (svc *Service) Run(ctx context.Context) error {
	svc.config.Logger.WithField(
		"pass_interval", svc.config.PassInterval.String(),
	).Info("starting service")
	defer svc.config.Logger.Info("stopped service")

	for {
		if _, err := svc.Pass(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-svc.config.Clock.After(svc.config.PassInterval):
		}
	}
}

// Pass seeds the store if needed, crawls until the crawl is exhausted or the
// page ceiling is reached and then ranks the crawled pages.
func (svc *Service) Pass(ctx context.Context) (crawler.Stats, error) {
	startedAt := svc.config.Clock.Now()

	if err := svc.Seed(); err != nil {
		return crawler.Stats{}, err
	}

	stats, err := svc.crawler.Crawl(ctx)
	if err != nil {
		return stats, fmt.Errorf("crawl: %w", err)
	}

	if err := svc.Rank(ctx); err != nil {
		return stats, err
	}

	svc.config.Logger.WithFields(logrus.Fields{
		"crawled":      stats.Crawled,
		"non_html":     stats.NonHTML,
		"blocked":      stats.Blocked,
		"errors":       stats.Errors,
		"elapsed_time": svc.config.Clock.Now().Sub(startedAt).String(),
	}).Info("completed indexing pass")

	return stats, nil
}

// Seed queues the configured seed URLs unless uncrawled pages are left over
// from a previous run.
func (svc *Service) Seed() error {
	pending, err := svc.config.Store.HasUncrawled()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if pending {
		svc.config.Logger.Info("resuming from uncrawled pages")
		return nil
	}

	if err := svc.config.Store.InsertURLs(svc.config.Seeds); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	svc.config.Logger.WithField("seeds", len(svc.config.Seeds)).Info("seeded store")

	return nil
}

// Rank recomputes PageRank, TF-IDF and final ranks for the crawled pages.
func (svc *Service) Rank(ctx context.Context) error {
	if err := svc.ranker.Run(ctx); err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	return nil
}
