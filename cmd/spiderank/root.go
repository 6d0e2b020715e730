package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mycok/spiderank/config"
	"github.com/mycok/spiderank/crawler"
	"github.com/mycok/spiderank/ranking"
	"github.com/mycok/spiderank/service/indexer"
	"github.com/mycok/spiderank/store"
	"github.com/mycok/spiderank/store/storeuri"
	"github.com/mycok/spiderank/textindexer"
)

// app carries the state shared by all sub-commands.
type app struct {
	rootLogger *logrus.Logger
	logger     *logrus.Entry

	configPath string
	storeURI   string
	logLevel   string

	cfg *config.Config
}

func newRootCmd(rootLogger *logrus.Logger, logger *logrus.Entry) *cobra.Command {
	a := &app{rootLogger: rootLogger, logger: logger}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "A small web search engine",
		Long:          "spiderank crawls the web politely, ranks pages with PageRank and TF-IDF and serves keyword and image queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to the configuration file [defaults to "+config.DefaultPath()+"]")
	cmd.PersistentFlags().StringVar(&a.storeURI, "store", "",
		"Store URI [supported URI's: in-memory://, sqlite3:///path, sqlite:///path, postgresql://user@host/db]")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level [overrides the configuration file]")

	cmd.AddCommand(
		newCrawlCmd(a),
		newRankCmd(a),
		newSearchCmd(a),
		newImagesCmd(a),
		newLuckyCmd(a),
		newServeCmd(a),
	)

	return cmd
}

// load reads the configuration and applies command line overrides.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.storeURI != "" {
		cfg.StoreURI = a.storeURI
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.rootLogger.SetLevel(level)

	if cfg.LogFormat == config.LogFormatJSON {
		a.rootLogger.SetFormatter(new(logrus.JSONFormatter))
	}

	a.cfg = cfg

	return nil
}

func (a *app) openStore() (store.Store, error) {
	st, err := storeuri.Open(a.cfg.StoreURI)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return st, nil
}

func (a *app) closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		a.logger.WithField("err", err).Warn("closing store failed")
	}
}

func (a *app) analyzer() (*textindexer.Analyzer, error) {
	stemmer, err := textindexer.NewStemmer(a.cfg.Stemmer)
	if err != nil {
		return nil, err
	}

	return textindexer.NewAnalyzer(stemmer)
}

func (a *app) rankingConfig() ranking.Config {
	return ranking.Config{
		DampingFactor:  a.cfg.Ranking.DampingFactor,
		MaxIterations:  a.cfg.Ranking.MaxIterations,
		Tolerance:      a.cfg.Ranking.Tolerance,
		Alpha:          a.cfg.Ranking.Alpha,
		ScoreBatchSize: a.cfg.Ranking.ScoreBatchSize,
		RankBatchSize:  a.cfg.Ranking.RankBatchSize,
	}
}

func (a *app) indexerService(st store.Store) (*indexer.Service, error) {
	analyzer, err := a.analyzer()
	if err != nil {
		return nil, err
	}

	return indexer.New(indexer.Config{
		Store: st,
		Seeds: a.cfg.Seeds,
		Crawler: crawler.Config{
			Indexer:            textindexer.NewIndexer(analyzer),
			NumOfWorkers:       a.cfg.Crawler.Workers,
			MaxPages:           a.cfg.Crawler.MaxPages,
			PolitenessInterval: a.cfg.Crawler.PolitenessInterval,
			FetchTimeout:       a.cfg.Crawler.FetchTimeout,
			RobotsTimeout:      a.cfg.Crawler.RobotsTimeout,
			LinkBatchSize:      a.cfg.Crawler.LinkBatchSize,
			UserAgents:         a.cfg.Crawler.UserAgents,
		},
		AllowPrivateNetworks: a.cfg.Crawler.AllowPrivateNetworks,
		Ranking:              a.rankingConfig(),
		PassInterval:         a.cfg.Crawler.PassInterval,
		Logger:               a.logger.WithField("service", "indexer"),
	})
}
