// Package config loads the spiderank configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mycok/spiderank/textindexer"
)

// AppName names the configuration and data directories.
const AppName = "spiderank"

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds every tunable of the crawler, the ranking engine and the
// front-end.
type Config struct {
	// StoreURI selects the store backend. See storeuri.Open.
	StoreURI string `yaml:"store_uri"`

	// Seeds are queued when no uncrawled page is left.
	Seeds []string `yaml:"seeds"`

	// Stemmer used for indexing and queries: porter or snowball.
	Stemmer string `yaml:"stemmer"`

	// LogLevel is any level understood by logrus.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	Crawler  Crawler  `yaml:"crawler"`
	Ranking  Ranking  `yaml:"ranking"`
	Frontend Frontend `yaml:"frontend"`
}

// Crawler configures crawl runs.
type Crawler struct {
	Workers              int           `yaml:"workers"`
	MaxPages             int           `yaml:"max_pages"`
	PolitenessInterval   time.Duration `yaml:"politeness_interval"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	RobotsTimeout        time.Duration `yaml:"robots_timeout"`
	LinkBatchSize        int           `yaml:"link_batch_size"`
	UserAgents           []string      `yaml:"user_agents"`
	AllowPrivateNetworks bool          `yaml:"allow_private_networks"`
	// Delay between passes when crawling continuously from serve.
	PassInterval time.Duration `yaml:"pass_interval"`
}

// Ranking configures the ranking engine.
type Ranking struct {
	DampingFactor  float64 `yaml:"damping_factor"`
	MaxIterations  int     `yaml:"max_iterations"`
	Tolerance      float64 `yaml:"tolerance"`
	Alpha          float64 `yaml:"alpha"`
	ScoreBatchSize int     `yaml:"score_batch_size"`
	RankBatchSize  int     `yaml:"rank_batch_size"`
}

// Frontend configures the HTTP API.
type Frontend struct {
	ListenAddr     string `yaml:"listen_addr"`
	ResultsPerPage int    `yaml:"results_per_page"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		StoreURI:  "sqlite3://" + filepath.Join(DataDir(), "search.db"),
		Stemmer:   textindexer.StemmerPorter,
		LogLevel:  logrus.InfoLevel.String(),
		LogFormat: LogFormatText,
		Crawler: Crawler{
			Workers:            20,
			MaxPages:           10000,
			PolitenessInterval: 2 * time.Second,
			FetchTimeout:       20 * time.Second,
			RobotsTimeout:      10 * time.Second,
			LinkBatchSize:      500,
			PassInterval:       24 * time.Hour,
		},
		Ranking: Ranking{
			DampingFactor:  0.85,
			MaxIterations:  20,
			Tolerance:      1e-6,
			Alpha:          0.7,
			ScoreBatchSize: 5000,
			RankBatchSize:  1000,
		},
		Frontend: Frontend{
			ListenAddr:     ":8080",
			ResultsPerPage: 20,
		},
	}
}

// DataDir returns the XDG data directory of spiderank.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultPath returns the location of the configuration file under the XDG
// config directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads the YAML file at path over the defaults. An empty path reads
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid setting.
func (cfg *Config) Validate() error {
	var err error

	if cfg.StoreURI == "" {
		err = multierror.Append(err, fmt.Errorf("store_uri must not be empty"))
	}

	if _, stemErr := textindexer.NewStemmer(cfg.Stemmer); stemErr != nil {
		err = multierror.Append(err, stemErr)
	}

	if _, lvlErr := logrus.ParseLevel(cfg.LogLevel); lvlErr != nil {
		err = multierror.Append(err, lvlErr)
	}

	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		err = multierror.Append(err, fmt.Errorf("unknown log_format %q", cfg.LogFormat))
	}

	if cfg.Crawler.Workers <= 0 {
		err = multierror.Append(err, fmt.Errorf("crawler.workers must be > 0"))
	}

	if cfg.Crawler.MaxPages <= 0 {
		err = multierror.Append(err, fmt.Errorf("crawler.max_pages must be > 0"))
	}

	if cfg.Crawler.PolitenessInterval <= 0 {
		err = multierror.Append(err, fmt.Errorf("crawler.politeness_interval must be > 0"))
	}

	if cfg.Ranking.DampingFactor <= 0 || cfg.Ranking.DampingFactor >= 1 {
		err = multierror.Append(err, fmt.Errorf("ranking.damping_factor must be in (0, 1)"))
	}

	if cfg.Ranking.Alpha < 0 || cfg.Ranking.Alpha > 1 {
		err = multierror.Append(err, fmt.Errorf("ranking.alpha must be in [0, 1]"))
	}

	if cfg.Frontend.ListenAddr == "" {
		err = multierror.Append(err, fmt.Errorf("frontend.listen_addr must not be empty"))
	}

	return err
}
