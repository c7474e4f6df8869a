package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"FinanceRadar/internal/cluster"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/filter"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "FINANCERADAR_CONFIG"
	envPrefix       = "FINANCERADAR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Filters    filter.Rules     `yaml:"filters"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Publish    PublishConfig    `yaml:"publish"`
	Ranker     RankerConfig     `yaml:"ranker"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// LoggingConfig selects the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when recurring runs happen. Disabled means a single
// run per process.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// FetchConfig bounds the source fan-out.
type FetchConfig struct {
	Workers        int           `yaml:"workers"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerSec float64       `yaml:"requestsPerSecond"`
	Burst          int           `yaml:"burst"`
	UserAgent      string        `yaml:"userAgent"`
}

// PipelineConfig tunes gating, routing and presentation.
type PipelineConfig struct {
	RetentionDays    int            `yaml:"retentionDays"`
	PerSourceCap     int            `yaml:"perSourceCap"`
	BypassCategories []string       `yaml:"bypassCategories"`
	PageSize         int            `yaml:"pageSize"`
	DisplayTimezone  string         `yaml:"displayTimezone"`
	location         *time.Location `yaml:"-"`
}

// Retention converts RetentionDays into a duration.
func (p PipelineConfig) Retention() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

// Location is the zone used for day buckets and display dates.
func (p PipelineConfig) Location() *time.Location {
	if p.location != nil {
		return p.location
	}
	return time.UTC
}

// ClusteringConfig mirrors cluster.Options without the location.
type ClusteringConfig struct {
	Prefixes            []string `yaml:"prefixes"`
	MinWordLength       int      `yaml:"minWordLength"`
	OverlapThreshold    float64  `yaml:"overlapThreshold"`
	SimilarityThreshold float64  `yaml:"similarityThreshold"`
}

// OutputConfig names the files written by each run.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	HTMLFile     string `yaml:"htmlFile"`
	SnapshotFile string `yaml:"snapshotFile"`
	RankingsFile string `yaml:"rankingsFile"`
	Title        string `yaml:"title"`
}

// StorageConfig describes the optional SQL snapshot table. An empty DSN
// disables it.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// PublishConfig describes the optional S3 upload. An empty bucket disables it.
type PublishConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"usePathStyle"`
	CacheControl string `yaml:"cacheControl"`
}

// RankerConfig defines how to contact the OpenAI-compatible ranking API.
type RankerConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	Window       time.Duration `yaml:"window"`
	MaxArticles  int           `yaml:"maxArticles"`
	TopN         int           `yaml:"topN"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"systemPrompt"`
}

// SourceConfig describes a single feed with its scanner strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	URL      string            `yaml:"url"`
	SiteURL  string            `yaml:"siteUrl"`
	Category string            `yaml:"category"`
	Timezone string            `yaml:"timezone"`
	Options  map[string]string `yaml:"options"`
	location *time.Location    `yaml:"-"`
}

// Location is the zone assumed for zone-less timestamps of this source, or
// nil when the source did not declare one.
func (s SourceConfig) Location() *time.Location {
	return s.location
}

// envOverrides are read from FINANCERADAR_* variables after the YAML file.
type envOverrides struct {
	LogLevel        string `envconfig:"LOG_LEVEL"`
	Schedule        string `envconfig:"SCHEDULE"`
	DisplayTimezone string `envconfig:"DISPLAY_TIMEZONE"`
	OutputDir       string `envconfig:"OUTPUT_DIR"`
	StorageDriver   string `envconfig:"STORAGE_DRIVER"`
	StorageDSN      string `envconfig:"STORAGE_DSN"`
	PublishBucket   string `envconfig:"PUBLISH_BUCKET"`
	RankerEndpoint  string `envconfig:"RANKER_ENDPOINT"`
	RankerModel     string `envconfig:"RANKER_MODEL"`
	RankerAPIKey    string `envconfig:"RANKER_API_KEY"`
}

// Load reads .env and the YAML configuration (if present) and applies
// environment overrides. Problems with optional inputs are logged and the
// defaults kept.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = fileCfg
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		log.Printf("config: %v", err)
	}
	cfg.bindTimezones()

	return cfg
}

// LoadFile decodes path over the defaults without consulting the
// environment.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.bindTimezones()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.Schedule != "" {
		c.Scheduler.CronExpression = env.Schedule
		c.Scheduler.Enabled = true
	}
	if env.DisplayTimezone != "" {
		c.Pipeline.DisplayTimezone = env.DisplayTimezone
	}
	if env.OutputDir != "" {
		c.Output.Dir = env.OutputDir
	}
	if env.StorageDriver != "" {
		c.Storage.Driver = env.StorageDriver
	}
	if env.StorageDSN != "" {
		c.Storage.DSN = env.StorageDSN
	}
	if env.PublishBucket != "" {
		c.Publish.Bucket = env.PublishBucket
	}
	if env.RankerEndpoint != "" {
		c.Ranker.Endpoint = env.RankerEndpoint
	}
	if env.RankerModel != "" {
		c.Ranker.Model = env.RankerModel
	}
	if env.RankerAPIKey != "" {
		c.Ranker.APIKey = env.RankerAPIKey
	}
	return nil
}

func (c *Config) bindTimezones() {
	c.Scheduler.location = loadLocation(c.Scheduler.Timezone)
	c.Pipeline.location = loadLocation(c.Pipeline.DisplayTimezone)

	for i := range c.Sources {
		c.Sources[i].location = nil
		if tz := c.Sources[i].Timezone; tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				log.Printf("config: source %s has unknown timezone %s, ignoring", c.Sources[i].Name, tz)
				continue
			}
			c.Sources[i].location = loc
		}
	}
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		return time.UTC
	}
	return loc
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			CronExpression: "0 */2 * * *",
			Timezone:       defaultTimezone,
			location:       time.UTC,
		},
		Fetch: FetchConfig{
			Workers:        10,
			Timeout:        15 * time.Second,
			RequestsPerSec: 20,
			Burst:          10,
			UserAgent:      "Mozilla/5.0 (compatible; FinanceRadar/1.0)",
		},
		Pipeline: PipelineConfig{
			RetentionDays:    7,
			PerSourceCap:     50,
			BypassCategories: []string{domain.CategoryVideos, domain.CategoryTwitter},
			PageSize:         20,
			DisplayTimezone:  defaultTimezone,
			location:         time.UTC,
		},
		Clustering: ClusteringConfig{
			Prefixes:            cluster.DefaultPrefixes,
			MinWordLength:       cluster.DefaultMinWordLength,
			OverlapThreshold:    cluster.DefaultOverlapThreshold,
			SimilarityThreshold: cluster.DefaultSimilarityThreshold,
		},
		Filters: filter.DefaultRules(),
		Output: OutputConfig{
			Dir:          "static",
			HTMLFile:     "index.html",
			SnapshotFile: "articles.json",
			RankingsFile: "ai_rankings.json",
			Title:        "FinanceRadar",
		},
		Storage: StorageConfig{Driver: "postgres", Table: "story_snapshot"},
		Publish: PublishConfig{CacheControl: "max-age=300"},
		Ranker: RankerConfig{
			Endpoint:    "https://openrouter.ai/api/v1/chat/completions",
			Model:       "nvidia/nemotron-nano-9b-v2:free",
			Window:      48 * time.Hour,
			MaxArticles: 150,
			TopN:        20,
			Timeout:     120 * time.Second,
		},
		Sources: []SourceConfig{
			{
				Name:     "Economic Times Markets",
				Scanner:  "rss",
				URL:      "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms",
				SiteURL:  "https://economictimes.indiatimes.com",
				Category: domain.CategoryNews,
				Timezone: "Asia/Kolkata",
			},
		},
	}
}
