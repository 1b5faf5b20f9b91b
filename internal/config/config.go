package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/validity"
)

const (
	defaultTimezone   = validity.DefaultTimezone
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"
	ConfigPathEnv     = "FLYWISE_CONFIG"
	databaseURLEnv    = "DATABASE_URL"
	logLevelEnv       = "FLYWISE_LOG_LEVEL"
	httpAddrEnv       = "FLYWISE_HTTP_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

var (
	ErrMissingDSN   = errors.New("config: DATABASE_URL is not set")
	ErrNoSites      = errors.New("config: no sites configured")
	ErrSiteNoFeed   = errors.New("config: site has no feed url")
	ErrBadRetention = errors.New("config: retention backup days must be positive")
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Validity      ValidityConfig     `yaml:"validity"`
	Retention     RetentionConfig    `yaml:"retention"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SchedulerConfig defines how often ingest and retention run.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return validity.DefaultLocation()
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig configures the read API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// FetchConfig tunes the page fetcher.
type FetchConfig struct {
	UserAgent    string        `yaml:"userAgent"`
	Timeout      time.Duration `yaml:"timeout"`
	RateInterval time.Duration `yaml:"rateInterval"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
	IgnoreRobots bool          `yaml:"ignoreRobots"`
	Concurrency  int           `yaml:"concurrency"`
}

// ValidityConfig overrides the expiration inference vocabulary and window.
type ValidityConfig struct {
	PriorityPhrases    []string `yaml:"priorityPhrases"`
	Keywords           []string `yaml:"keywords"`
	FallbackParagraphs int      `yaml:"fallbackParagraphs"`
	LookBehindDays     int      `yaml:"lookBehindDays"`
	LookAheadDays      int      `yaml:"lookAheadDays"`
}

// RetentionConfig controls archiving of expired promotions.
type RetentionConfig struct {
	BackupDays  int `yaml:"backupDays"`
	DryRunLimit int `yaml:"dryRunLimit"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SiteConfig describes a promotion site and its extraction strategy.
type SiteConfig struct {
	Name      string   `yaml:"name"`
	FeedURL   string   `yaml:"feedUrl"`
	Extractor string   `yaml:"extractor"`
	Selectors []string `yaml:"selectors"`
}

// Load reads .env, the YAML file at path (or $FLYWISE_CONFIG) and applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings needed by commands that touch the database.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDSN
	}
	if len(c.Sites) == 0 {
		return ErrNoSites
	}
	for _, site := range c.Sites {
		if site.FeedURL == "" {
			return fmt.Errorf("%w: %s", ErrSiteNoFeed, site.Name)
		}
	}
	if c.Retention.BackupDays <= 0 {
		return ErrBadRetention
	}
	return nil
}

// ValidityOptions converts the validity section into engine options.
func (c Config) ValidityOptions() validity.Options {
	return validity.Options{
		Vocabulary: validity.Vocabulary{
			PriorityPhrases:    c.Validity.PriorityPhrases,
			Keywords:           c.Validity.Keywords,
			FallbackParagraphs: c.Validity.FallbackParagraphs,
		},
		Location:       c.Scheduler.Location(),
		LookBehindDays: c.Validity.LookBehindDays,
		LookAheadDays:  c.Validity.LookAheadDays,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.URL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %s: %w", tz, err)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Database.URL != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.ReadTimeout > 0 {
		base.HTTP.ReadTimeout = override.HTTP.ReadTimeout
	}
	if override.HTTP.WriteTimeout > 0 {
		base.HTTP.WriteTimeout = override.HTTP.WriteTimeout
	}
	if override.HTTP.ShutdownTimeout > 0 {
		base.HTTP.ShutdownTimeout = override.HTTP.ShutdownTimeout
	}

	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.RateInterval > 0 {
		base.Fetch.RateInterval = override.Fetch.RateInterval
	}
	if override.Fetch.CacheTTL > 0 {
		base.Fetch.CacheTTL = override.Fetch.CacheTTL
	}
	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.IgnoreRobots {
		base.Fetch.IgnoreRobots = true
	}

	if len(override.Validity.PriorityPhrases) > 0 {
		base.Validity.PriorityPhrases = override.Validity.PriorityPhrases
	}
	if len(override.Validity.Keywords) > 0 {
		base.Validity.Keywords = override.Validity.Keywords
	}
	if override.Validity.FallbackParagraphs > 0 {
		base.Validity.FallbackParagraphs = override.Validity.FallbackParagraphs
	}
	if override.Validity.LookBehindDays > 0 {
		base.Validity.LookBehindDays = override.Validity.LookBehindDays
	}
	if override.Validity.LookAheadDays > 0 {
		base.Validity.LookAheadDays = override.Validity.LookAheadDays
	}

	if override.Retention.BackupDays > 0 {
		base.Retention.BackupDays = override.Retention.BackupDays
	}
	if override.Retention.DryRunLimit > 0 {
		base.Retention.DryRunLimit = override.Retention.DryRunLimit
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	vocab := validity.DefaultVocabulary()
	return Config{
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Fetch: FetchConfig{
			UserAgent:    defaultUserAgent,
			Timeout:      20 * time.Second,
			RateInterval: 1500 * time.Millisecond,
			CacheTTL:     30 * time.Minute,
			Concurrency:  2,
		},
		Validity: ValidityConfig{
			PriorityPhrases:    vocab.PriorityPhrases,
			Keywords:           vocab.Keywords,
			FallbackParagraphs: vocab.FallbackParagraphs,
			LookBehindDays:     3,
			LookAheadDays:      730,
		},
		Retention: RetentionConfig{BackupDays: 30, DryRunLimit: 500},
		Sites: []SiteConfig{
			{
				Name:      "passageirodeprimeira",
				FeedURL:   "https://passageirodeprimeira.com/feed/",
				Extractor: "selectors",
			},
		},
	}
}
