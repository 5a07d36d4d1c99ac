package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dircrawl/internal/crawler"
	"dircrawl/internal/logging"
	"dircrawl/internal/workers"
)

// ConfigFileEnv names the environment variable pointing at an optional TOML
// config file.
const ConfigFileEnv = "DIRCRAWL_CONFIG"

// autoCrawlerLimit caps CRAWLER_COUNT=auto.
const autoCrawlerLimit = 16

// Config holds all daemon configuration
type Config struct {
	CrawlRoot       string
	CrawlerCount    int
	BufferSize      int
	BatchSize       int
	RestartDelay    time.Duration
	SkipHidden      bool
	Consumers       int
	Port            string
	MetricsEnabled  bool
	ShutdownTimeout time.Duration

	// ConfigFile is the TOML file that was loaded, if any.
	ConfigFile string
}

// CrawlerOptions returns the coordinator options described by c.
func (c *Config) CrawlerOptions() crawler.Options {
	return crawler.Options{
		CrawlerCount: c.CrawlerCount,
		BufferSize:   c.BufferSize,
		BatchSize:    c.BatchSize,
		RestartDelay: c.RestartDelay,
		SkipHidden:   c.SkipHidden,
	}
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		CrawlRoot:       ".",
		CrawlerCount:    crawler.DefaultCrawlerCount,
		BufferSize:      crawler.DefaultBufferSize,
		BatchSize:       crawler.DefaultBatchSize,
		RestartDelay:    time.Second,
		Consumers:       1,
		Port:            "8080",
		MetricsEnabled:  true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// fileConfig mirrors Config in the TOML file. Pointers distinguish unset
// keys from zero values.
type fileConfig struct {
	CrawlRoot       *string `toml:"crawl_root"`
	CrawlerCount    any     `toml:"crawler_count"`
	BufferSize      *int    `toml:"buffer_size"`
	BatchSize       *int    `toml:"batch_size"`
	RestartDelay    *string `toml:"restart_delay"`
	SkipHidden      *bool   `toml:"skip_hidden"`
	Consumers       *int    `toml:"consumers"`
	Port            *string `toml:"port"`
	MetricsEnabled  *bool   `toml:"metrics_enabled"`
	ShutdownTimeout *string `toml:"shutdown_timeout"`
}

// LoadConfig prints the startup banner, loads configuration and logs it.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	logConfig(cfg)
	return cfg, nil
}

// Load builds the configuration from defaults, the optional TOML file named
// by DIRCRAWL_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.CrawlRoot != nil {
		cfg.CrawlRoot = *fc.CrawlRoot
	}
	if fc.CrawlerCount != nil {
		n, ok := crawlerCountFromFile(fc.CrawlerCount)
		if !ok {
			return fmt.Errorf("parse config %s: invalid crawler_count %v", path, fc.CrawlerCount)
		}
		cfg.CrawlerCount = n
	}
	if fc.BufferSize != nil {
		cfg.BufferSize = *fc.BufferSize
	}
	if fc.BatchSize != nil {
		cfg.BatchSize = *fc.BatchSize
	}
	if fc.RestartDelay != nil {
		d, err := time.ParseDuration(*fc.RestartDelay)
		if err != nil {
			return fmt.Errorf("parse config %s: restart_delay: %w", path, err)
		}
		cfg.RestartDelay = d
	}
	if fc.SkipHidden != nil {
		cfg.SkipHidden = *fc.SkipHidden
	}
	if fc.Consumers != nil {
		cfg.Consumers = *fc.Consumers
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *fc.MetricsEnabled
	}
	if fc.ShutdownTimeout != nil {
		d, err := time.ParseDuration(*fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("parse config %s: shutdown_timeout: %w", path, err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

// crawlerCountFromFile accepts an integer or the string "auto".
func crawlerCountFromFile(v any) (int, bool) {
	switch value := v.(type) {
	case int64:
		if value <= 0 {
			return 0, false
		}
		return int(value), true
	case string:
		return parseCrawlerCount(value)
	default:
		return 0, false
	}
}

func parseCrawlerCount(value string) (int, bool) {
	if strings.EqualFold(strings.TrimSpace(value), "auto") {
		return workers.ForIO(autoCrawlerLimit), true
	}
	return workers.Parse(value, 0)
}

// applyEnv overrides cfg with any environment variables that are set.
// Invalid values are logged and ignored.
func applyEnv(cfg *Config) {
	cfg.CrawlRoot = getEnv("CRAWL_ROOT", cfg.CrawlRoot)

	if value := os.Getenv("CRAWLER_COUNT"); value != "" {
		if n, ok := parseCrawlerCount(value); ok {
			cfg.CrawlerCount = n
		} else {
			logging.Warn("Invalid CRAWLER_COUNT %q, using %d", value, cfg.CrawlerCount)
		}
	}

	cfg.BufferSize = getEnvInt("BUFFER_SIZE", cfg.BufferSize)
	cfg.BatchSize = getEnvInt("BATCH_SIZE", cfg.BatchSize)
	cfg.RestartDelay = getEnvDuration("CRAWL_RESTART_DELAY", cfg.RestartDelay)
	cfg.SkipHidden = getEnvBool("SKIP_HIDDEN", cfg.SkipHidden)
	cfg.Consumers = getEnvInt("CONSUMERS", cfg.Consumers)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

func (c *Config) validate() error {
	var errs []error

	if c.CrawlerCount <= 0 {
		errs = append(errs, fmt.Errorf("crawler count must be positive, got %d", c.CrawlerCount))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer size must be positive, got %d", c.BufferSize))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.RestartDelay < 0 {
		errs = append(errs, fmt.Errorf("restart delay must not be negative, got %v", c.RestartDelay))
	}
	if c.Consumers < 0 {
		errs = append(errs, fmt.Errorf("consumer count must not be negative, got %d", c.Consumers))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %v", c.ShutdownTimeout))
	}

	root, err := filepath.Abs(c.CrawlRoot)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to resolve crawl root path: %w", err))
	} else {
		c.CrawlRoot = root
		if err := checkDirectory(root); err != nil {
			errs = append(errs, fmt.Errorf("crawl root %s: %w", root, err))
		}
	}

	return errors.Join(errs...)
}

func checkDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func logConfig(cfg *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if cfg.ConfigFile != "" {
		logging.Info("  Config file:         %s", cfg.ConfigFile)
	}
	logging.Info("  CRAWL_ROOT:          %s", cfg.CrawlRoot)
	logging.Info("  CRAWLER_COUNT:       %d", cfg.CrawlerCount)
	logging.Info("  BUFFER_SIZE:         %d", cfg.BufferSize)
	logging.Info("  BATCH_SIZE:          %d", cfg.BatchSize)
	logging.Info("  CRAWL_RESTART_DELAY: %v", cfg.RestartDelay)
	logging.Info("  SKIP_HIDDEN:         %v", cfg.SkipHidden)
	logging.Info("  CONSUMERS:           %d", cfg.Consumers)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  SHUTDOWN_TIMEOUT:    %v", cfg.ShutdownTimeout)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
