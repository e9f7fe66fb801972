// Package config provides configuration management for the reference import service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the reference import service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Library contains reference manager local API settings.
	Library LibraryConfig `mapstructure:"library"`
	// Sources contains external source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// Import contains batch pipeline settings.
	Import ImportConfig `mapstructure:"import"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LibraryConfig holds reference manager local API settings.
type LibraryConfig struct {
	// BaseURL is the local API base URL (default: http://localhost:23119).
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the request timeout for local API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// SnapshotLimit is the maximum items fetched for duplicate matching.
	SnapshotLimit int `mapstructure:"snapshot_limit"`
}

// SourcesConfig holds external source API configurations.
type SourcesConfig struct {
	PubMed   PubMedConfig   `mapstructure:"pubmed"`
	CrossRef CrossRefConfig `mapstructure:"crossref"`
	ICite    ICiteConfig    `mapstructure:"icite"`
}

// PubMedConfig holds NCBI E-utilities settings.
type PubMedConfig struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the NCBI API key for higher rate limits.
	// Loaded exclusively from REFKEEPER_SOURCES_PUBMED_API_KEY.
	APIKey string `mapstructure:"-"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Timeout is the request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CrossRefConfig holds CrossRef REST API settings.
type CrossRefConfig struct {
	// BaseURL is the CrossRef API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is the polite-pool contact email.
	Email string `mapstructure:"email"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Timeout is the request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ICiteConfig holds NIH iCite API settings.
type ICiteConfig struct {
	// Enabled toggles citation-metrics enrichment.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the iCite API base URL.
	BaseURL string `mapstructure:"base_url"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Timeout is the request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ImportConfig holds batch pipeline settings.
type ImportConfig struct {
	// TitleThreshold is the fuzzy title similarity cutoff (0-100).
	TitleThreshold int `mapstructure:"title_threshold"`
	// MaxCandidates caps the duplicate candidates returned per record.
	MaxCandidates int `mapstructure:"max_candidates"`
	// SkipDuplicates is the default for batches that do not specify it.
	SkipDuplicates bool `mapstructure:"skip_duplicates"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// HTTPAddress returns the host:port address for the HTTP server.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the host:port address for the metrics server.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("REFKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/reference-import-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Sources.PubMed.APIKey = os.Getenv("REFKEEPER_SOURCES_PUBMED_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Library defaults
	v.SetDefault("library.base_url", "http://localhost:23119")
	v.SetDefault("library.timeout", "60s")
	v.SetDefault("library.snapshot_limit", 100)

	// Source defaults
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.rate_limit", 3.0)
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.email", "")
	v.SetDefault("sources.crossref.rate_limit", 10.0)
	v.SetDefault("sources.crossref.timeout", "30s")
	v.SetDefault("sources.icite.enabled", true)
	v.SetDefault("sources.icite.base_url", "https://icite.od.nih.gov/api")
	v.SetDefault("sources.icite.rate_limit", 5.0)
	v.SetDefault("sources.icite.timeout", "30s")

	// Import defaults
	v.SetDefault("import.title_threshold", 85)
	v.SetDefault("import.max_candidates", 5)
	v.SetDefault("import.skip_duplicates", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	if c.Library.BaseURL == "" {
		return fmt.Errorf("library base URL is required")
	}
	if _, err := url.Parse(c.Library.BaseURL); err != nil {
		return fmt.Errorf("invalid library base URL: %w", err)
	}
	if c.Library.SnapshotLimit <= 0 {
		return fmt.Errorf("library snapshot_limit must be positive")
	}

	if c.Import.TitleThreshold < 0 || c.Import.TitleThreshold > 100 {
		return fmt.Errorf("import title_threshold must be between 0 and 100")
	}
	if c.Import.MaxCandidates <= 0 {
		return fmt.Errorf("import max_candidates must be positive")
	}

	if c.Sources.PubMed.RateLimit <= 0 {
		return fmt.Errorf("pubmed rate_limit must be positive")
	}
	if c.Sources.CrossRef.RateLimit <= 0 {
		return fmt.Errorf("crossref rate_limit must be positive")
	}
	if c.Sources.ICite.Enabled && c.Sources.ICite.RateLimit <= 0 {
		return fmt.Errorf("icite rate_limit must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
