package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/cesargomez89/archivebackup/internal/constants"
)

// ConfigPathEnvVar points at an optional YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config holds all application configuration
type Config struct {
	Port               string        `koanf:"port"`
	DBPath             string        `koanf:"db_path"`
	StorageDir         string        `koanf:"storage_dir"`
	ArchiveBaseURL     string        `koanf:"archive_base_url"`
	UserAgent          string        `koanf:"user_agent"`
	DefaultCollection  string        `koanf:"default_collection"`
	SearchMatchMode    string        `koanf:"search_match_mode"`
	LogLevel           string        `koanf:"log_level"`
	LogFormat          string        `koanf:"log_format"`
	CreatorCollections []string      `koanf:"creator_collections"`
	AudioExtensions    []string      `koanf:"audio_extensions"`
	CORSOrigins        []string      `koanf:"cors_origins"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	SearchCacheTTL     time.Duration `koanf:"search_cache_ttl"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window"`
	RequestsPerSecond  float64       `koanf:"requests_per_second"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	RateLimitRequests  int           `koanf:"rate_limit_requests"`
	VerifyChecksums    bool          `koanf:"verify_checksums"`
	ReadTags           bool          `koanf:"read_tags"`
}

func defaultConfig() Config {
	return Config{
		Port:               constants.DefaultPort,
		DBPath:             constants.DefaultDBPath,
		StorageDir:         constants.DefaultStorageDir,
		ArchiveBaseURL:     constants.DefaultArchiveBaseURL,
		UserAgent:          constants.DefaultUserAgent,
		DefaultCollection:  constants.DefaultCollection,
		SearchMatchMode:    constants.SearchModeSubstring,
		LogLevel:           "info",
		LogFormat:          "text",
		CreatorCollections: append([]string(nil), constants.DefaultCreatorCollections...),
		AudioExtensions:    append([]string(nil), constants.DefaultAudioExtensions...),
		CORSOrigins:        []string{"*"},
		RequestTimeout:     constants.DefaultRequestTimeout,
		SearchCacheTTL:     constants.DefaultSearchCacheTTL,
		BreakerOpenTimeout: constants.DefaultBreakerTimeout,
		RateLimitWindow:    constants.DefaultRateLimitWindow,
		RequestsPerSecond:  constants.DefaultRequestsPerSecond,
		BreakerMaxFailures: constants.DefaultBreakerFailures,
		RateLimitRequests:  constants.DefaultRateLimitRequests,
		VerifyChecksums:    true,
		ReadTags:           true,
	}
}

// Load layers defaults, an optional YAML file and environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.ArchiveBaseURL != "" && !strings.HasSuffix(cfg.ArchiveBaseURL, "/") {
		cfg.ArchiveBaseURL += "/"
	}
	for i, ext := range cfg.AudioExtensions {
		cfg.AudioExtensions[i] = strings.ToLower(ext)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// knownKeys lists every koanf path an environment variable may set.
var knownKeys = map[string]bool{
	"port": true, "db_path": true, "storage_dir": true, "archive_base_url": true,
	"user_agent": true, "default_collection": true, "search_match_mode": true,
	"log_level": true, "log_format": true, "creator_collections": true,
	"audio_extensions": true, "cors_origins": true, "request_timeout": true,
	"search_cache_ttl": true, "breaker_open_timeout": true, "rate_limit_window": true,
	"requests_per_second": true, "breaker_max_failures": true, "rate_limit_requests": true,
	"verify_checksums": true, "read_tags": true,
}

// envTransformFunc maps PORT to port, DB_PATH to db_path and so on.
// Unknown variables are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if knownKeys[key] {
		return key
	}
	return ""
}

var sliceConfigPaths = []string{
	"creator_collections",
	"audio_extensions",
	"cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.StorageDir == "" {
		errors = append(errors, "STORAGE_DIR cannot be empty")
	}

	if c.ArchiveBaseURL == "" {
		errors = append(errors, "ARCHIVE_BASE_URL cannot be empty")
	} else if u, err := url.Parse(c.ArchiveBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("ARCHIVE_BASE_URL is not a valid URL: %s", c.ArchiveBaseURL))
	}

	if c.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("REQUEST_TIMEOUT must be positive, got: %s", c.RequestTimeout))
	}

	if c.RequestsPerSecond < 0 {
		errors = append(errors, fmt.Sprintf("REQUESTS_PER_SECOND cannot be negative, got: %v", c.RequestsPerSecond))
	}

	if len(c.AudioExtensions) == 0 {
		errors = append(errors, "AUDIO_EXTENSIONS cannot be empty")
	}
	for _, ext := range c.AudioExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errors = append(errors, fmt.Sprintf("AUDIO_EXTENSIONS entries must look like .mp3, got: %s", ext))
		}
	}

	if c.SearchMatchMode != constants.SearchModeSubstring && c.SearchMatchMode != constants.SearchModeStructured {
		errors = append(errors, fmt.Sprintf("SEARCH_MATCH_MODE must be one of: substring, structured, got: %s", c.SearchMatchMode))
	}

	if c.BreakerMaxFailures == 0 {
		errors = append(errors, "BREAKER_MAX_FAILURES must be at least 1")
	}

	if c.RateLimitRequests < 1 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_REQUESTS must be at least 1, got: %d", c.RateLimitRequests))
	}
	if c.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_WINDOW must be positive, got: %s", c.RateLimitWindow))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
