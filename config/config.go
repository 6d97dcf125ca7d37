// Package config provides loading and parsing of genetics.yaml configuration files.
// Configuration covers the synonym cache connection, the external service
// endpoints, and the registry client's retry and rate-limit settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by ApplyEnv. They mirror the
// deployment convention of the original pipeline: when the cache host
// is unset, no cache is used.
const (
	EnvCacheHost     = "ROBO_GENETICS_CACHE_HOST"
	EnvCachePort     = "ROBO_GENETICS_CACHE_PORT"
	EnvCacheDB       = "ROBO_GENETICS_CACHE_DB"
	EnvCachePassword = "ROBO_GENETICS_CACHE_PASSWORD"
)

// Config represents a genetics.yaml configuration file.
type Config struct {
	Cache    *CacheConfig    `yaml:"cache,omitempty"`
	Registry *RegistryConfig `yaml:"registry,omitempty"`
	Services *ServicesConfig `yaml:"services,omitempty"`
}

// CacheConfig describes the redis connection backing the synonym and
// service-result cache. A config with no host yields an empty URL and
// an inert cache.
type CacheConfig struct {
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	Password  string `yaml:"password,omitempty"`
	KeyPrefix string `yaml:"key_prefix,omitempty"`

	// Format: Go duration string (e.g., "5s")
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

// RegistryConfig tunes the allele registry client.
type RegistryConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`

	// Format: Go duration string (e.g., "2m")
	Timeout string `yaml:"timeout,omitempty"`

	// Attempts per request before the transport error is surfaced.
	// Default: 3
	MaxRetries int `yaml:"max_retries,omitempty"`

	// Outbound request budget. Default: 10
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// ServicesConfig holds the downstream annotator endpoints.
type ServicesConfig struct {
	MyVariantBaseURL string `yaml:"myvariant_base_url,omitempty"`
	EnsemblBaseURL   string `yaml:"ensembl_base_url,omitempty"`
	HGNCBaseURL      string `yaml:"hgnc_base_url,omitempty"`
}

// URL renders the cache connection as a redis URL, or "" when no host
// is configured.
func (c *CacheConfig) URL() string {
	if c == nil || c.Host == "" {
		return ""
	}
	port := c.Port
	if port <= 0 {
		port = 6379
	}
	if c.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", c.Password, c.Host, port, c.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", c.Host, port, c.DB)
}

// GetKeyPrefix returns the configured cache key prefix, empty by default.
func (c *CacheConfig) GetKeyPrefix() string {
	if c == nil {
		return ""
	}
	return c.KeyPrefix
}

// GetConnectTimeout returns the configured connect timeout or the default value.
func (c *CacheConfig) GetConnectTimeout() time.Duration {
	if c == nil || c.ConnectTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetBaseURL returns the registry endpoint or the default value.
func (r *RegistryConfig) GetBaseURL() string {
	if r == nil || r.BaseURL == "" {
		return "https://reg.genome.network"
	}
	return r.BaseURL
}

// GetTimeout returns the registry request timeout or the default value.
func (r *RegistryConfig) GetTimeout() time.Duration {
	if r == nil || r.Timeout == "" {
		return 2 * time.Minute
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// GetMaxRetries returns the configured retry budget or the default value.
func (r *RegistryConfig) GetMaxRetries() int {
	if r == nil || r.MaxRetries <= 0 {
		return 3
	}
	return r.MaxRetries
}

// GetRequestsPerSecond returns the configured rate limit or the default value.
func (r *RegistryConfig) GetRequestsPerSecond() float64 {
	if r == nil || r.RequestsPerSecond <= 0 {
		return 10
	}
	return r.RequestsPerSecond
}

// GetMyVariantBaseURL returns the MyVariant endpoint, empty meaning the
// client default.
func (s *ServicesConfig) GetMyVariantBaseURL() string {
	if s == nil {
		return ""
	}
	return s.MyVariantBaseURL
}

// GetEnsemblBaseURL returns the Ensembl endpoint, empty meaning the
// client default.
func (s *ServicesConfig) GetEnsemblBaseURL() string {
	if s == nil {
		return ""
	}
	return s.EnsemblBaseURL
}

// GetHGNCBaseURL returns the HGNC endpoint, empty meaning the client
// default.
func (s *ServicesConfig) GetHGNCBaseURL() string {
	if s == nil {
		return ""
	}
	return s.HGNCBaseURL
}

// Load reads and parses a genetics.yaml file from the given path.
// If the path is a directory, it looks for genetics.yaml or genetics.yml
// in that directory. Environment overrides are applied on top.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "genetics.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "genetics.yml")
			if _, err := os.Stat(ymlPath); err != nil {
				return nil, fmt.Errorf("no genetics.yaml or genetics.yml found in %s", path)
			}
			configPath = ymlPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// FromEnv builds a configuration from environment variables alone,
// loading a .env file first when one exists in the working directory.
func FromEnv() *Config {
	_ = godotenv.Load()
	config := &Config{}
	config.ApplyEnv()
	return config
}

// ApplyEnv overlays the ROBO_GENETICS_CACHE_* environment variables on
// the configuration. Unset variables leave the file values in place.
func (c *Config) ApplyEnv() {
	host, ok := os.LookupEnv(EnvCacheHost)
	if !ok {
		return
	}

	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	c.Cache.Host = host
	if port, err := strconv.Atoi(os.Getenv(EnvCachePort)); err == nil {
		c.Cache.Port = port
	}
	if db, err := strconv.Atoi(os.Getenv(EnvCacheDB)); err == nil {
		c.Cache.DB = db
	}
	if password, ok := os.LookupEnv(EnvCachePassword); ok {
		c.Cache.Password = password
	}
}
