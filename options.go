package genetics

import (
	"log/slog"
	"net/http"

	"github.com/RobokopU24/robokop-genetics/cache"
	"github.com/RobokopU24/robokop-genetics/config"
)

// Option configures the Genetics facade.
type Option func(*settings)

// settings holds configuration for a Genetics instance.
type settings struct {
	config     *config.Config
	configPath string
	logger     *slog.Logger
	httpClient *http.Client
	cache      *cache.Client
	useCache   bool
}

// WithConfig sets the configuration directly, bypassing file and
// environment loading.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithConfigFile sets the path of a genetics.yaml file to load.
// Environment overrides still apply on top of the file values.
func WithConfigFile(path string) Option {
	return func(s *settings) {
		s.configPath = path
	}
}

// WithLogger sets a custom logger. If not provided, a JSON logger
// writing to stderr is created.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHTTPClient sets the HTTP client shared by the registry and
// annotator clients.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithCache supplies an already-constructed cache client, taking
// precedence over the configured connection.
func WithCache(c *cache.Client) Option {
	return func(s *settings) {
		s.cache = c
		s.useCache = true
	}
}

// WithoutCache disables caching entirely, regardless of configuration.
// Every normalization and annotation call then queries the external
// services directly.
func WithoutCache() Option {
	return func(s *settings) {
		s.cache = nil
		s.useCache = false
	}
}
