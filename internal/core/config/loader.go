package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/brazyl/brazyl/internal/infra/gateway"
	"github.com/brazyl/brazyl/internal/infra/upstream"
	"github.com/brazyl/brazyl/internal/ingest/camara"
	"github.com/brazyl/brazyl/internal/ingest/senado"
	"github.com/brazyl/brazyl/internal/ingest/transparencia"
)

var validate = validator.New()

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML with ${ENV} expansion, applies defaults and validates.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	c.Upstreams.Camara = upstreamDefaults(c.Upstreams.Camara, "camara", camara.DefaultBaseURL, 10, upstream.LegislativeBackoffBase)
	c.Upstreams.Senado = upstreamDefaults(c.Upstreams.Senado, "senado", senado.DefaultBaseURL, 10, upstream.LegislativeBackoffBase)
	c.Upstreams.Transparencia = upstreamDefaults(c.Upstreams.Transparencia, "transparencia", transparencia.DefaultBaseURL, 5, upstream.TransparencyBackoffBase)

	if c.Cache.Backend == "" {
		if c.Redis.URL != "" {
			c.Cache.Backend = "redis"
		} else {
			c.Cache.Backend = "memory"
		}
	}
	c.Cache.TTL = c.Cache.TTL.WithDefaults()

	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = gateway.DefaultTimeout
	}

	c.Sweep = c.Sweep.WithDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func upstreamDefaults(cfg upstream.Config, name, baseURL string, concurrency int, backoffBase float64) upstream.Config {
	cfg.Name = name
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = concurrency
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = backoffBase
	}
	return cfg.WithDefaults()
}
