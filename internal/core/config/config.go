package config

import (
	"github.com/brazyl/brazyl/internal/delivery"
	"github.com/brazyl/brazyl/internal/infra/cache"
	"github.com/brazyl/brazyl/internal/infra/emitter"
	"github.com/brazyl/brazyl/internal/infra/gateway"
	redisclient "github.com/brazyl/brazyl/internal/infra/redis"
	"github.com/brazyl/brazyl/internal/infra/storage/postgres"
	"github.com/brazyl/brazyl/internal/infra/upstream"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig         `yaml:"server"`
	Upstreams UpstreamsConfig      `yaml:"upstreams"`
	Cache     CacheConfig          `yaml:"cache"`
	Gateway   gateway.Config       `yaml:"gateway"`
	Sweep     delivery.SweepConfig `yaml:"sweep"`
	Redis     redisclient.Config   `yaml:"redis"`
	Database  postgres.Config      `yaml:"database"`
	Kafka     emitter.KafkaConfig  `yaml:"kafka"`
	Logging   LoggingConfig        `yaml:"logging"`
}

// ServerConfig holds health server settings.
type ServerConfig struct {
	Port     int `yaml:"port"      validate:"gte=0,lte=65535"`
	GRPCPort int `yaml:"grpc_port" validate:"gte=0,lte=65535"` // 0 disables the gRPC health service
}

// UpstreamsConfig holds one client configuration per open data host.
type UpstreamsConfig struct {
	Camara              upstream.Config `yaml:"camara"`
	Senado              upstream.Config `yaml:"senado"`
	Transparencia       upstream.Config `yaml:"transparencia"`
	TransparenciaAPIKey string          `yaml:"transparencia_api_key"`
}

// CacheConfig selects the cache backend and per-call-type TTLs.
type CacheConfig struct {
	Backend string     `yaml:"backend" validate:"omitempty,oneof=redis memory none"`
	TTL     cache.TTLs `yaml:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"  validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}
