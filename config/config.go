package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment override, e.g.
// SESSION_API_STORE_BACKEND or SESSION_API_ENCODER_API_TOKEN.
const EnvPrefix = "SESSION_API_"

const (
	BackendConsul = "consul"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type ConsulConfig struct {
	Address    string `yaml:"address" toml:"address" env:"ADDRESS"`
	Token      string `yaml:"token" toml:"token" env:"TOKEN"`
	Datacenter string `yaml:"datacenter" toml:"datacenter" env:"DATACENTER"`

	// ttl of the consul session backing provisioning locks
	SessionTTL string `yaml:"sessionTTL" toml:"session-ttl" env:"SESSION_TTL"`
}

type RedisConfig struct {
	Addrs       []string      `yaml:"addrs" toml:"addrs" env:"ADDRS"`
	Username    string        `yaml:"username" toml:"username" env:"USERNAME"`
	Password    string        `yaml:"password" toml:"password" env:"PASSWORD"`
	DB          int           `yaml:"db" toml:"db" env:"DB"`
	DialTimeout time.Duration `yaml:"dialTimeout" toml:"dial-timeout" env:"DIAL_TIMEOUT"`

	// expiry of a provisioning lock key in case its owner dies
	LockTTL time.Duration `yaml:"lockTTL" toml:"lock-ttl" env:"LOCK_TTL"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" toml:"backend" env:"BACKEND"`
	Prefix  string `yaml:"prefix" toml:"prefix" env:"PREFIX"`

	// how long to wait for the per-session provisioning lock
	LockWait time.Duration `yaml:"lockWait" toml:"lock-wait" env:"LOCK_WAIT"`

	// compare-and-swap attempts before an update gives up
	UpdateAttempts int `yaml:"updateAttempts" toml:"update-attempts" env:"UPDATE_ATTEMPTS"`

	Consul ConsulConfig `yaml:"consul" toml:"consul" envPrefix:"CONSUL_"`
	Redis  RedisConfig  `yaml:"redis" toml:"redis" envPrefix:"REDIS_"`
}

// UpstreamConfig describes how to reach one of the managed REST services.
type UpstreamConfig struct {
	BaseURL       string        `yaml:"baseURL" toml:"base-url" env:"BASE_URL"`
	Token         string        `yaml:"token" toml:"token" env:"TOKEN"`
	Timeout       time.Duration `yaml:"timeout" toml:"timeout" env:"TIMEOUT"`
	MaxAttempts   int           `yaml:"maxAttempts" toml:"max-attempts" env:"MAX_ATTEMPTS"`
	RetryInterval time.Duration `yaml:"retryInterval" toml:"retry-interval" env:"RETRY_INTERVAL"`
}

type EncoderConfig struct {
	API UpstreamConfig `yaml:"api" toml:"api" envPrefix:"API_"`
}

type IngestConfig struct {
	API UpstreamConfig `yaml:"api" toml:"api" envPrefix:"API_"`
}

// ProvisionConfig holds the fixed references every provisioned resource is
// created with.
type ProvisionConfig struct {
	NamePrefix         string `yaml:"namePrefix" toml:"name-prefix" env:"NAME_PREFIX"`
	RoleRef            string `yaml:"roleRef" toml:"role-ref" env:"ROLE_REF"`
	InputSecurityGroup string `yaml:"inputSecurityGroup" toml:"input-security-group" env:"INPUT_SECURITY_GROUP"`
	RecordingBucket    string `yaml:"recordingBucket" toml:"recording-bucket" env:"RECORDING_BUCKET"`
	IngestChannelType  string `yaml:"ingestChannelType" toml:"ingest-channel-type" env:"INGEST_CHANNEL_TYPE"`
	IngestLatencyMode  string `yaml:"ingestLatencyMode" toml:"ingest-latency-mode" env:"INGEST_LATENCY_MODE"`
}

type APIConfig struct {
	Address string `yaml:"address" toml:"address" env:"ADDRESS"`

	// origin patterns allowed for CORS, "*" wildcards allowed; empty allows any origin
	AllowedOrigins  []string      `yaml:"allowedOrigins" toml:"allowed-origins" env:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT"`
}

type MetricsConfig struct {
	Enable bool `yaml:"enable" toml:"enable" env:"ENABLE"`

	// separate listen address, metrics are served on the api router if empty
	Address string `yaml:"address" toml:"address" env:"ADDRESS"`
}

type Config struct {
	Store     StoreConfig     `yaml:"store" toml:"store" envPrefix:"STORE_"`
	Encoder   EncoderConfig   `yaml:"encoder" toml:"encoder" envPrefix:"ENCODER_"`
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest" envPrefix:"INGEST_"`
	Provision ProvisionConfig `yaml:"provision" toml:"provision" envPrefix:"PROVISION_"`
	API       APIConfig       `yaml:"api" toml:"api" envPrefix:"API_"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics" envPrefix:"METRICS_"`
}

func defaultUpstream() UpstreamConfig {
	return UpstreamConfig{
		Timeout:       10 * time.Second,
		MaxAttempts:   3,
		RetryInterval: 500 * time.Millisecond,
	}
}

// Default returns the configuration used for every value not set in the
// config file or environment.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:        BackendConsul,
			Prefix:         "live",
			LockWait:       5 * time.Second,
			UpdateAttempts: 5,
			Consul: ConsulConfig{
				SessionTTL: "15s",
			},
			Redis: RedisConfig{
				Addrs:       []string{"localhost:6379"},
				DialTimeout: 5 * time.Second,
				LockTTL:     30 * time.Second,
			},
		},
		Encoder: EncoderConfig{API: defaultUpstream()},
		Ingest:  IngestConfig{API: defaultUpstream()},
		Provision: ProvisionConfig{
			NamePrefix:        "shelcaster",
			IngestChannelType: "STANDARD",
			IngestLatencyMode: "LOW",
		},
		API: APIConfig{
			Address:         "localhost:8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enable: true,
		},
	}
}

// Parse loads the config and validates all of it.
func Parse(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads the config from a yaml or toml file at path and applies
// environment overrides without validating. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(data, &cfg)
		default:
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Encoder.API.validate("encoder"); err != nil {
		return err
	}
	if err := c.Ingest.API.validate("ingest"); err != nil {
		return err
	}
	if c.Provision.NamePrefix == "" {
		return fmt.Errorf("config: provision.namePrefix is required")
	}
	if c.Provision.RecordingBucket == "" {
		return fmt.Errorf("config: provision.recordingBucket is required")
	}
	return nil
}

// Validate checks the store section only.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case BackendConsul, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Backend)
	}
	if c.Backend == BackendRedis && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("config: store.redis.addrs is required")
	}
	if c.UpdateAttempts <= 0 {
		return fmt.Errorf("config: store.updateAttempts must be positive")
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("config: store.lockWait must be positive")
	}
	return nil
}

func (u *UpstreamConfig) validate(name string) error {
	if u.BaseURL == "" {
		return fmt.Errorf("config: %s.api.baseURL is required", name)
	}
	if u.MaxAttempts <= 0 {
		return fmt.Errorf("config: %s.api.maxAttempts must be positive", name)
	}
	if u.RetryInterval < 0 {
		return fmt.Errorf("config: %s.api.retryInterval cannot be negative", name)
	}
	return nil
}
