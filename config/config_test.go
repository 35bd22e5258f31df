package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

const yamlConfig = `
store:
  backend: redis
  prefix: prod
  redis:
    addrs: [redis-1:6379, redis-2:6379]
encoder:
  api:
    baseURL: http://encoder:9100
    token: enc
    maxAttempts: 5
ingest:
  api:
    baseURL: http://ingest:9200
provision:
  recordingBucket: bucket
api:
  allowedOrigins: ["https://*.example.com"]
`

const tomlConfig = `
[store]
backend = "memory"
lock-wait = "2s"

[encoder.api]
base-url = "http://encoder:9100"
timeout = "3s"

[ingest.api]
base-url = "http://ingest:9200"

[provision]
name-prefix = "studio"
recording-bucket = "bucket"
`

func writeConfig(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse(writeConfig(t, "config.yml", yamlConfig))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Store.Backend, BackendRedis)
	assert.Equal(t, cfg.Store.Prefix, "prod")
	assert.DeepEqual(t, cfg.Store.Redis.Addrs, []string{"redis-1:6379", "redis-2:6379"})
	assert.Equal(t, cfg.Encoder.API.Token, "enc")
	assert.Equal(t, cfg.Encoder.API.MaxAttempts, 5)
	assert.DeepEqual(t, cfg.API.AllowedOrigins, []string{"https://*.example.com"})

	// defaults kept
	assert.Equal(t, cfg.Ingest.API.MaxAttempts, 3)
	assert.Equal(t, cfg.Ingest.API.Timeout, 10*time.Second)
	assert.Equal(t, cfg.Provision.NamePrefix, "shelcaster")
	assert.Equal(t, cfg.Store.UpdateAttempts, 5)
}

func TestParseTOML(t *testing.T) {
	cfg, err := Parse(writeConfig(t, "config.toml", tomlConfig))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Store.Backend, BackendMemory)
	assert.Equal(t, cfg.Store.LockWait, 2*time.Second)
	assert.Equal(t, cfg.Encoder.API.Timeout, 3*time.Second)
	assert.Equal(t, cfg.Provision.NamePrefix, "studio")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_API_STORE_BACKEND", "memory")
	t.Setenv("SESSION_API_ENCODER_API_TOKEN", "from-env")
	t.Setenv("SESSION_API_INGEST_API_RETRY_INTERVAL", "1s")
	t.Setenv("SESSION_API_API_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Parse(writeConfig(t, "config.yml", yamlConfig))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Store.Backend, BackendMemory)
	assert.Equal(t, cfg.Encoder.API.Token, "from-env")
	assert.Equal(t, cfg.Ingest.API.RetryInterval, time.Second)
	assert.DeepEqual(t, cfg.API.AllowedOrigins, []string{"https://a.example.com", "https://b.example.com"})
}

func TestEnvOnly(t *testing.T) {
	t.Setenv("SESSION_API_ENCODER_API_BASE_URL", "http://encoder")
	t.Setenv("SESSION_API_INGEST_API_BASE_URL", "http://ingest")
	t.Setenv("SESSION_API_PROVISION_RECORDING_BUCKET", "bucket")

	cfg, err := Parse("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Store.Backend, BackendConsul)
	assert.Equal(t, cfg.Encoder.API.BaseURL, "http://encoder")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Encoder.API.BaseURL = "http://encoder"
		cfg.Ingest.API.BaseURL = "http://ingest"
		cfg.Provision.RecordingBucket = "bucket"
		return cfg
	}
	tests := []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"valid", func(*Config) {}, ""},
		{"backend", func(c *Config) { c.Store.Backend = "etcd" }, `unknown store backend "etcd"`},
		{"redis addrs", func(c *Config) { c.Store.Backend = BackendRedis; c.Store.Redis.Addrs = nil }, "store.redis.addrs"},
		{"attempts", func(c *Config) { c.Store.UpdateAttempts = 0 }, "store.updateAttempts"},
		{"encoder url", func(c *Config) { c.Encoder.API.BaseURL = "" }, "encoder.api.baseURL"},
		{"ingest retries", func(c *Config) { c.Ingest.API.MaxAttempts = 0 }, "ingest.api.maxAttempts"},
		{"bucket", func(c *Config) { c.Provision.RecordingBucket = "" }, "provision.recordingBucket"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.err == "" {
				assert.NilError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Assert(t, os.IsNotExist(err))
}

func TestLoadStoreOnly(t *testing.T) {
	path := writeConfig(t, "seed.yml", "store:\n  backend: redis\n  redis:\n    addrs: [redis:6379]\n")

	_, err := Parse(path)
	assert.ErrorContains(t, err, "encoder.api.baseURL")

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.NilError(t, cfg.Store.Validate())
	assert.DeepEqual(t, cfg.Store.Redis.Addrs, []string{"redis:6379"})

	cfg.Store.LockWait = 0
	assert.ErrorContains(t, cfg.Store.Validate(), "store.lockWait")
}
