package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for bagger.
type Config struct {
	APIURL     string           `toml:"api_url"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	HTTP       HTTPConfig       `toml:"http"`
	Cache      CacheConfig      `toml:"cache"`
	Storage    StorageConfig    `toml:"storage"`
	Encryption EncryptionConfig `toml:"encryption"`
	Export     ExportConfig     `toml:"export"`
}

// HTTPConfig tunes the API client. Durations use time.ParseDuration syntax.
type HTTPConfig struct {
	Timeout       string `toml:"timeout"`        // per-request deadline, default 10s
	RetryAttempts int    `toml:"retry_attempts"` // reads only, default 3
	RetryStep     string `toml:"retry_step"`     // delay grows linearly by this, default 1s
}

// CacheConfig controls the per-user library snapshot.
type CacheConfig struct {
	TTL string `toml:"ttl"` // default 5m
}

// StorageConfig represents configuration for client storage.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "redis"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr   string `toml:"redis_addr,omitempty"`
	RedisDB     int    `toml:"redis_db,omitempty"`
	RedisPrefix string `toml:"redis_prefix,omitempty"`
}

// EncryptionConfig controls sealing of stored values.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "none" (default), "age" or "test"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// ExportConfig represents configuration for the export destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ExportConfig struct {
	Type string `toml:"type"` // "filesystem", "memory" or "s3"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
}

// Defaults applied when a field is left empty.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryStep     = time.Second
	DefaultCacheTTL      = 5 * time.Minute
)

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(apiURL, baseDir string) *Config {
	return &Config{
		APIURL:  apiURL,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		HTTP: HTTPConfig{
			Timeout:       DefaultTimeout.String(),
			RetryAttempts: DefaultRetryAttempts,
			RetryStep:     DefaultRetryStep.String(),
		},
		Cache: CacheConfig{TTL: DefaultCacheTTL.String()},
		Storage: StorageConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Encryption: EncryptionConfig{
			Type:         "none",
			IdentityPath: filepath.Join(baseDir, "keys", "bagger.key"),
		},
		Export: ExportConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "exports"),
		},
	}
}

// TimeoutDuration returns the parsed request timeout, or the default.
func (c HTTPConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("http.timeout", c.Timeout, DefaultTimeout)
}

// RetryStepDuration returns the parsed retry step, or the default.
func (c HTTPConfig) RetryStepDuration() (time.Duration, error) {
	return parseDuration("http.retry_step", c.RetryStep, DefaultRetryStep)
}

// Attempts returns the configured retry attempts, or the default.
func (c HTTPConfig) Attempts() int {
	if c.RetryAttempts <= 0 {
		return DefaultRetryAttempts
	}
	return c.RetryAttempts
}

// TTLDuration returns the parsed cache TTL, or the default.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	return parseDuration("cache.ttl", c.TTL, DefaultCacheTTL)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Keys lists every config key in dotted form with its current value, in
// file order.
func (c *Config) Keys() [][2]string {
	return [][2]string{
		{"api_url", c.APIURL},
		{"base_dir", c.BaseDir},
		{"log_dir", c.LogDir},
		{"http.timeout", c.HTTP.Timeout},
		{"http.retry_attempts", fmt.Sprint(c.HTTP.RetryAttempts)},
		{"http.retry_step", c.HTTP.RetryStep},
		{"cache.ttl", c.Cache.TTL},
		{"storage.type", c.Storage.Type},
		{"storage.data_dir", c.Storage.DataDir},
		{"storage.redis_addr", c.Storage.RedisAddr},
		{"storage.redis_db", fmt.Sprint(c.Storage.RedisDB)},
		{"storage.redis_prefix", c.Storage.RedisPrefix},
		{"encryption.type", c.Encryption.Type},
		{"encryption.identity_path", c.Encryption.IdentityPath},
		{"export.type", c.Export.Type},
		{"export.dir", c.Export.Dir},
		{"export.s3_bucket", c.Export.S3Bucket},
		{"export.s3_prefix", c.Export.S3Prefix},
		{"export.s3_region", c.Export.S3Region},
		{"export.s3_endpoint", c.Export.S3Endpoint},
	}
}
