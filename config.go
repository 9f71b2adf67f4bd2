package assetpipe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/assetpipe/bitmap"
	"github.com/gogpu/assetpipe/pressure"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("assetpipe: invalid config")

// Config is the file form of the pipeline options.
// Zero values mean "use the default".
type Config struct {
	Workers        int    `yaml:"workers"`
	QueueSize      int    `yaml:"queue_size"`
	Compressor     string `yaml:"compressor"` // png or jpeg
	JPEGQuality    int    `yaml:"jpeg_quality"`
	Digest         string `yaml:"digest"` // sha256, sha384 or sha512
	CacheCapacity  int64  `yaml:"cache_capacity"`
	PoolBucketSize int    `yaml:"pool_bucket_size"`
	ApplicationID  string `yaml:"application_id"`

	// BudgetBytes is the default raw pixel budget per asset.
	BudgetBytes int `yaml:"budget_bytes"`

	// MemoryPollInterval enables host memory polling when positive.
	MemoryPollInterval time.Duration `yaml:"memory_poll_interval"`

	Queue QueueConfig `yaml:"queue"`
	Log   LogConfig   `yaml:"log"`
}

// QueueConfig locates the durable outbound queue.
type QueueConfig struct {
	// Dir is the badger directory. Empty keeps the queue in memory.
	Dir string `yaml:"dir"`
}

// LogConfig configures the command-line logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the configuration New uses without options.
func DefaultConfig() Config {
	return Config{
		Compressor:         "png",
		JPEGQuality:        DefaultJPEGQuality,
		Digest:             string(digest.SHA256),
		PoolBucketSize:     DefaultPoolBucketSize,
		BudgetBytes:        4 << 20,
		MemoryPollInterval: pressure.DefaultPollInterval,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("assetpipe: read config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are errors.
func ParseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("assetpipe: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch strings.ToLower(c.Compressor) {
	case "", "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("%w: unknown compressor %q", ErrInvalidConfig, c.Compressor)
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg_quality %d out of range", ErrInvalidConfig, c.JPEGQuality)
	}
	if c.Digest != "" && !digest.Algorithm(c.Digest).Available() {
		return fmt.Errorf("%w: digest %q unavailable", ErrInvalidConfig, c.Digest)
	}
	if c.BudgetBytes < 0 {
		return fmt.Errorf("%w: negative budget_bytes", ErrInvalidConfig)
	}
	return nil
}

// NewCompressor returns the configured compressor.
func (c Config) NewCompressor() Compressor {
	switch strings.ToLower(c.Compressor) {
	case "jpeg", "jpg":
		return JPEGCompressor{Quality: c.JPEGQuality}
	default:
		return &PNGCompressor{}
	}
}

// Options converts the configuration into pipeline options.
func (c Config) Options() []Option {
	opts := []Option{
		WithWorkers(c.Workers),
		WithQueueSize(c.QueueSize),
		WithCompressor(c.NewCompressor()),
		WithApplicationID(c.ApplicationID),
	}
	if c.Digest != "" {
		opts = append(opts, WithHasher(DigestHasher{Algorithm: digest.Algorithm(c.Digest)}))
	}
	if c.CacheCapacity > 0 {
		opts = append(opts, WithIdentifierCache(NewIdentifierCache(c.CacheCapacity)))
	}
	if c.PoolBucketSize != 0 {
		opts = append(opts, WithBufferPool(bitmap.NewPool(c.PoolBucketSize)))
	}
	return opts
}
