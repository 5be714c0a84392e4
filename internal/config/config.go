package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Cache    CacheConfig    `yaml:"cache" envconfig:"CACHE"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
}

// StorageConfig contains object store configuration
type StorageConfig struct {
	// Root directory the filesystem store maps "/"-delimited keys onto.
	Root string `yaml:"root" envconfig:"ROOT"`
	// SectorMapFile is the reference file mapping stock codes to
	// sectors, either .csv or .xlsx.
	SectorMapFile  string        `yaml:"sector_map_file" envconfig:"SECTOR_MAP_FILE"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	RetryAttempts  int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" envconfig:"RETRY_BASE_DELAY"`
}

// CacheConfig contains raw file cache configuration
type CacheConfig struct {
	CapacityBytes int64         `yaml:"capacity_bytes" envconfig:"CAPACITY_BYTES"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL"`
}

// PipelineConfig contains batch aggregation tunables
type PipelineConfig struct {
	// BatchSize is the outer chunk size: dates (or fetches) collected
	// per strictly sequential batch.
	BatchSize int `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	// Concurrency caps simultaneously in-flight store operations
	// within one batch.
	Concurrency int `yaml:"concurrency" envconfig:"CONCURRENCY"`
	// MemoryThresholdBytes triggers a GC hint between batches once
	// heap allocation exceeds it.
	MemoryThresholdBytes uint64 `yaml:"memory_threshold_bytes" envconfig:"MEMORY_THRESHOLD_BYTES"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DefaultConfig returns the built-in defaults every load starts from.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      2 * time.Hour,
		},
		Storage: StorageConfig{
			Root:           "data",
			SectorMapFile:  "data/sector_map.csv",
			RateLimitRPS:   200,
			RateLimitBurst: 50,
			RetryAttempts:  3,
			RetryBaseDelay: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			CapacityBytes: 128 << 20,
			TTL:           30 * time.Minute,
		},
		Pipeline: PipelineConfig{
			BatchSize:            5,
			Concurrency:          10,
			MemoryThresholdBytes: 512 << 20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/app.log",
		},
	}
}

// Load loads configuration from environment variables and an optional
// YAML config file; environment values take precedence.
func Load() (*Config, error) {
	return LoadFromFile(getConfigFilePath())
}

// LoadFromFile layers configuration sources: built-in defaults, then
// the YAML file (skipped when missing), then environment variables.
func LoadFromFile(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process("BROKERFLOW", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration invariants after the merge
func (c *Config) validate() error {
	if c.Cache.CapacityBytes <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.Cache.CapacityBytes)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline batch size must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline concurrency must be positive, got %d", c.Pipeline.Concurrency)
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage root must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

// getConfigFilePath returns the config file location, overridable via
// BROKERFLOW_CONFIG.
func getConfigFilePath() string {
	if path := os.Getenv("BROKERFLOW_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}
