package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"SwanPulse/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host              string        `yaml:"host" default:"0.0.0.0"`
		Port              int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout       time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout      time.Duration `yaml:"write_timeout" default:"0s"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" default:"10s"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval" default:"15s" validate:"gt=0"`
		CORSOrigins       []string      `yaml:"cors_origins" default:"[\"*\"]"`
		RateLimit         struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"0"`
		MaxAgeDays int    `yaml:"max_age_days" default:"7"`
		MaxBackups int    `yaml:"max_backups" default:"3"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Platform struct {
		BaseURL        string        `yaml:"base_url" validate:"required,url"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
		RPS            float64       `yaml:"rps" default:"10"`
		Burst          int           `yaml:"burst" default:"20"`
		Breaker        struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5"`
			OpenTimeout         time.Duration `yaml:"open_timeout" default:"30s"`
		} `yaml:"breaker"`
	} `yaml:"platform"`
	Stream struct {
		BufferSize     int           `yaml:"buffer_size" default:"5" validate:"gt=0"`
		BackoffInitial time.Duration `yaml:"backoff_initial" default:"1s" validate:"gt=0"`
		BackoffMax     time.Duration `yaml:"backoff_max" default:"30s" validate:"gtefield=BackoffInitial"`
	} `yaml:"stream"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		TTL     time.Duration `yaml:"ttl" default:"5m"`
		MaxSize int           `yaml:"max_size" default:"1000"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"swanpulse"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sinks struct {
		BufferSize int `yaml:"buffer_size" default:"256" validate:"gt=0"`
		Kafka      struct {
			Enabled      bool          `yaml:"enabled"`
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"swanpulse.home"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"snappy"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Enabled     bool          `yaml:"enabled"`
			Host        string        `yaml:"host" default:"localhost"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"swanpulse"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			UseHTTP     bool          `yaml:"use_http"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"clickhouse"`
	} `yaml:"sinks"`
}

var validate = validator.New()

// Default returns a Config holding only struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file over the defaults.
// A missing file is not an error: every setting can come from the environment.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, then .env, then environment variables,
// and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NEXT_PUBLIC_PLATFORM_API_URL"); v != "" {
		c.Platform.BaseURL = v
	}
	if v := os.Getenv("PLATFORM_API_URL"); v != "" {
		c.Platform.BaseURL = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Sinks.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Sinks.Kafka.Topic = v
	}
	c.Platform.BaseURL = strings.TrimRight(c.Platform.BaseURL, "/")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Sinks.Kafka.Enabled && len(c.Sinks.Kafka.Brokers) == 0 {
		return fmt.Errorf("sinks.kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Sinks.Kafka.Enabled && c.Sinks.Kafka.Topic == "" {
		return fmt.Errorf("sinks.kafka.topic is required when kafka is enabled")
	}
	return nil
}
