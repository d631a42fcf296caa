package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"` // where scored signals go: kafka, clickhouse or both
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		TicksTopic    string   `yaml:"ticks_topic"`
		OutcomesTopic string   `yaml:"outcomes_topic"`
		SignalsTopic  string   `yaml:"signals_topic"`
		LogsTopic     string   `yaml:"logs_topic"` // aggregated error logs; empty disables collection
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Engine struct {
		Symbols        []string           `yaml:"symbols"`
		TapeWindow     int                `yaml:"tape_window"`
		PriceHistory   int                `yaml:"price_history"`
		BookHistory    int                `yaml:"book_history"`
		LatencyBudget  time.Duration      `yaml:"latency_budget"`
		PriorDecay     float64            `yaml:"prior_decay"` // 0 disables Bayesian counter decay
		InitialWeights map[string]float64 `yaml:"initial_weights"`
	} `yaml:"engine"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Backend string        `yaml:"backend"` // memory, redis or layered
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load parses a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// envOverrides are applied on top of the file by LoadWithEnv, for the
// handful of settings that differ between deployments of the same image.
var envOverrides = map[string]func(*Config, string){
	"SYMBOLS":              func(c *Config, v string) { c.Engine.Symbols = strings.Split(v, ",") },
	"BACKEND":              func(c *Config, v string) { c.Backend.Type = v },
	"KAFKA_BROKERS":        func(c *Config, v string) { c.Kafka.Brokers = strings.Split(v, ",") },
	"KAFKA_TICKS_TOPIC":    func(c *Config, v string) { c.Kafka.TicksTopic = v },
	"KAFKA_OUTCOMES_TOPIC": func(c *Config, v string) { c.Kafka.OutcomesTopic = v },
	"REDIS_ADDR":           func(c *Config, v string) { c.Cache.Redis.Addr = v },
}

// LoadWithEnv loads the YAML file then overrides from the environment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	for name, apply := range envOverrides {
		if v := os.Getenv(name); v != "" {
			apply(c, v)
		}
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Backend.BatchSize == 0 {
		c.Backend.BatchSize = 500
	}
	if c.Backend.BatchTimeout == 0 {
		c.Backend.BatchTimeout = time.Second
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "gzip"
	}
}

// Validate rejects configurations that would make the service start in
// a broken state.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "kafka", "clickhouse", "both":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse' or 'both', got '%s'", c.Backend.Type)
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols cannot be empty")
	}
	if c.Engine.PriorDecay < 0 || c.Engine.PriorDecay >= 1 {
		return fmt.Errorf("engine.prior_decay must be in [0, 1), got %v", c.Engine.PriorDecay)
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory", "redis", "layered":
		default:
			return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
		}
	}
	return nil
}
