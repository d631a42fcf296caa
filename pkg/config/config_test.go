package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
environment: development
server:
  port: 8080
backend:
  type: both
kafka:
  brokers: ["localhost:9092"]
  ticks_topic: tape.ticks
  outcomes_topic: tape.outcomes
  signals_topic: tape.signals
engine:
  symbols: ["WINZ25", "WDOZ25"]
  prior_decay: 0.99
cache:
  enabled: true
  backend: memory
  ttl: 5s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "development" {
		t.Fatalf("environment = %q", c.Environment)
	}
	if c.Backend.Type != "both" {
		t.Fatalf("backend = %q", c.Backend.Type)
	}
	if len(c.Engine.Symbols) != 2 {
		t.Fatalf("symbols = %v", c.Engine.Symbols)
	}
	if c.Engine.PriorDecay != 0.99 {
		t.Fatalf("prior decay = %v", c.Engine.PriorDecay)
	}
	if !c.Cache.Enabled || c.Cache.Backend != "memory" {
		t.Fatalf("cache = %+v", c.Cache)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "PETR4,VALE3")
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Engine.Symbols) != 2 || c.Engine.Symbols[0] != "PETR4" {
		t.Fatalf("symbols = %v", c.Engine.Symbols)
	}
	if c.Backend.Type != "kafka" {
		t.Fatalf("backend = %q", c.Backend.Type)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Cache.Redis.Addr != "redis:6379" {
		t.Fatalf("redis addr = %q", c.Cache.Redis.Addr)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c, err := Load(writeConfig(t, minimalYAML))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return c
	}

	c := base()
	c.Environment = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing environment")
	}

	c = base()
	c.Backend.Type = "postgres"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	c = base()
	c.Engine.Symbols = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty symbols")
	}

	c = base()
	c.Engine.PriorDecay = 1.0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for prior decay >= 1")
	}

	c = base()
	c.Cache.Backend = "memcached"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}
