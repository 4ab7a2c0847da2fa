package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agentforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGENTFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "AGENTFORGE_CORS_ORIGIN")
	setString(&cfg.Server.APIKey, "AGENTFORGE_API_KEY")

	setString(&cfg.Storage.Driver, "AGENTFORGE_STORAGE_DRIVER")
	setString(&cfg.Storage.Dir, "AGENTFORGE_STORAGE_DIR")
	setDuration(&cfg.Storage.FlushQuiet, "AGENTFORGE_STORAGE_FLUSH_QUIET")
	setString(&cfg.Storage.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Storage.Postgres.MaxConns, "AGENTFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Storage.Postgres.MinConns, "AGENTFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Storage.Postgres.MaxConnLifetime, "AGENTFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Storage.Postgres.MaxConnIdleTime, "AGENTFORGE_PG_MAX_CONN_IDLE_TIME")

	setString(&cfg.Bus.Driver, "AGENTFORGE_BUS_DRIVER")
	setString(&cfg.Bus.URL, "NATS_URL")

	setString(&cfg.Logging.Level, "AGENTFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AGENTFORGE_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "AGENTFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AGENTFORGE_BREAKER_TIMEOUT")

	setDuration(&cfg.Scheduler.TickInterval, "AGENTFORGE_SCHEDULER_TICK")

	setString(&cfg.Executor.BackendURL, "AGENTFORGE_BACKEND_URL")
	setString(&cfg.Executor.APIKey, "AGENTFORGE_BACKEND_API_KEY")
	setInt(&cfg.Executor.QueueSize, "AGENTFORGE_EXECUTOR_QUEUE_SIZE")

	setString(&cfg.Session.Shell, "AGENTFORGE_SHELL")
	setInt(&cfg.Session.ScrollbackKB, "AGENTFORGE_SCROLLBACK_KB")
	setDuration(&cfg.Session.BatchInterval, "AGENTFORGE_BATCH_INTERVAL")
	setInt(&cfg.Session.MaxConcurrency, "AGENTFORGE_MAX_CONCURRENCY")

	setString(&cfg.Sandbox.Runtime, "AGENTFORGE_SANDBOX_RUNTIME")
	setString(&cfg.Sandbox.ImageName, "AGENTFORGE_SANDBOX_IMAGE")
	setInt(&cfg.Sandbox.PortRangeStart, "AGENTFORGE_SANDBOX_PORT_START")
	setInt(&cfg.Sandbox.PortsPerAgent, "AGENTFORGE_SANDBOX_PORTS_PER_AGENT")
	setString(&cfg.Sandbox.SkillsDir, "AGENTFORGE_SKILLS_DIR")

	setString(&cfg.Inbox.Dir, "AGENTFORGE_INBOX_DIR")
	setDuration(&cfg.Inbox.Debounce, "AGENTFORGE_INBOX_DEBOUNCE")

	setInt64(&cfg.Cache.MaxSizeMB, "AGENTFORGE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "AGENTFORGE_CACHE_TTL")

	setBool(&cfg.Telemetry.Enabled, "AGENTFORGE_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "AGENTFORGE_OTLP_ENDPOINT")

	setBool(&cfg.MCP.Enabled, "AGENTFORGE_MCP_ENABLED")
	setString(&cfg.MCP.Port, "AGENTFORGE_MCP_PORT")
	setString(&cfg.MCP.APIKey, "AGENTFORGE_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Storage.Driver {
	case "json":
		if cfg.Storage.Dir == "" {
			return errors.New("storage.dir is required for the json driver")
		}
	case "postgres":
		if cfg.Storage.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
	switch cfg.Bus.Driver {
	case "memory":
	case "nats":
		if cfg.Bus.URL == "" {
			return errors.New("bus.url is required for the nats driver")
		}
	default:
		return fmt.Errorf("unknown bus.driver %q", cfg.Bus.Driver)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Scheduler.TickInterval <= 0 {
		return errors.New("scheduler.tick_interval must be positive")
	}
	if cfg.Session.MaxConcurrency < 1 {
		return errors.New("session.max_concurrency must be >= 1")
	}
	if cfg.Sandbox.PortsPerAgent < 1 {
		return errors.New("sandbox.ports_per_agent must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
