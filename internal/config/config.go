// Package config defines all configuration for the street market services.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// fields overridable via MARKET_* environment variables. Every service
// reads the same file and picks the sections it cares about.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"streetmarket/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Bus      BusConfig      `mapstructure:"bus"`
	World    WorldConfig    `mapstructure:"world"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Observer ObserverConfig `mapstructure:"observer"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BusConfig points a service at the message broker.
//
//   - URL: broker address (default nats://127.0.0.1:4222).
//   - CoreOnly: skip the stream layer and use plain pub/sub. The bus also
//     falls back to this by itself when the broker has no JetStream.
//   - ConnectAttempts / ConnectBackoff: dial retry budget before the
//     connection error is treated as fatal.
type BusConfig struct {
	URL             string        `mapstructure:"url"`
	CoreOnly        bool          `mapstructure:"core_only"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	ConnectBackoff  time.Duration `mapstructure:"connect_backoff"`
}

// WorldConfig tunes the World Engine.
//
//   - TickInterval: seconds between ticks, fractional allowed
//     (WORLD_TICK_INTERVAL overrides).
//   - SpawnTable: per-tick resource pool contents; empty means the
//     built-in default table.
type WorldConfig struct {
	TickInterval float64        `mapstructure:"tick_interval"`
	SpawnTable   map[string]int `mapstructure:"spawn_table"`
}

// Interval returns the tick interval as a duration.
func (w WorldConfig) Interval() time.Duration {
	return time.Duration(w.TickInterval * float64(time.Second))
}

// AgentConfig identifies one agent process and selects its strategy.
type AgentConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Strategy    string `mapstructure:"strategy"` // farmer, chef, or trader
	APIAddr     string `mapstructure:"api_addr"` // status API listen address, empty = disabled
	APIURL      string `mapstructure:"api_url"`  // advertised in JOIN; derived from APIAddr when empty
}

// ObserverConfig controls the dashboard service.
type ObserverConfig struct {
	Port             int           `mapstructure:"port"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`     // agent status API poll cycle
	PollRate         float64       `mapstructure:"poll_rate"`         // status requests/sec across all agents
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"` // periodic export to the store, 0 = only on shutdown
}

// StoreConfig sets where the observer exports snapshots (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger builds the process logger for the configured level and
// format. Unknown levels fall back to info.
func (l LoggingConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.slogLevel()}
	var handler slog.Handler
	if l.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func (l LoggingConfig) slogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file with env var overrides. A missing
// file is fine: defaults plus environment cover every field the services
// need. Legacy env names (NATS_URL, WORLD_TICK_INTERVAL, AGENT_ID,
// AGENT_STRATEGY, AGENT_API_ADDR) win over both.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// Legacy env overrides
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.Bus.URL = url
	}
	if raw := os.Getenv("WORLD_TICK_INTERVAL"); raw != "" {
		interval, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse WORLD_TICK_INTERVAL %q: %w", raw, err)
		}
		cfg.World.TickInterval = interval
	}
	if id := os.Getenv("AGENT_ID"); id != "" {
		cfg.Agent.ID = id
	}
	if strat := os.Getenv("AGENT_STRATEGY"); strat != "" {
		cfg.Agent.Strategy = strat
	}
	if addr := os.Getenv("AGENT_API_ADDR"); addr != "" {
		cfg.Agent.APIAddr = addr
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bus.URL == "" {
		cfg.Bus.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Bus.ConnectAttempts == 0 {
		cfg.Bus.ConnectAttempts = 10
	}
	if cfg.Bus.ConnectBackoff == 0 {
		cfg.Bus.ConnectBackoff = 2 * time.Second
	}
	if cfg.World.TickInterval == 0 {
		cfg.World.TickInterval = types.DefaultTickInterval.Seconds()
	}
	if cfg.Observer.Port == 0 {
		cfg.Observer.Port = 8080
	}
	if cfg.Observer.PollInterval == 0 {
		cfg.Observer.PollInterval = 10 * time.Second
	}
	if cfg.Observer.PollRate == 0 {
		cfg.Observer.PollRate = 5
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "data"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks value ranges shared by every service. Per-service
// requirements (an agent must have an id) stay with the service's main.
func (c *Config) Validate() error {
	if c.Bus.URL == "" {
		return fmt.Errorf("bus.url is required (set NATS_URL)")
	}
	if c.Bus.ConnectAttempts < 1 {
		return fmt.Errorf("bus.connect_attempts must be >= 1")
	}
	if c.World.TickInterval <= 0 {
		return fmt.Errorf("world.tick_interval must be > 0 seconds")
	}
	for item, count := range c.World.SpawnTable {
		if !types.ValidItem(item) {
			return fmt.Errorf("world.spawn_table: unknown item %q", item)
		}
		if count <= 0 {
			return fmt.Errorf("world.spawn_table: count for %q must be > 0", item)
		}
	}
	switch c.Agent.Strategy {
	case "", "farmer", "chef", "trader":
	default:
		return fmt.Errorf("agent.strategy must be one of: farmer, chef, trader")
	}
	if c.Observer.Port < 1 || c.Observer.Port > 65535 {
		return fmt.Errorf("observer.port must be a valid TCP port")
	}
	if c.Observer.PollRate <= 0 {
		return fmt.Errorf("observer.poll_rate must be > 0")
	}
	return nil
}
