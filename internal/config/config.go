package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath overrides the config file path when set.
const EnvConfigPath = "JANPAI_CONFIG"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	Game      GameConfig      `toml:"game"`
	Replay    ReplayConfig    `toml:"replay"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Version   string `toml:"version"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	// DSN empty disables persistence; games run without a database.
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type NetworkConfig struct {
	BindAddress      string        `toml:"bind_address"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	HeartbeatTimeout time.Duration `toml:"heartbeat_timeout"`
	OutQueueSize     int           `toml:"out_queue_size"`
	MaxBodyBytes     int64         `toml:"max_body_bytes"`
}

type GameConfig struct {
	RulePresetPath      string        `toml:"rule_preset_path"` // optional yaml override
	BaseTurnSeconds     float64       `toml:"base_turn_seconds"`
	InitialBankSeconds  float64       `toml:"initial_bank_seconds"`
	MaxBankSeconds      float64       `toml:"max_bank_seconds"`
	MeldDecisionSeconds float64       `toml:"meld_decision_seconds"`
	RoundConfirmSeconds float64       `toml:"round_confirm_seconds"`
	RoundBonusSeconds   float64       `toml:"round_bonus_seconds"`
	RoomTTL             time.Duration `toml:"room_ttl"`
	MaxCapacity         int           `toml:"max_capacity"`
}

type ReplayConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RateLimitConfig struct {
	Enabled           bool `toml:"enabled"`
	MessagesPerSecond int  `toml:"messages_per_second"`
}

// Load reads the TOML file at path over the built-in defaults. The
// JANPAI_CONFIG environment variable, when set, replaces path.
func Load(path string) (*Config, error) {
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "janpai",
			Version: "0.9.0",
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Network: NetworkConfig{
			BindAddress:      "0.0.0.0:8080",
			WriteTimeout:     10 * time.Second,
			HeartbeatTimeout: 60 * time.Second,
			OutQueueSize:     256,
			MaxBodyBytes:     4096,
		},
		Game: GameConfig{
			BaseTurnSeconds:     5,
			InitialBankSeconds:  20,
			MaxBankSeconds:      40,
			MeldDecisionSeconds: 8,
			RoundConfirmSeconds: 15,
			RoundBonusSeconds:   5,
			RoomTTL:             30 * time.Minute,
			MaxCapacity:         200,
		},
		Replay: ReplayConfig{
			Enabled: true,
			Dir:     "replays",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			MessagesPerSecond: 30,
		},
	}
}
