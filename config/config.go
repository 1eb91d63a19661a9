package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	FeedConfig         FeedConfig         `json:"feed"`
	StrategyConfig     StrategyConfig     `json:"strategy"`
	SessionConfig      SessionConfig      `json:"session"`
	NotificationConfig NotificationConfig `json:"notification"`
	InstrumentConfigs  []InstrumentConfig `json:"instruments"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	ServerConfig       ServerConfig       `json:"server"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// FeedConfig holds TwelveData market data configuration
type FeedConfig struct {
	APIKey        string `json:"api_key"`
	BaseURL       string `json:"base_url"`
	StreamEnabled bool   `json:"stream_enabled"` // websocket price stream
	StreamURL     string `json:"stream_url"`
}

// StrategyConfig holds the detection and plan-building thresholds. Every
// core algorithm takes these as parameters; nothing is hard-coded.
type StrategyConfig struct {
	SweepLookback      int     `json:"sweep_lookback"`       // 15m candles, default 12
	WickRatio          float64 `json:"wick_ratio"`           // sweep-side wick share, default 0.4
	ClusterLookbackMin int     `json:"cluster_lookback_min"` // minutes of 5m candles, default 200
	FootprintWindow    int     `json:"footprint_window"`     // candles, default 7
	VolumeSpikeRatio   float64 `json:"volume_spike_ratio"`   // default 1.5
	RewardRisk         float64 `json:"reward_risk"`          // default 4
	EntryTolerance     float64 `json:"entry_tolerance"`      // relative touch distance, default 0.001
	DailyAlertCap      int     `json:"daily_alert_cap"`      // default 5
	SeriesSize15m      int     `json:"series_size_15m"`      // default 96
	SeriesSize5m       int     `json:"series_size_5m"`       // default 60
}

// InstrumentConfig overrides per-instrument scaling.
type InstrumentConfig struct {
	Symbol      string  `json:"symbol"`
	Key         string  `json:"key"`
	PipSize     float64 `json:"pip_size"`
	StopPips    float64 `json:"stop_pips"`
	FixedStop   float64 `json:"fixed_stop"`
	Tick        float64 `json:"tick"`
	EntryBuffer float64 `json:"entry_buffer"`
	ClusterBand float64 `json:"cluster_band"`
	Precision   int     `json:"precision"`
}

// SessionConfig holds the trading window and job timing.
type SessionConfig struct {
	Timezone        string `json:"timezone"`         // default Asia/Karachi
	SessionStart    string `json:"session_start"`    // "HH:MM", default 17:00
	SessionEnd      string `json:"session_end"`      // "HH:MM", default 22:00
	PreSessionTime  string `json:"pre_session_time"` // "HH:MM", default 16:55
	MonitorInterval int    `json:"monitor_interval"` // minutes, default 5
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// DatabaseConfig holds PostgreSQL configuration for alert history
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for setup state persistence
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VaultConfig holds HashiCorp Vault configuration for credentials
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// ServerConfig holds the read-only status API configuration
type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	AllowedOrigins  string `json:"allowed_origins"`
	ShutdownTimeout int    `json:"shutdown_timeout"` // seconds
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile(getEnvOrDefault("CONFIG_FILE", "config.json"))
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Feed config
	cfg.FeedConfig.APIKey = getEnvOrDefault("TWELVE_API_KEY", cfg.FeedConfig.APIKey)
	cfg.FeedConfig.BaseURL = getEnvOrDefault("TWELVE_BASE_URL", cfg.FeedConfig.BaseURL)
	cfg.FeedConfig.StreamEnabled = getEnvOrDefault("TWELVE_STREAM_ENABLED", boolString(cfg.FeedConfig.StreamEnabled)) == "true"
	cfg.FeedConfig.StreamURL = getEnvOrDefault("TWELVE_STREAM_URL", cfg.FeedConfig.StreamURL)

	// Strategy config
	cfg.StrategyConfig.SweepLookback = getEnvIntOrDefault("SWEEP_LOOKBACK", defaultInt(cfg.StrategyConfig.SweepLookback, 12))
	cfg.StrategyConfig.WickRatio = getEnvFloatOrDefault("SWEEP_WICK_RATIO", defaultFloat(cfg.StrategyConfig.WickRatio, 0.4))
	cfg.StrategyConfig.ClusterLookbackMin = getEnvIntOrDefault("CLUSTER_LOOKBACK_MINUTES", defaultInt(cfg.StrategyConfig.ClusterLookbackMin, 200))
	cfg.StrategyConfig.FootprintWindow = getEnvIntOrDefault("FOOTPRINT_WINDOW", defaultInt(cfg.StrategyConfig.FootprintWindow, 7))
	cfg.StrategyConfig.VolumeSpikeRatio = getEnvFloatOrDefault("VOLUME_SPIKE_RATIO", defaultFloat(cfg.StrategyConfig.VolumeSpikeRatio, 1.5))
	cfg.StrategyConfig.RewardRisk = getEnvFloatOrDefault("REWARD_RISK", defaultFloat(cfg.StrategyConfig.RewardRisk, 4))
	cfg.StrategyConfig.EntryTolerance = getEnvFloatOrDefault("ENTRY_TOLERANCE", defaultFloat(cfg.StrategyConfig.EntryTolerance, 0.001))
	cfg.StrategyConfig.DailyAlertCap = getEnvIntOrDefault("DAILY_ALERT_CAP", defaultInt(cfg.StrategyConfig.DailyAlertCap, 5))
	cfg.StrategyConfig.SeriesSize15m = getEnvIntOrDefault("SERIES_SIZE_15M", defaultInt(cfg.StrategyConfig.SeriesSize15m, 96))
	cfg.StrategyConfig.SeriesSize5m = getEnvIntOrDefault("SERIES_SIZE_5M", defaultInt(cfg.StrategyConfig.SeriesSize5m, 60))

	// Session config
	cfg.SessionConfig.Timezone = getEnvOrDefault("SESSION_TIMEZONE", defaultString(cfg.SessionConfig.Timezone, "Asia/Karachi"))
	cfg.SessionConfig.SessionStart = getEnvOrDefault("SESSION_START", defaultString(cfg.SessionConfig.SessionStart, "17:00"))
	cfg.SessionConfig.SessionEnd = getEnvOrDefault("SESSION_END", defaultString(cfg.SessionConfig.SessionEnd, "22:00"))
	cfg.SessionConfig.PreSessionTime = getEnvOrDefault("PRE_SESSION_TIME", defaultString(cfg.SessionConfig.PreSessionTime, "16:55"))
	cfg.SessionConfig.MonitorInterval = getEnvIntOrDefault("MONITOR_INTERVAL_MINUTES", defaultInt(cfg.SessionConfig.MonitorInterval, 5))

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolString(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolString(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DATABASE_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", defaultString(cfg.DatabaseConfig.Database, "liquidity_matrix"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DATABASE_SSLMODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultString(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultString(cfg.VaultConfig.SecretPath, "liquidity-matrix/credentials"))
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", boolString(cfg.VaultConfig.TLSEnabled)) == "true"
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CACERT", cfg.VaultConfig.CACert)

	// Server config
	cfg.ServerConfig.Enabled = getEnvOrDefault("SERVER_ENABLED", boolString(cfg.ServerConfig.Enabled)) == "true"
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", defaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultString(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", boolString(cfg.LoggingConfig.Pretty)) == "true"
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	if c.FeedConfig.APIKey == "" && !c.VaultConfig.Enabled {
		return fmt.Errorf("feed API key is required (TWELVE_API_KEY or vault)")
	}
	if _, err := time.LoadLocation(c.SessionConfig.Timezone); err != nil {
		return fmt.Errorf("invalid session timezone %q: %w", c.SessionConfig.Timezone, err)
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		FeedConfig: FeedConfig{
			APIKey:        "your_twelvedata_key_here",
			StreamEnabled: false,
		},
		StrategyConfig: StrategyConfig{
			SweepLookback:      12,
			WickRatio:          0.4,
			ClusterLookbackMin: 200,
			FootprintWindow:    7,
			VolumeSpikeRatio:   1.5,
			RewardRisk:         4,
			EntryTolerance:     0.001,
			DailyAlertCap:      5,
			SeriesSize15m:      96,
			SeriesSize5m:       60,
		},
		SessionConfig: SessionConfig{
			Timezone:        "Asia/Karachi",
			SessionStart:    "17:00",
			SessionEnd:      "22:00",
			PreSessionTime:  "16:55",
			MonitorInterval: 5,
		},
		InstrumentConfigs: []InstrumentConfig{
			{Symbol: "XAU/USD", Key: "XAU", PipSize: 0.1, StopPips: 20, Tick: 0.01, EntryBuffer: 0.2, ClusterBand: 0.15, Precision: 3},
			{Symbol: "BTC/USD", Key: "BTC", FixedStop: 350, Tick: 1, EntryBuffer: 25, ClusterBand: 150, Precision: 2},
		},
		NotificationConfig: NotificationConfig{
			Enabled: true,
			Telegram: TelegramConfig{
				Enabled:  true,
				BotToken: "",
				ChatID:   "",
			},
			Discord: DiscordConfig{
				Enabled:    false,
				WebhookURL: "",
			},
		},
		DatabaseConfig: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			Database: "liquidity_matrix",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
		ServerConfig: ServerConfig{
			Enabled:        true,
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: "*",
		},
		LoggingConfig: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
