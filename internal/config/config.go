package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SignalScreener/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider   string `yaml:"provider"` // yahoo, sqlite, csv, mock
		SQLitePath string `yaml:"sqlite_path"`
		CSVDir     string `yaml:"csv_dir"`
		Cache      bool   `yaml:"cache"` // write fetched bars through to sqlite_path
		Limit      int    `yaml:"limit"`
	} `yaml:"data_source"`
	Position struct {
		Provider  string `yaml:"provider"` // file, remote
		StateFile string `yaml:"state_file"`
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
	} `yaml:"position"`
	Universe struct {
		Symbols   []string `yaml:"symbols"`
		Benchmark string   `yaml:"benchmark"`
	} `yaml:"universe"`
	Schedule struct {
		DailyCron  string        `yaml:"daily_cron"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		Timezone   string        `yaml:"timezone"`
	} `yaml:"schedule"`
	Runner struct {
		Workers int           `yaml:"workers"`
		LockTTL time.Duration `yaml:"lock_ttl"`
		LockDir string        `yaml:"lock_dir"`
	} `yaml:"runner"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Strategy strategy.Params `yaml:"strategy"`
	Proxy    string          `yaml:"proxy"`
}

// Load reads config from a YAML file, applies a .env file next to the working
// directory, then environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{Strategy: strategy.DefaultParams()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envFile := ".env"
	if v := os.Getenv("ENV_FILE"); v != "" {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Environment variable overrides
func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("DATA_PROVIDER", &cfg.DataSource.Provider)
	str("BARS_SQLITE_PATH", &cfg.DataSource.SQLitePath)
	str("BARS_CSV_DIR", &cfg.DataSource.CSVDir)
	str("POSITION_PROVIDER", &cfg.Position.Provider)
	str("POSITION_BASE_URL", &cfg.Position.BaseURL)
	str("POSITION_API_KEY", &cfg.Position.APIKey)
	str("BENCHMARK", &cfg.Universe.Benchmark)
	str("CRON_DAILY", &cfg.Schedule.DailyCron)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("SQLITE_PATH", &cfg.Database.SQLitePath)
	str("HTTPS_PROXY", &cfg.Proxy)

	if v := os.Getenv("SYMBOLS"); v != "" {
		var syms []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				syms = append(syms, s)
			}
		}
		cfg.Universe.Symbols = syms
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runner.Workers = n
		}
	}
	if v := os.Getenv("RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Schedule.RetryDelay = d
		}
	}
}

// Defaults
func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.SQLitePath == "" {
		cfg.DataSource.SQLitePath = "data/bars.db"
	}
	if cfg.DataSource.CSVDir == "" {
		cfg.DataSource.CSVDir = "data/bars"
	}
	if cfg.DataSource.Limit == 0 {
		cfg.DataSource.Limit = 300
	}
	if cfg.Position.Provider == "" {
		cfg.Position.Provider = "file"
	}
	if cfg.Position.StateFile == "" {
		cfg.Position.StateFile = "data/positions.json"
	}
	if cfg.Universe.Benchmark == "" {
		cfg.Universe.Benchmark = "2800"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 17 * * 1-5"
	}
	if cfg.Schedule.RetryDelay == 0 {
		cfg.Schedule.RetryDelay = 30 * time.Minute
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Asia/Hong_Kong"
	}
	if cfg.Runner.Workers == 0 {
		cfg.Runner.Workers = 4
	}
	if cfg.Runner.LockTTL == 0 {
		cfg.Runner.LockTTL = 2 * time.Hour
	}
	if cfg.Runner.LockDir == "" {
		cfg.Runner.LockDir = "data/locks"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/screener.db"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Universe.Symbols) == 0 {
		return fmt.Errorf("universe.symbols must not be empty")
	}
	switch c.DataSource.Provider {
	case "yahoo", "sqlite", "csv", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	switch c.Position.Provider {
	case "file":
	case "remote":
		if c.Position.BaseURL == "" {
			return fmt.Errorf("position.base_url is required for the remote provider")
		}
	default:
		return fmt.Errorf("position.provider %q is not supported", c.Position.Provider)
	}
	if c.Runner.Workers < 1 {
		return fmt.Errorf("runner.workers must be positive")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	p := c.Strategy
	if p.StopFactor <= 0 || p.StopATRPeriod < 1 {
		return fmt.Errorf("strategy.stop_factor and stop_atr_period must be positive")
	}
	if p.EnergyWindow < 1 || p.EnergyMinBars < 0 || p.E5HighWindow < 1 {
		return fmt.Errorf("strategy energy windows must be positive")
	}
	if len(p.B13Periods) == 0 {
		return fmt.Errorf("strategy.b13_periods must not be empty")
	}
	return nil
}
