package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	DatabasePath string             `yaml:"database_path"`
	HTTPAddr     string             `yaml:"http_addr"`
	FocusCap     int                `yaml:"focus_cap"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Oracle       OracleConfig       `yaml:"oracle"`
	Notification NotificationConfig `yaml:"notifications"`
}

// TelegramConfig holds delivery settings for the Telegram sink. Leaving the
// token empty routes notifications to the log sink instead.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// OracleConfig holds settings for the ranking/summary oracle. Leaving the
// API key empty disables oracle calls; planning uses the local fallback.
type OracleConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotificationConfig controls the check-in scheduler.
type NotificationConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MorningTime string `yaml:"morning_time"` // HH:mm
	MiddayTime  string `yaml:"midday_time"`  // HH:mm
	// OverdueMinute is the minute offset of the hourly overdue sweep. A
	// pointer so an explicit 0 is distinguishable from unset.
	OverdueMinute *int `yaml:"overdue_minute"`
}

// SweepMinute returns the overdue sweep minute, defaulting when unset or out
// of range.
func (c NotificationConfig) SweepMinute() int {
	if c.OverdueMinute == nil || *c.OverdueMinute < 0 || *c.OverdueMinute > 59 {
		return defaultOverdueMinute
	}
	return *c.OverdueMinute
}

const defaultOverdueMinute = 15

// Load reads the optional YAML file at path, applies environment overrides,
// fills defaults, and validates the result.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// No file is fine; env and defaults cover everything.
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Oracle.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "focus_planner.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8090"
	}
	if cfg.FocusCap <= 0 {
		cfg.FocusCap = 5
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "gpt-4o-mini"
	}
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Oracle.Timeout <= 0 {
		cfg.Oracle.Timeout = 20 * time.Second
	}
	if cfg.Notification.MorningTime == "" {
		cfg.Notification.MorningTime = "09:00"
	}
	if cfg.Notification.MiddayTime == "" {
		cfg.Notification.MiddayTime = "13:00"
	}
	if cfg.Notification.OverdueMinute == nil ||
		*cfg.Notification.OverdueMinute < 0 || *cfg.Notification.OverdueMinute > 59 {
		minute := defaultOverdueMinute
		cfg.Notification.OverdueMinute = &minute
	}
}

func (c Config) validate() error {
	for _, t := range []string{c.Notification.MorningTime, c.Notification.MiddayTime} {
		if err := ValidateClock(t); err != nil {
			return err
		}
	}
	return nil
}

// ValidateClock checks an HH:mm time-of-day string.
func ValidateClock(timeStr string) error {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q", timeStr)
	}
	return nil
}
