package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/alufers/stars-league-bot/league"
)

const (
	configFileEnv     = "STARS_BOT_CONFIG_FILE"
	defaultConfigFile = "config.json"

	ledgerSQLite = "sqlite"
	ledgerRedis  = "redis"
)

type Config struct {
	BotToken          string        `mapstructure:"bot_token"`
	TeamsURL          string        `mapstructure:"api_teams"`
	GamesURL          string        `mapstructure:"api_games"`
	DatabasePath      string        `mapstructure:"database_path"`
	NotificationHours int           `mapstructure:"notification_hours_before"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	TeamsCacheTTL     time.Duration `mapstructure:"teams_cache_ttl"`
	LeagueTimezone    string        `mapstructure:"league_timezone"`
	LedgerBackend     string        `mapstructure:"ledger_backend"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db"`
	SendRatePerSecond float64       `mapstructure:"send_rate_per_second"`
	SendWorkers       int           `mapstructure:"send_workers"`
	StatusAddr        string        `mapstructure:"status_addr"`
	StandingsURL      string        `mapstructure:"standings_url"`
	LeadersURL        string        `mapstructure:"leaders_url"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
}

// configDefaults doubles as the content written by `config init`, so
// durations are kept as strings.
func configDefaults() map[string]any {
	return map[string]any{
		"bot_token":                 "",
		"api_teams":                 "",
		"api_games":                 "",
		"database_path":             "stars-bot.db",
		"notification_hours_before": 2,
		"poll_interval":             "10m",
		"http_timeout":              "10s",
		"teams_cache_ttl":           "6h",
		"league_timezone":           "Europe/Moscow",
		"ledger_backend":            ledgerSQLite,
		"redis_addr":                "localhost:6379",
		"redis_password":            "",
		"redis_db":                  0,
		"send_rate_per_second":      25,
		"send_workers":              4,
		"status_addr":               ":8080",
		"standings_url":             league.DefaultStandingsURL,
		"leaders_url":               league.DefaultLeadersURL,
		"log_level":                 "info",
		"log_format":                "console",
	}
}

func configFilePath() string {
	if p := os.Getenv(configFileEnv); p != "" {
		return p
	}
	return defaultConfigFile
}

// loadConfig reads the JSON config file at path if it exists. Environment
// variables named like the upper-cased keys (BOT_TOKEN, API_GAMES, ...) take
// precedence over the file.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range configDefaults() {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TeamsURL, validation.Required, is.URL),
		validation.Field(&c.GamesURL, validation.Required, is.URL),
		validation.Field(&c.DatabasePath, validation.Required),
		validation.Field(&c.NotificationHours, validation.Required, validation.Min(1)),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.HTTPTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.TeamsCacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.LeagueTimezone, validation.Required, validation.By(validTimezone)),
		validation.Field(&c.LedgerBackend, validation.In(ledgerSQLite, ledgerRedis)),
		validation.Field(&c.RedisAddr, validation.When(c.LedgerBackend == ledgerRedis, validation.Required)),
		validation.Field(&c.SendRatePerSecond, validation.Required, validation.Min(0.1)),
		validation.Field(&c.SendWorkers, validation.Required, validation.Min(1)),
		validation.Field(&c.StandingsURL, is.URL),
		validation.Field(&c.LeadersURL, is.URL),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "console")),
	)
}

func validTimezone(value any) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return errors.New("unknown time zone")
	}
	return nil
}

// Location returns the league's time zone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LeagueTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// writeDefaultConfig creates a config file with default values. An existing
// file is never overwritten.
func writeDefaultConfig(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	defaults := configDefaults()
	defaults["bot_token"] = os.Getenv("BOT_TOKEN")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(defaults); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
