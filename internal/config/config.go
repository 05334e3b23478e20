// Package config loads and validates configuration at startup.
// Fail-fast: if a required variable is missing, Load returns an error and the
// process exits.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file
// (CONFIG_FILE, default configs/config.yaml), then environment variables
// (a .env file in the working directory is loaded into the environment).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jobmate/jobalert-service/internal/model"
)

const defaultConfigFile = "configs/config.yaml"

// Config holds all runtime configuration for the job alert service.
type Config struct {
	HTTPPort    string `yaml:"http_port"`
	GRPCPort    string `yaml:"grpc_port"`
	DatabaseURL string `yaml:"-"`
	RedisURL    string `yaml:"-"`
	LogMode     string `yaml:"log_mode"`

	ScrapeIntervalHours int    `yaml:"scrape_interval_hours"`
	CleanupCron         string `yaml:"cleanup_cron"`
	ReportCron          string `yaml:"report_cron"`
	CycleLockTTLMinutes int    `yaml:"cycle_lock_ttl_minutes"`

	// Static filter defaults used when no active profile exists.
	Filter model.Criteria `yaml:"filter"`

	DefaultFrequency model.Frequency `yaml:"default_notification_frequency"`
	MinJobScore      float64         `yaml:"min_job_score"`
	MinMatchScore    float64         `yaml:"min_match_score"`

	EnableUserProfiles bool   `yaml:"enable_user_profiles"`
	EnableMultiChannel bool   `yaml:"enable_multi_channel"`
	EmailRecipient     string `yaml:"email_recipient"`

	SendGrid SendGridConfig `yaml:"sendgrid"`
	Slack    WebhookConfig  `yaml:"slack"`
	Discord  WebhookConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
	Adzuna   AdzunaConfig   `yaml:"adzuna"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type WebhookConfig struct {
	URL string `yaml:"-"`
}

type TelegramConfig struct {
	Token  string `yaml:"-"`
	ChatID int64  `yaml:"chat_id"`
}

type AdzunaConfig struct {
	AppID   string   `yaml:"-"`
	AppKey  string   `yaml:"-"`
	Country string   `yaml:"country"` // e.g. "in", "gb", "us"
	Queries []string `yaml:"queries"` // job titles searched per preferred location
}

// Defaults returns the configuration used before any file or env is read.
func Defaults() *Config {
	return &Config{
		HTTPPort:            "8083",
		GRPCPort:            "9093",
		LogMode:             "dev",
		ScrapeIntervalHours: 6,
		CleanupCron:         "0 2 * * *",
		ReportCron:          "0 9 * * 1",
		CycleLockTTLMinutes: 30,
		Filter: model.Criteria{
			Locations: []string{"Bangalore", "Mumbai", "Delhi", "Hyderabad", "Chennai", "Pune"},
			MinSalary: 0,
			MaxSalary: 9999999,
		},
		DefaultFrequency:   model.FrequencyDaily,
		MinJobScore:        model.DefaultMinJobScore,
		MinMatchScore:      model.DefaultMinMatchScore,
		EnableUserProfiles: true,
		EnableMultiChannel: true,
		Adzuna: AdzunaConfig{
			Country: "in",
			Queries: []string{"software engineer"},
		},
	}
}

// ProfileDefaults returns the settings new profiles start from.
func (c *Config) ProfileDefaults() model.ProfileDefaults {
	return model.ProfileDefaults{
		Frequency:     c.DefaultFrequency,
		MinJobScore:   c.MinJobScore,
		MinMatchScore: c.MinMatchScore,
	}
}

// Load reads .env, the optional YAML file and environment variables and
// returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from getenv. Empty values leave the field as is.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); strings.TrimSpace(v) != "" {
			*dst = splitCSV(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", key, v)
		}
		*dst = b
		return nil
	}
	float := func(key string, dst *float64) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number, got %q", key, v)
		}
		*dst = f
		return nil
	}
	positive := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, v)
		}
		*dst = n
		return nil
	}

	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("HTTP_PORT", &c.HTTPPort)
	str("GRPC_PORT", &c.GRPCPort)
	str("LOG_MODE", &c.LogMode)
	str("CLEANUP_CRON", &c.CleanupCron)
	str("REPORT_CRON", &c.ReportCron)
	str("EMAIL_RECIPIENT", &c.EmailRecipient)

	list("PREFERRED_LOCATIONS", &c.Filter.Locations)
	list("BLACKLISTED_COMPANIES", &c.Filter.Blacklist)

	str("SENDGRID_API_KEY", &c.SendGrid.APIKey)
	str("SENDGRID_BASE_URL", &c.SendGrid.BaseURL)
	str("SENDGRID_FROM_EMAIL", &c.SendGrid.FromEmail)
	str("SENDGRID_FROM_NAME", &c.SendGrid.FromName)
	str("SLACK_WEBHOOK_URL", &c.Slack.URL)
	str("DISCORD_WEBHOOK_URL", &c.Discord.URL)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
	str("ADZUNA_APP_ID", &c.Adzuna.AppID)
	str("ADZUNA_APP_KEY", &c.Adzuna.AppKey)
	str("ADZUNA_COUNTRY", &c.Adzuna.Country)
	list("ADZUNA_QUERIES", &c.Adzuna.Queries)

	if v := strings.TrimSpace(getenv("TELEGRAM_CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID must be an integer, got %q", v)
		}
		c.Telegram.ChatID = id
	}

	if v := strings.TrimSpace(getenv("DEFAULT_NOTIFICATION_FREQUENCY")); v != "" {
		f, err := model.ParseFrequency(v)
		if err != nil {
			return fmt.Errorf("DEFAULT_NOTIFICATION_FREQUENCY: %w", err)
		}
		c.DefaultFrequency = f
	}

	for _, step := range []error{
		positive("SCRAPE_INTERVAL_HOURS", &c.ScrapeIntervalHours),
		positive("CYCLE_LOCK_TTL_MINUTES", &c.CycleLockTTLMinutes),
		float("MIN_SALARY", &c.Filter.MinSalary),
		float("MAX_SALARY", &c.Filter.MaxSalary),
		float("MIN_JOB_SCORE", &c.MinJobScore),
		float("MIN_MATCH_SCORE", &c.MinMatchScore),
		boolean("ENABLE_USER_PROFILES", &c.EnableUserProfiles),
		boolean("ENABLE_MULTI_CHANNEL", &c.EnableMultiChannel),
	} {
		if step != nil {
			return step
		}
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Filter.MinSalary > c.Filter.MaxSalary {
		return fmt.Errorf("MIN_SALARY (%v) must not exceed MAX_SALARY (%v)", c.Filter.MinSalary, c.Filter.MaxSalary)
	}
	if c.ScrapeIntervalHours < 1 {
		return fmt.Errorf("scrape interval must be a positive number of hours, got %d", c.ScrapeIntervalHours)
	}
	if _, err := model.ParseFrequency(string(c.DefaultFrequency)); err != nil {
		return err
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
