// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"financeflow/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"` // X-Telegram-Bot-Api-Secret-Token
	RegisterURL   string `yaml:"register_url"`
	UpgradeURL    string `yaml:"upgrade_url"`
	APIEndpoint   string `yaml:"api_endpoint"` // override for tests / local bot API servers
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // CORS for the admin dashboard; empty disables
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // user profile cache
}

type AIConfig struct {
	Provider        string        `yaml:"provider"` // gemini|openai|auto
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	GeminiModel     string        `yaml:"gemini_model"`
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"` // e.g. Metis OpenAI-compatible gateway
	OpenAIModel     string        `yaml:"openai_model"`
	Timeout         time.Duration `yaml:"timeout"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type QueueConfig struct {
	Name             string        `yaml:"name"`
	MaxAttempts      int           `yaml:"max_attempts"`
	BackoffBase      time.Duration `yaml:"backoff_base"`
	RemoveOnComplete int           `yaml:"remove_on_complete"`
	RemoveOnFail     int           `yaml:"remove_on_fail"`
	LeaseTimeout     time.Duration `yaml:"lease_timeout"`
	DedupeTTL        time.Duration `yaml:"dedupe_ttl"`
}

type WorkerConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
}

type CronConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Secret             string `yaml:"secret"`
	RecurringSchedule  string `yaml:"recurring_schedule"`
	ResetUsageSchedule string `yaml:"reset_usage_schedule"`
	LockTTLSeconds     int    `yaml:"lock_ttl_seconds"`
	RunTimeoutSeconds  int    `yaml:"run_timeout_seconds"`
}

type SecurityConfig struct {
	AdminAPIKey string        `yaml:"admin_api_key"` // static Bearer secret for /api/admin
	JWTSecret   string        `yaml:"jwt_secret"`    // HS256 key for minted operator tokens
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type I18nConfig struct {
	DefaultLanguage string `yaml:"default_language"`
}

type Config struct {
	Bot       BotConfig                           `yaml:"bot"`
	Log       LogConfig                           `yaml:"log"`
	HTTP      HTTPConfig                          `yaml:"http"`
	Database  DatabaseConfig                      `yaml:"database"`
	Redis     RedisConfig                         `yaml:"redis"`
	AI        AIConfig                            `yaml:"ai"`
	Queue     QueueConfig                         `yaml:"queue"`
	Worker    WorkerConfig                        `yaml:"worker"`
	RateLimit RateLimitConfig                     `yaml:"rate_limit"`
	Plans     map[model.PlanTier]model.PlanLimits `yaml:"plans"`
	Cron      CronConfig                          `yaml:"cron"`
	Security  SecurityConfig                      `yaml:"security"`
	I18n      I18nConfig                          `yaml:"i18n"`
	Version   string                              `yaml:"version"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment (and an optional .env file), applies defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev mode may run purely from env
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setIfEnv(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	setIfEnv(&cfg.Bot.WebhookSecret, "TELEGRAM_WEBHOOK_SECRET")
	setIfEnv(&cfg.Database.URL, "DATABASE_URL")
	setIfEnv(&cfg.Redis.URL, "REDIS_URL")
	setIfEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	setIfEnv(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	setIfEnv(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	setIfEnv(&cfg.Cron.Secret, "CRON_SECRET")
	setIfEnv(&cfg.Security.AdminAPIKey, "ADMIN_API_KEY")
	setIfEnv(&cfg.Security.JWTSecret, "ADMIN_JWT_SECRET")
}

func setIfEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "auto"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-1.5-flash"
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 20 * time.Second
	}
	if cfg.AI.PingTimeout <= 0 {
		cfg.AI.PingTimeout = 10 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}

	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "message-processing"
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.BackoffBase <= 0 {
		cfg.Queue.BackoffBase = 2 * time.Second
	}
	if cfg.Queue.RemoveOnComplete <= 0 {
		cfg.Queue.RemoveOnComplete = 10
	}
	if cfg.Queue.RemoveOnFail <= 0 {
		cfg.Queue.RemoveOnFail = 20
	}
	if cfg.Queue.LeaseTimeout <= 0 {
		cfg.Queue.LeaseTimeout = 2 * time.Minute
	}
	if cfg.Queue.DedupeTTL <= 0 {
		cfg.Queue.DedupeTTL = 24 * time.Hour
	}

	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 5
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 500 * time.Millisecond
	}
	if cfg.Worker.HeartbeatInterval <= 0 {
		cfg.Worker.HeartbeatInterval = time.Minute
	}

	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}

	plans := model.DefaultPlanTable()
	for tier, limits := range cfg.Plans {
		plans[model.PlanTier(strings.ToLower(string(tier)))] = limits
	}
	cfg.Plans = plans

	if cfg.Cron.RecurringSchedule == "" {
		cfg.Cron.RecurringSchedule = "0 0 * * *"
	}
	if cfg.Cron.ResetUsageSchedule == "" {
		cfg.Cron.ResetUsageSchedule = "0 0 1 * *"
	}
	if cfg.Cron.LockTTLSeconds <= 0 {
		cfg.Cron.LockTTLSeconds = 300
	}
	if cfg.Cron.RunTimeoutSeconds <= 0 {
		cfg.Cron.RunTimeoutSeconds = 60
	}

	if cfg.Security.TokenTTL <= 0 {
		cfg.Security.TokenTTL = 30 * time.Minute
	}

	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
}

// Validate performs the minimal checks needed to start any subcommand.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Bot.Token == "" && !c.Runtime.Dev {
		return errors.New("bot.token is required")
	}
	for tier, l := range c.Plans {
		if l.MessagesPerMinute == 0 || l.MessagesPerMinute < model.Unlimited {
			return fmt.Errorf("plans.%s.messages_per_minute must be positive or -1", tier)
		}
		if l.MessagesPerMonth < model.Unlimited {
			return fmt.Errorf("plans.%s.messages_per_month must be >= -1", tier)
		}
	}
	return nil
}

// PlanTable returns the immutable tier table.
func (c *Config) PlanTable() model.PlanTable {
	return model.PlanTable(c.Plans)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
