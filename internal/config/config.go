// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LedgerConfig struct {
	LockTimeout  time.Duration `yaml:"lock_timeout"`  // max wait on the per-user lock
	RefundPolicy string        `yaml:"refund_policy"` // strict | clamp
}

type MediaConfig struct {
	FFprobePath  string        `yaml:"ffprobe_path"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	ImageCost    float64       `yaml:"image_cost"` // minutes charged per image
}

type AIConfig struct {
	Provider     string `yaml:"provider"` // gemini | openai | noop
	OpenAIKey    string `yaml:"openai_key"`
	GeminiKey    string `yaml:"gemini_key"`
	DefaultModel string `yaml:"default_model"`
}

type WorkerConfig struct {
	Workers      int           `yaml:"workers"`       // concurrent note processors
	PollInterval time.Duration `yaml:"poll_interval"` // queue poll when idle
	MaxRetries   int           `yaml:"max_retries"`   // per-note retry budget
}

type WebConfig struct {
	Port        int    `yaml:"port"`
	JWTSecret   string `yaml:"jwt_secret"`
	AdminAPIKey string `yaml:"admin_api_key"`
	RateLimit   int    `yaml:"rate_limit"` // requests per client per minute, 0 disables
}

type SchedulerConfig struct {
	ExpiryCheckInterval time.Duration `yaml:"expiry_check_interval"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type I18nConfig struct {
	LocalesDir    string `yaml:"locales_dir"`
	DefaultLocale string `yaml:"default_locale"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Media     MediaConfig     `yaml:"media"`
	AI        AIConfig        `yaml:"ai"`
	Worker    WorkerConfig    `yaml:"worker"`
	Web       WebConfig       `yaml:"web"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`
	I18n      I18nConfig      `yaml:"i18n"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ledger.LockTimeout <= 0 {
		cfg.Ledger.LockTimeout = 5 * time.Second
	}
	if cfg.Ledger.RefundPolicy == "" {
		cfg.Ledger.RefundPolicy = "strict"
	}
	if cfg.Media.FFprobePath == "" {
		cfg.Media.FFprobePath = "ffprobe"
	}
	if cfg.Media.ProbeTimeout <= 0 {
		cfg.Media.ProbeTimeout = 30 * time.Second
	}
	if cfg.Media.ImageCost <= 0 {
		cfg.Media.ImageCost = 0.5
	}
	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 4
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 2 * time.Second
	}
	if cfg.Worker.MaxRetries <= 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Scheduler.ExpiryCheckInterval <= 0 {
		cfg.Scheduler.ExpiryCheckInterval = time.Minute
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-2.0-flash"
	}
	if cfg.I18n.LocalesDir == "" {
		cfg.I18n.LocalesDir = "locales"
	}
	if cfg.I18n.DefaultLocale == "" {
		cfg.I18n.DefaultLocale = "en"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	switch cfg.Ledger.RefundPolicy {
	case "strict", "clamp":
	default:
		return nil, fmt.Errorf("ledger.refund_policy must be strict or clamp, got %q", cfg.Ledger.RefundPolicy)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}
