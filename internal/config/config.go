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

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"`    // polling | webhook
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type WebhookConfig struct {
	Port      int    `yaml:"port"`
	Secret    string `yaml:"secret"` // HMAC signing secret shared with the provider
	MaxBytes  int64  `yaml:"max_bytes"`
	PublicURL string `yaml:"public_url"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ClassifierConfig struct {
	Provider  string        `yaml:"provider"` // openai | gemini | none
	OpenAIKey string        `yaml:"openai_key"`
	OpenAIURL string        `yaml:"openai_url"`
	GeminiKey string        `yaml:"gemini_key"`
	Model     string        `yaml:"model"`
	Threshold float64       `yaml:"threshold"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ShopConfig struct {
	BaseURL string        `yaml:"base_url"` // empty means in-memory demo catalog
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	Workers       int           `yaml:"workers"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	BatchSize     int           `yaml:"batch_size"`
	AdminRate     int           `yaml:"admin_rate"`     // dispatches per window
	AutomatedRate int           `yaml:"automated_rate"` // dispatches per window
	RateWindow    time.Duration `yaml:"rate_window"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Log        LogConfig        `yaml:"log"`
	Admin      AdminConfig      `yaml:"admin"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Shop       ShopConfig       `yaml:"shop"`
	Queue      QueueConfig      `yaml:"queue"`
	Security   SecurityConfig   `yaml:"security"`

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
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Mode == "polling" && cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required in polling mode")
	}
	if cfg.Bot.Mode == "webhook" && cfg.Webhook.Secret == "" {
		return nil, errors.New("webhook.secret is required in webhook mode")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields. Split out of LoadConfig so tests
// can build configs without a yaml file.
func (cfg *Config) ApplyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Webhook.Port <= 0 {
		cfg.Webhook.Port = 8090
	}
	if cfg.Webhook.MaxBytes <= 0 {
		cfg.Webhook.MaxBytes = 1 << 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Classifier.Provider == "" {
		cfg.Classifier.Provider = "none"
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "gpt-4o-mini"
	}
	if cfg.Classifier.Threshold <= 0 {
		cfg.Classifier.Threshold = 0.5
	}
	if cfg.Classifier.Timeout <= 0 {
		cfg.Classifier.Timeout = 5 * time.Second
	}
	if cfg.Classifier.OpenAIURL == "" {
		cfg.Classifier.OpenAIURL = "https://api.openai.com/v1"
	}
	if cfg.Shop.Timeout <= 0 {
		cfg.Shop.Timeout = 10 * time.Second
	}

	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.PollInterval <= 0 {
		cfg.Queue.PollInterval = 5 * time.Second
	}
	if cfg.Queue.BatchSize <= 0 {
		cfg.Queue.BatchSize = 16
	}
	if cfg.Queue.AdminRate <= 0 {
		cfg.Queue.AdminRate = 30
	}
	if cfg.Queue.AutomatedRate <= 0 {
		cfg.Queue.AutomatedRate = 120
	}
	if cfg.Queue.RateWindow <= 0 {
		cfg.Queue.RateWindow = time.Minute
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
