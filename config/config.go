package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// PipelineConfig 批处理管道配置（限流、阈值、保留策略）
type PipelineConfig struct {
	MaxDraftsPerRun    int           `yaml:"max_drafts_per_run"`
	MinDelay           time.Duration `yaml:"min_delay"`
	DuplicateWindow    time.Duration `yaml:"duplicate_window"`
	MaxHourlyCalls     int           `yaml:"max_hourly_calls"`
	MaxDailyCalls      int           `yaml:"max_daily_calls"`
	MinDraftPriority   int           `yaml:"min_draft_priority"`
	FetchLimit         int           `yaml:"fetch_limit"`
	RetentionDays      int           `yaml:"retention_days"`
	SenderHistoryLimit int           `yaml:"sender_history_limit"`
}

type GenerationConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// ScoringConfig 优先级评分的可配置名单，留空则使用内置默认值
type ScoringConfig struct {
	VIPSenders []string `yaml:"vip_senders"`
	VIPDomains []string `yaml:"vip_domains"`
}

type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// AccountConfig 单个邮箱账号
type AccountConfig struct {
	ID          string `yaml:"id"`
	Provider    string `yaml:"provider"`
	Description string `yaml:"description"`
}

type Config struct {
	DB         DBConfig         `yaml:"db"`
	MQ         MQConfig         `yaml:"mq"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Server     ServerConfig     `yaml:"server"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Generation GenerationConfig `yaml:"generation"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Provider   ProviderConfig   `yaml:"provider"`
	Accounts   []AccountConfig  `yaml:"accounts"`

	// FilterRulesPath points at the hot-reloadable sender filter rules file.
	FilterRulesPath string `yaml:"filter_rules_path"`
}

func Load() *Config {
	return LoadFrom("config.yaml")
}

func LoadFrom(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode %s: %v", path, err)
	}

	applyDefaults(&cfg)

	// 环境变量覆盖（生产环境使用）
	overrideFromEnv(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Pipeline.MaxDraftsPerRun == 0 {
		cfg.Pipeline.MaxDraftsPerRun = 10
	}
	if cfg.Pipeline.MinDelay == 0 {
		cfg.Pipeline.MinDelay = 2 * time.Second
	}
	if cfg.Pipeline.DuplicateWindow == 0 {
		cfg.Pipeline.DuplicateWindow = 30 * time.Minute
	}
	if cfg.Pipeline.MaxHourlyCalls == 0 {
		cfg.Pipeline.MaxHourlyCalls = 20
	}
	if cfg.Pipeline.MaxDailyCalls == 0 {
		cfg.Pipeline.MaxDailyCalls = 100
	}
	if cfg.Pipeline.MinDraftPriority == 0 {
		cfg.Pipeline.MinDraftPriority = 80
	}
	if cfg.Pipeline.FetchLimit == 0 {
		cfg.Pipeline.FetchLimit = 20
	}
	if cfg.Pipeline.RetentionDays == 0 {
		cfg.Pipeline.RetentionDays = 30
	}
	if cfg.Pipeline.SenderHistoryLimit == 0 {
		cfg.Pipeline.SenderHistoryLimit = 10
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 30 * time.Second
	}
	if cfg.Generation.MaxAttempts == 0 {
		cfg.Generation.MaxAttempts = 3
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.FilterRulesPath == "" {
		cfg.FilterRulesPath = "config/sender_filters.json"
	}
}

func overrideFromEnv(cfg *Config) {
	// DB配置
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	// MQ配置
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	// Redis配置
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	// JWT配置
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	// Server配置
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	// 生成服务配置
	if key := os.Getenv("GENERATION_API_KEY"); key != "" {
		cfg.Generation.APIKey = key
	}
	if model := os.Getenv("GENERATION_MODEL"); model != "" {
		cfg.Generation.Model = model
	}

	if key := os.Getenv("PROVIDER_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
}
