package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Analyzer  ProviderConfig  `mapstructure:"analyzer"`
	Generator ProviderConfig  `mapstructure:"generator"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, postgres
	Path            string `mapstructure:"path"`   // sqlite only
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	}
	return c.Path
}

// ConnMaxLifetimeDuration returns the connection lifetime as a Duration.
func (c *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// ProviderConfig configures one OpenAI-compatible chat-completion provider.
// Analysis and generation carry distinct timeouts: generation calls are
// expected to be slower than lookups.
type ProviderConfig struct {
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the provider timeout as a Duration.
func (c *ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type EmbeddingConfig struct {
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Dimensions     int    `mapstructure:"dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the embedding provider timeout as a Duration.
func (c *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type SchedulerConfig struct {
	CleanupDelaySeconds int `mapstructure:"cleanup_delay_seconds"`
}

// CleanupDelay returns the terminal-record retention delay.
func (c *SchedulerConfig) CleanupDelay() time.Duration {
	return time.Duration(c.CleanupDelaySeconds) * time.Second
}

type PipelineConfig struct {
	PortfolioEnabled bool        `mapstructure:"portfolio_enabled"`
	PortfolioDelayMS int         `mapstructure:"portfolio_delay_ms"`
	Costs            CostsConfig `mapstructure:"costs"`
}

// PortfolioDelay returns the self-imposed rate-limit pause applied before
// the portfolio generation call.
func (c *PipelineConfig) PortfolioDelay() time.Duration {
	return time.Duration(c.PortfolioDelayMS) * time.Millisecond
}

// CostsConfig holds the pre-computed credit amount per metered operation.
type CostsConfig struct {
	Analysis    int64 `mapstructure:"analysis"`
	CoverLetter int64 `mapstructure:"cover_letter"`
	TailoredCV  int64 `mapstructure:"tailored_cv"`
	InterviewQA int64 `mapstructure:"interview_qa"`
	Portfolio   int64 `mapstructure:"portfolio"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/jobtailor.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime_minutes", 30)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("analyzer.model", "gpt-4o-mini")
	v.SetDefault("analyzer.base_url", "https://api.openai.com/v1")
	v.SetDefault("analyzer.timeout_seconds", 30)
	v.SetDefault("generator.model", "gpt-4o")
	v.SetDefault("generator.base_url", "https://api.openai.com/v1")
	v.SetDefault("generator.timeout_seconds", 90)
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.base_url", "https://api.jina.ai/v1")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("embedding.timeout_seconds", 15)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "jobtailor-artifacts")
	v.SetDefault("scheduler.cleanup_delay_seconds", 60)
	v.SetDefault("pipeline.portfolio_enabled", true)
	v.SetDefault("pipeline.portfolio_delay_ms", 2000)
	v.SetDefault("pipeline.costs.analysis", 2)
	v.SetDefault("pipeline.costs.cover_letter", 1)
	v.SetDefault("pipeline.costs.tailored_cv", 3)
	v.SetDefault("pipeline.costs.interview_qa", 1)
	v.SetDefault("pipeline.costs.portfolio", 5)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("analyzer.api_key", "OPENAI_API_KEY")
	v.BindEnv("analyzer.base_url", "OPENAI_BASE_URL")
	v.BindEnv("generator.api_key", "OPENAI_API_KEY")
	v.BindEnv("generator.base_url", "OPENAI_BASE_URL")
	v.BindEnv("generator.model", "GENERATOR_MODEL")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
