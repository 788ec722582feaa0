package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	OpenAI         OpenAIConfig         `mapstructure:"openai"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Lark           LarkConfig           `mapstructure:"lark"`
	Domain         DomainConfig         `mapstructure:"domain"`
	Logger         LoggerConfig         `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig selects and configures the request store
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
}

// SQLiteConfig holds SQLite connection pool settings
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DynamoDBConfig holds DynamoDB table settings
type DynamoDBConfig struct {
	Table           string `mapstructure:"table"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	CreateTable     bool   `mapstructure:"create_table"`
}

// OpenAIConfig holds OpenAI API configuration for extraction and classification
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	VisionModel       string        `mapstructure:"vision_model"`
	ClassifierModel   string        `mapstructure:"classifier_model"`
	UseVision         bool          `mapstructure:"use_vision"`
	MaxPages          int           `mapstructure:"max_pages"`
	PromptsPath       string        `mapstructure:"prompts_path"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
	ClassifyTimeout   time.Duration `mapstructure:"classify_timeout"`
}

// ClassificationConfig controls the classification result cache
type ClassificationConfig struct {
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Redis        RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings. An empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig holds attachment storage settings
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// LarkConfig holds Lark notification settings
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
	ReceiveID     string `mapstructure:"receive_id"`
}

// DomainConfig holds business rule settings
type DomainConfig struct {
	Units     []string `mapstructure:"units"`
	VATPolicy string   `mapstructure:"vat_policy"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads an optional .env file, the YAML config file and PROCURO_* environment
// overrides, in increasing precedence. An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PROCURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
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

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", 20<<20)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.sqlite.path", "data/procuro.db")
	v.SetDefault("database.sqlite.max_open_conns", 10)
	v.SetDefault("database.sqlite.max_idle_conns", 5)
	v.SetDefault("database.sqlite.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.dynamodb.table", "procurement_requests")
	v.SetDefault("database.dynamodb.region", "us-east-1")
	v.SetDefault("database.dynamodb.create_table", false)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("openai.classifier_model", "gpt-4o-mini")
	v.SetDefault("openai.use_vision", false)
	v.SetDefault("openai.max_pages", 5)
	v.SetDefault("openai.extraction_timeout", 2*time.Minute)
	v.SetDefault("openai.classify_timeout", 30*time.Second)

	v.SetDefault("classification.cache_enabled", true)
	v.SetDefault("classification.cache_ttl", 24*time.Hour)

	v.SetDefault("storage.dir", "data/documents")

	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.receive_id_type", "chat_id")

	v.SetDefault("domain.units", []string{"pcs", "kg", "m", "l", "h", "set"})
	v.SetDefault("domain.vat_policy", "strict")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the conventional names of credentials
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("openai.api_key", "PROCURO_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("lark.app_id", "PROCURO_LARK_APP_ID", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "PROCURO_LARK_APP_SECRET", "LARK_APP_SECRET")
	_ = v.BindEnv("classification.redis.password", "PROCURO_CLASSIFICATION_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("database.dynamodb.access_key_id", "PROCURO_DATABASE_DYNAMODB_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("database.dynamodb.secret_access_key", "PROCURO_DATABASE_DYNAMODB_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
}

// Validate checks required settings and their combinations
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case DriverDynamoDB:
		if c.Database.DynamoDB.Table == "" {
			return fmt.Errorf("database.dynamodb.table is required")
		}
		if (c.Database.DynamoDB.AccessKeyID == "") != (c.Database.DynamoDB.SecretAccessKey == "") {
			return fmt.Errorf("database.dynamodb access key id and secret must be set together")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of %s, %s, %s", DriverSQLite, DriverDynamoDB, DriverMemory)
	}

	if c.OpenAI.MaxPages < 1 {
		return fmt.Errorf("openai.max_pages must be at least 1")
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" || c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
		}
		if c.Lark.ReceiveID == "" {
			return fmt.Errorf("lark.receive_id is required when lark is enabled")
		}
	}

	if len(c.Domain.Units) == 0 {
		return fmt.Errorf("domain.units must not be empty")
	}
	switch c.Domain.VATPolicy {
	case "strict", "advisory":
	default:
		return fmt.Errorf("domain.vat_policy must be strict or advisory, got %q", c.Domain.VATPolicy)
	}

	return nil
}

// ExtractionEnabled reports whether an OpenAI key is configured
func (c *Config) ExtractionEnabled() bool {
	return c.OpenAI.APIKey != ""
}
