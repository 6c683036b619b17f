package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ModelBackendONNX  = "onnx"
	ModelBackendHugot = "hugot"
	ModelBackendVader = "vader"

	StoreBackendDynamoDB = "dynamodb"
	StoreBackendSQLite   = "sqlite"
	StoreBackendNone     = "none"

	NotifyBackendSNS   = "sns"
	NotifyBackendKafka = "kafka"
	NotifyBackendNone  = "none"
)

// Config holds all runtime settings. Values come from the environment,
// optionally overlaid on a YAML file named by CONFIG_FILE.
type Config struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"dev"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string `yaml:"http_port" env:"HTTP_PORT" env-default:"5000"`

	AWS    AWSConfig    `yaml:"aws"`
	Model  ModelConfig  `yaml:"model"`
	Store  StoreConfig  `yaml:"store"`
	Notify NotifyConfig `yaml:"notify"`
	Cache  CacheConfig  `yaml:"cache"`
}

type AWSConfig struct {
	Region string `yaml:"region" env:"AWS_REGION" env-default:"us-west-2"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint" env:"AWS_ENDPOINT" env-default:""`
}

type ModelConfig struct {
	Backend     string `yaml:"backend" env:"MODEL_BACKEND" env-default:"onnx"`
	Bucket      string `yaml:"bucket" env:"MODEL_BUCKET" env-default:""`
	Key         string `yaml:"key" env:"MODEL_KEY" env-default:"models/distilbert-sentiment/"`
	Dir         string `yaml:"dir" env:"MODEL_DIR" env-default:"/tmp/model"`
	HubRepo     string `yaml:"hub_repo" env:"MODEL_HUB_REPO" env-default:""`
	OnnxLibrary string `yaml:"onnx_library" env:"ONNX_LIBRARY_PATH" env-default:""`
}

type StoreConfig struct {
	Backend    string `yaml:"backend" env:"STORE_BACKEND" env-default:"dynamodb"`
	Table      string `yaml:"table" env:"DYNAMODB_TABLE" env-default:"sentiment-analysis"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"sentiment.db"`
}

type NotifyConfig struct {
	Backend     string `yaml:"backend" env:"NOTIFY_BACKEND" env-default:"none"`
	SNSTopicARN string `yaml:"sns_topic_arn" env:"SNS_TOPIC_ARN" env-default:""`
	KafkaBroker string `yaml:"kafka_broker" env:"KAFKA_BROKER" env-default:"localhost:29092"`
	KafkaTopic  string `yaml:"kafka_topic" env:"KAFKA_NOTIFY_TOPIC" env-default:"batch-completed"`
}

type CacheConfig struct {
	Address          string `yaml:"address" env:"VALKEY_INIT_ADDRESS" env-default:""`
	Password         string `yaml:"-" env:"VALKEY_PASSWORD"`
	PasswordSecretID string `yaml:"password_secret_id" env:"VALKEY_PASSWORD_SECRET_ID" env-default:""`
	TLS              bool   `yaml:"tls" env:"VALKEY_TLS" env-default:"false"`
	TTLSeconds       int    `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS" env-default:"86400"`
}

func (c CacheConfig) Enabled() bool {
	return c.Address != ""
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Load reads the configuration. CONFIG_FILE, when set, names a YAML file
// whose values are overridden by the environment.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Model.Backend {
	case ModelBackendONNX, ModelBackendHugot, ModelBackendVader:
	default:
		return fmt.Errorf("invalid MODEL_BACKEND %q", c.Model.Backend)
	}

	switch c.Store.Backend {
	case StoreBackendDynamoDB, StoreBackendSQLite, StoreBackendNone:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Notify.Backend {
	case NotifyBackendSNS, NotifyBackendKafka, NotifyBackendNone:
	default:
		return fmt.Errorf("invalid NOTIFY_BACKEND %q", c.Notify.Backend)
	}

	if c.Notify.Backend == NotifyBackendSNS && c.Notify.SNSTopicARN == "" {
		return fmt.Errorf("SNS_TOPIC_ARN is required when NOTIFY_BACKEND=sns")
	}

	if c.Cache.Enabled() && c.Cache.TTLSeconds < 1 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be at least 1, got %d", c.Cache.TTLSeconds)
	}
	return nil
}
