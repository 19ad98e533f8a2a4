package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig               `yaml:"server"`
	Logging    LoggingConfig              `yaml:"logging"`
	Database   DatabaseConfig             `yaml:"database"`
	Analytics  AnalyticsConfig            `yaml:"analytics"`
	Redis      RedisConfig                `yaml:"redis"`
	AWS        AWSConfig                  `yaml:"aws"`
	Storage    StorageConfig              `yaml:"storage"`
	LLM        LLMConfig                  `yaml:"llm"`
	Learning   LearningConfig             `yaml:"learning"`
	Monitoring MonitoringConfig           `yaml:"monitoring"`
	Guarantee  GuaranteeConfig            `yaml:"guarantee"`
	Benchmarks map[string]BenchmarkConfig `yaml:"benchmarks"`
	Alerts     AlertsConfig               `yaml:"alerts"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	Host                   string   `yaml:"host"`
	ReadTimeoutSeconds     int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int      `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
	CORSOrigins            []string `yaml:"cors_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// DatabaseConfig holds the campaign database connection
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AnalyticsConfig selects where campaign analytics snapshots are read from.
// An empty DSN reuses the campaign database.
type AnalyticsConfig struct {
	Driver string `yaml:"driver"` // "postgres" or "snowflake"
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL            string `yaml:"url"`
	KeyPrefix      string `yaml:"key_prefix"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// AWSConfig holds shared AWS settings
type AWSConfig struct {
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"` // Empty string uses default credential chain (IAM role on ECS)
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// GetProfile returns the AWS profile, with environment variable override
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.Profile
}

// StorageConfig selects the learning state backends
type StorageConfig struct {
	ProfileBackend string `yaml:"profile_backend"` // memory, redis, s3
	ModelBackend   string `yaml:"model_backend"`   // memory, dynamodb
	S3Bucket       string `yaml:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix"`
	DynamoDBTable  string `yaml:"dynamodb_table"`
}

// LLMConfig configures the insight text generator
type LLMConfig struct {
	Provider           string `yaml:"provider"` // bedrock, openai, none
	Model              string `yaml:"model"`
	MaxTokens          int    `yaml:"max_tokens"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	OpenAIAPIKey       string `yaml:"openai_api_key"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`
	BreakerFailures    int    `yaml:"breaker_failures"`
	BreakerOpenSeconds int    `yaml:"breaker_open_seconds"`
	MaxRetries         int    `yaml:"max_retries"`
}

// Timeout returns the configured timeout as a duration
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c LLMConfig) BreakerOpenFor() time.Duration {
	return time.Duration(c.BreakerOpenSeconds) * time.Second
}

// LearningConfig tunes insight extraction and the prediction models
type LearningConfig struct {
	MaterialityThresholds map[string]float64 `yaml:"materiality_thresholds"`
	SampleWeightCap       int                `yaml:"sample_weight_cap"`
	MaturityCampaigns     int                `yaml:"maturity_campaigns"`
	EMAAlpha              float64            `yaml:"ema_alpha"`
	BaselinePrediction    float64            `yaml:"baseline_prediction"`
}

// MonitoringConfig tunes campaign performance checks
type MonitoringConfig struct {
	InitialDelayMinutes  int `yaml:"initial_delay_minutes"`
	WindowDays           int `yaml:"window_days"`
	ActionTimeoutSeconds int `yaml:"action_timeout_seconds"`
	// ExecutorURL, when set, sends optimization actions to an external
	// executor instead of the local action queue.
	ExecutorURL string `yaml:"executor_url"`
}

func (c MonitoringConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMinutes) * time.Minute
}

func (c MonitoringConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

func (c MonitoringConfig) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutSeconds) * time.Second
}

// GuaranteeConfig holds the performance guarantee terms
type GuaranteeConfig struct {
	CTRMultiplier float64 `yaml:"ctr_multiplier"`
	ROIPercent    float64 `yaml:"roi_percent"`
}

// BenchmarkConfig overrides one industry's benchmark row
type BenchmarkConfig struct {
	CTR            float64 `yaml:"ctr"`
	CPC            float64 `yaml:"cpc"`
	ConversionRate float64 `yaml:"conversion_rate"`
}

// AlertsConfig holds guarantee-miss e-mail alert settings
type AlertsConfig struct {
	Enabled     bool     `yaml:"enabled"`
	FromAddress string   `yaml:"from_address"`
	Recipients  []string `yaml:"recipients"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Analytics.Driver == "" {
		cfg.Analytics.Driver = "postgres"
	}
	if cfg.Analytics.Table == "" {
		cfg.Analytics.Table = "campaign_analytics"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "adaptive:"
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 30
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Storage.ProfileBackend == "" {
		cfg.Storage.ProfileBackend = "memory"
	}
	if cfg.Storage.ModelBackend == "" {
		cfg.Storage.ModelBackend = "memory"
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "learning/profiles/"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "none"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 20
	}
	if cfg.LLM.BreakerFailures == 0 {
		cfg.LLM.BreakerFailures = 5
	}
	if cfg.LLM.BreakerOpenSeconds == 0 {
		cfg.LLM.BreakerOpenSeconds = 60
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.Learning.MaterialityThresholds == nil {
		cfg.Learning.MaterialityThresholds = map[string]float64{}
	}
	for metric, v := range map[string]float64{
		"roi":             10,
		"ctr":             0.5,
		"conversion_rate": 1.0,
		"engagement_rate": 1.0,
	} {
		if _, ok := cfg.Learning.MaterialityThresholds[metric]; !ok {
			cfg.Learning.MaterialityThresholds[metric] = v
		}
	}
	if cfg.Learning.SampleWeightCap == 0 {
		cfg.Learning.SampleWeightCap = 100
	}
	if cfg.Learning.MaturityCampaigns == 0 {
		cfg.Learning.MaturityCampaigns = 20
	}
	if cfg.Learning.EMAAlpha == 0 {
		cfg.Learning.EMAAlpha = 0.2
	}
	if cfg.Learning.BaselinePrediction == 0 {
		cfg.Learning.BaselinePrediction = 5.0
	}
	if cfg.Monitoring.InitialDelayMinutes == 0 {
		cfg.Monitoring.InitialDelayMinutes = 5
	}
	if cfg.Monitoring.WindowDays == 0 {
		cfg.Monitoring.WindowDays = 7
	}
	if cfg.Monitoring.ActionTimeoutSeconds == 0 {
		cfg.Monitoring.ActionTimeoutSeconds = 30
	}
	if cfg.Guarantee.CTRMultiplier == 0 {
		cfg.Guarantee.CTRMultiplier = 2.0
	}
	if cfg.Guarantee.ROIPercent == 0 {
		cfg.Guarantee.ROIPercent = 200
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ANALYTICS_DRIVER"); v != "" {
		cfg.Analytics.Driver = v
	}
	if v := os.Getenv("ANALYTICS_DSN"); v != "" {
		cfg.Analytics.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" && cfg.LLM.Provider == "bedrock" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.OpenAIBaseURL = v
	}
	if v := os.Getenv("PROFILE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("MODEL_DYNAMODB_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("ALERT_FROM_ADDRESS"); v != "" {
		cfg.Alerts.FromAddress = v
	}
	if v := os.Getenv("ACTION_EXECUTOR_URL"); v != "" {
		cfg.Monitoring.ExecutorURL = v
	}

	return cfg, nil
}
