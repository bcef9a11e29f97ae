package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string   `mapstructure:"REDIS_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	AuthRateLimit  string  `mapstructure:"AUTH_RATE_LIMIT"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`
	OTPBypass     bool          `mapstructure:"OTP_BYPASS"`
	OTPBypassCode string        `mapstructure:"OTP_BYPASS_CODE"`
	OTPTTL        time.Duration `mapstructure:"OTP_TTL"`

	PHIEncryptionKey string `mapstructure:"PHI_ENCRYPTION_KEY"`

	PredictionAPIURL string        `mapstructure:"PREDICTION_API_URL"`
	SymptomAPIURL    string        `mapstructure:"SYMPTOM_API_URL"`
	InferenceTimeout time.Duration `mapstructure:"INFERENCE_TIMEOUT"`
	CacheTTL         time.Duration `mapstructure:"CACHE_TTL"`

	BlobBackend       string `mapstructure:"BLOB_BACKEND"`
	LighthouseAPIKey  string `mapstructure:"LIGHTHOUSE_API_KEY"`
	LighthouseGateway string `mapstructure:"LIGHTHOUSE_GATEWAY"`
	MinioEndpoint     string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey    string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey    string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket       string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL       bool   `mapstructure:"MINIO_USE_SSL"`

	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`

	CriticalAlertEmail string `mapstructure:"CRITICAL_ALERT_EMAIL"`

	ReminderCron   string `mapstructure:"REMINDER_CRON"`
	OTPCleanupCron string `mapstructure:"OTP_CLEANUP_CRON"`

	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUTH_RATE_LIMIT",
	"JWT_SECRET", "JWT_TTL", "OTP_BYPASS", "OTP_BYPASS_CODE", "OTP_TTL",
	"PHI_ENCRYPTION_KEY",
	"PREDICTION_API_URL", "SYMPTOM_API_URL", "INFERENCE_TIMEOUT", "CACHE_TTL",
	"BLOB_BACKEND", "LIGHTHOUSE_API_KEY", "LIGHTHOUSE_GATEWAY",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"CRITICAL_ALERT_EMAIL", "REMINDER_CRON", "OTP_CLEANUP_CRON",
	"LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("AUTH_RATE_LIMIT", "20-M")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("OTP_BYPASS", false)
	v.SetDefault("OTP_BYPASS_CODE", "123456")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("PREDICTION_API_URL", "http://127.0.0.1:5000")
	v.SetDefault("SYMPTOM_API_URL", "http://127.0.0.1:5001")
	v.SetDefault("INFERENCE_TIMEOUT", "60s")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("BLOB_BACKEND", "memory")
	v.SetDefault("LIGHTHOUSE_GATEWAY", "https://gateway.lighthouse.storage/ipfs")
	v.SetDefault("MINIO_BUCKET", "medai-documents")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("REMINDER_CRON", "@every 1m")
	v.SetDefault("OTP_CLEANUP_CRON", "@hourly")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = splitList(origins)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production requires
// a JWT secret and a PHI key, and refuses OTP bypass mode.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.PHIEncryptionKey == "" {
			return fmt.Errorf("PHI_ENCRYPTION_KEY is required in production")
		}
		if c.OTPBypass {
			return fmt.Errorf("OTP_BYPASS must not be enabled in production")
		}
	}

	if c.PHIEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.PHIEncryptionKey)
		if err != nil {
			return fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if c.OTPBypass && c.OTPBypassCode == "" {
		return fmt.Errorf("OTP_BYPASS_CODE is required when OTP_BYPASS is true")
	}

	switch c.BlobBackend {
	case "memory":
	case "minio":
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when BLOB_BACKEND is \"minio\"")
		}
	case "lighthouse":
		if c.LighthouseAPIKey == "" {
			return fmt.Errorf("LIGHTHOUSE_API_KEY is required when BLOB_BACKEND is \"lighthouse\"")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be \"memory\", \"minio\", or \"lighthouse\", got %q", c.BlobBackend)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
