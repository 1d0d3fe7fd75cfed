// Package config loads application settings from config files and the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	Port           string `mapstructure:"PORT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	MediaBackend    string `mapstructure:"MEDIA_BACKEND"`
	MediaRoot       string `mapstructure:"MEDIA_ROOT"`
	MediaURL        string `mapstructure:"MEDIA_URL"`
	MaxUploadSizeMB int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`

	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSBucket          string `mapstructure:"AWS_STORAGE_BUCKET_NAME"`

	CloudWatchEnabled      bool          `mapstructure:"CLOUDWATCH_ENABLED"`
	CloudWatchLogGroup     string        `mapstructure:"CLOUDWATCH_LOG_GROUP"`
	CloudWatchCreateStream string        `mapstructure:"CLOUDWATCH_CREATE_STREAM"`
	CloudWatchErrorStream  string        `mapstructure:"CLOUDWATCH_ERROR_STREAM"`
	CloudWatchTimeout      time.Duration `mapstructure:"CLOUDWATCH_TIMEOUT"`

	RedisURL string `mapstructure:"REDIS_URL"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	// The base file is optional.
	_ = v.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env != "" && env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config.%s.yml: %w", env, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "blog")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "blog")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("MEDIA_BACKEND", "local")
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MEDIA_URL", "/media/")
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 10)

	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_STORAGE_BUCKET_NAME", "")

	v.SetDefault("CLOUDWATCH_ENABLED", false)
	v.SetDefault("CLOUDWATCH_LOG_GROUP", "BlogLogs")
	v.SetDefault("CLOUDWATCH_CREATE_STREAM", "PostCreation")
	v.SetDefault("CLOUDWATCH_ERROR_STREAM", "PostCreationError")
	v.SetDefault("CLOUDWATCH_TIMEOUT", time.Duration(0))

	v.SetDefault("REDIS_URL", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.MediaBackend = strings.ToLower(strings.TrimSpace(c.MediaBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if !strings.HasSuffix(c.MediaURL, "/") {
		c.MediaURL += "/"
	}
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// DSN returns the Postgres connection string for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MaxUploadBytes is the image size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.MaxUploadSizeMB <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be positive")
	}

	switch c.MediaBackend {
	case "local":
		if c.MediaRoot == "" {
			return errors.New("MEDIA_ROOT is required for the local media backend")
		}
	case "s3":
		if c.AWSBucket == "" {
			return errors.New("AWS_STORAGE_BUCKET_NAME is required for the s3 media backend")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}

	if c.CloudWatchEnabled && c.CloudWatchLogGroup == "" {
		return errors.New("CLOUDWATCH_LOG_GROUP is required when CloudWatch logging is enabled")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be changed and at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
	}

	return nil
}

// Warnings lists settings that are accepted but unsafe for the current environment.
func (c *Config) Warnings() []string {
	var out []string
	if c.IsProduction() && c.DBSSLMode == "disable" {
		out = append(out, "DB_SSLMODE is 'disable' in production")
	}
	if c.IsProduction() && slices.Contains(c.Origins(), "*") {
		out = append(out, "ALLOWED_ORIGINS allows every origin in production")
	}
	return out
}
