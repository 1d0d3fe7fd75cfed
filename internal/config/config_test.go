package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:             "development",
		Port:            "8080",
		JWTSecret:       "secure-secret-at-least-32-chars-long",
		DBPassword:      "secure-password",
		DBSSLMode:       "require",
		MediaBackend:    "local",
		MediaRoot:       "./media",
		MaxUploadSizeMB: 10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero upload size", func(c *Config) { c.MaxUploadSizeMB = 0 }, true},
		{"unknown media backend", func(c *Config) { c.MediaBackend = "ftp" }, true},
		{"s3 without bucket", func(c *Config) { c.MediaBackend = "s3" }, true},
		{"s3 with bucket", func(c *Config) { c.MediaBackend = "s3"; c.AWSBucket = "blog-media" }, false},
		{"cloudwatch without group", func(c *Config) { c.CloudWatchEnabled = true }, true},
		{"production with default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"production with default db password", func(c *Config) { c.Env = "prod"; c.DBPassword = "password" }, true},
		{"production hardened", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "local", c.MediaBackend)
	assert.Equal(t, "/media/", c.MediaURL)
	assert.Equal(t, "BlogLogs", c.CloudWatchLogGroup)
	assert.Equal(t, "PostCreation", c.CloudWatchCreateStream)
	assert.Equal(t, "PostCreationError", c.CloudWatchErrorStream)
	assert.False(t, c.CloudWatchEnabled)
	assert.Equal(t, time.Duration(0), c.CloudWatchTimeout)
	assert.Equal(t, int64(10*1024*1024), c.MaxUploadBytes())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("MEDIA_URL", "/uploads")
	t.Setenv("CLOUDWATCH_ENABLED", "true")
	t.Setenv("CLOUDWATCH_TIMEOUT", "3s")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "/uploads/", c.MediaURL)
	assert.True(t, c.CloudWatchEnabled)
	assert.Equal(t, 3*time.Second, c.CloudWatchTimeout)
}

func TestConfig_Origins(t *testing.T) {
	c := &Config{AllowedOrigins: "http://a.test, http://b.test,,"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Origins())
}

func TestConfig_DSN(t *testing.T) {
	c := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "blog", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=blog port=5432 sslmode=disable TimeZone=UTC", c.DSN())
}

func TestConfig_Warnings(t *testing.T) {
	c := validConfig()
	c.AllowedOrigins = "*"
	c.DBSSLMode = "disable"
	assert.Empty(t, c.Warnings())

	c.Env = "production"
	assert.Equal(t, []string{
		"DB_SSLMODE is 'disable' in production",
		"ALLOWED_ORIGINS allows every origin in production",
	}, c.Warnings())
	assert.NoError(t, c.Validate())

	c.DBSSLMode = "require"
	c.AllowedOrigins = "https://blog.example"
	assert.Empty(t, c.Warnings())
}
