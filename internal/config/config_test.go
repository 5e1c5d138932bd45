package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:                 tt.env,
				DBSSLMode:           tt.sslMode,
				JWTSecret:           "secure-secret-at-least-32-chars-long",
				DBPassword:          "secure-password",
				Port:                "8080",
				ReadHistoryCapacity: 100,
				RedisURL:            "redis://localhost:6379",
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := Config{
		Env:        "production",
		Port:       "8080",
		DBSSLMode:  "require",
		DBPassword: "secure-password",
		JWTSecret:  defaultJWTSecret,
	}
	assert.ErrorContains(t, c.Validate(), "changed from the default")

	c.JWTSecret = "short"
	assert.ErrorContains(t, c.Validate(), "at least 32 characters")

	c.JWTSecret = "secure-secret-at-least-32-chars-long"
	c.DBPassword = "password"
	assert.ErrorContains(t, c.Validate(), "DB_PASSWORD")
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	c := &Config{
		Port:                "http",
		JWTSecret:           "x",
		ReadHistoryCapacity: -1,
		TracingSamplerRatio: 1.5,
		LogLevel:            "verbose",
	}
	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"PORT", "READ_HISTORY_CAPACITY", "TRACING_SAMPLER_RATIO", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), want)
	}

	ok := &Config{Port: "8375", JWTSecret: "x", TracingSamplerRatio: 0.2, LogLevel: "debug"}
	assert.NoError(t, ok.Validate())
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer viper.Reset()

	defer os.Unsetenv("LOG_LEVEL")

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("LOG_LEVEL", " DEBUG ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 100, c.ReadHistoryCapacity)
	assert.Equal(t, "8375", c.Port)
	assert.False(t, c.IsProduction())
}

func TestConfig_AdminEmailList(t *testing.T) {
	c := &Config{AdminEmails: " Admin@Example.ac.jp, ,staff@example.ac.jp "}
	assert.Equal(t, []string{"admin@example.ac.jp", "staff@example.ac.jp"}, c.AdminEmailList())
	assert.Empty(t, (&Config{}).AdminEmailList())
}
