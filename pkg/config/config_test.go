package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	BaseURL string        `env:"TEST_CFG_BASE_URL" envDefault:"http://localhost"`
	Timeout time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"15s"`
	Brokers []string      `env:"TEST_CFG_BROKERS" envDefault:"a:1,b:2" envSeparator:","`
	Enabled bool          `env:"TEST_CFG_ENABLED" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Brokers)
	assert.False(t, cfg.Enabled)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_TIMEOUT", "2m")
	t.Setenv("TEST_CFG_ENABLED", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.True(t, cfg.Enabled)
}

func TestLoadFrom_UsesGivenMap(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{
		"TEST_CFG_BASE_URL": "https://upstream.example.com/api/v1",
		"TEST_CFG_BROKERS":  "kafka:9092",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://upstream.example.com/api/v1", cfg.BaseURL)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Brokers)
	assert.Equal(t, 8080, cfg.Port)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := LoadFrom(&cfg, map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidDuration(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_TIMEOUT": "soon"})

	require.Error(t, err)
}
