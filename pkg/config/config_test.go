package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
dataset:
  source: file
  path: prices.csv
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "info", c.Logger.Level)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, "agri.refresh", c.Kafka.RefreshTopic)
	assert.True(t, c.RateLimit.Enabled)
	assert.Equal(t, 10, c.RateLimit.Burst)
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
metrics:
  enabled: false
ratelimit:
  enabled: false
dataset:
  path: prices.csv
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.Metrics.Enabled)
	assert.False(t, c.RateLimit.Enabled)
}

func TestValidateCrossFields(t *testing.T) {
	cases := map[string]string{
		"file without path": `
dataset:
  source: file
`,
		"http without url": `
dataset:
  source: http
`,
		"unknown source": `
dataset:
  source: ftp
  path: x
`,
		"llm without key": `
dataset:
  path: x
llm:
  enabled: true
`,
		"kafka without brokers": `
dataset:
  path: x
kafka:
  enabled: true
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := read("")
	require.NoError(t, err)

	env := map[string]string{
		"AGRI_DATASET_SOURCE": "sqlite",
		"AGRI_DATASET_DSN":    "file:prices.db",
		"AGRI_KAFKA_ENABLED":  "true",
		"AGRI_KAFKA_BROKERS":  "k1:9092, k2:9092,",
		"AGRI_PORT":           "9090",
		"GEMINI_API_KEY":      "secret",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	require.NoError(t, c.applyEnv(lookup))

	assert.Equal(t, "sqlite", c.Dataset.Source)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "secret", c.LLM.APIKey)
	require.NoError(t, c.Validate())
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	c, err := read("")
	require.NoError(t, err)
	lookup := func(k string) (string, bool) {
		if k == "AGRI_PORT" {
			return "eighty", true
		}
		return "", false
	}
	assert.Error(t, c.applyEnv(lookup))
}
