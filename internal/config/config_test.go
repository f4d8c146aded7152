package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wren/pkg/models"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

const minimalConfig = `
server:
  port: 8080

providers:
  github:
    enabled: true
    secret: test-secret

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`

func TestLoadConfig_Minimal(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Providers.GitHub.Enabled)
	assert.Equal(t, "test-secret", cfg.Providers.GitHub.Secret)
	assert.False(t, cfg.Providers.GitLab.Enabled)
	assert.Equal(t, "http://registry:8081", cfg.Registry.Endpoint)
	assert.Equal(t, "http", cfg.Engine.Mode)
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 3000, cfg.Registry.TimeoutMs)
	assert.Equal(t, 300, cfg.Registry.Cache.TTLSeconds)
	assert.Equal(t, "main", cfg.Providers.GitHub.TrackedBranch)
	assert.Equal(t, "X-Gerrit-Token", cfg.Providers.Gerrit.TokenHeader)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
}

func TestLoadConfig_SecretFromEnv(t *testing.T) {
	t.Setenv("PROVIDERS_GITLAB_SECRET", "env-token")

	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  gitlab:
    enabled: true

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Providers.GitLab.Secret)
}

func TestLoadConfig_KafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("ENGINE_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  github:
    enabled: true
    secret: test-secret

registry:
  endpoint: http://registry:8081

engine:
  mode: kafka
  kafka:
    brokers:
      - localhost:9092
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Engine.Kafka.Brokers)
	assert.Equal(t, "dispatch_requests", cfg.Engine.Kafka.Topic)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateStatic_RejectsEnabledProviderWithoutSecret(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  github:
    enabled: true

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.github.secret")
}

func TestValidateStatic_AllowsGerritWithoutSecret(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  gerrit:
    enabled: true
    base_url: https://gerrit.example.com

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Providers.Gerrit.Enabled)
	assert.Empty(t, cfg.Providers.Gerrit.Secret)
}

func TestValidateStatic_RejectsGerritWithoutBaseURL(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  gerrit:
    enabled: true

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.gerrit.base_url")
}

func TestValidateStatic_RejectsUnknownEngineMode(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  github:
    enabled: true
    secret: test-secret

registry:
  endpoint: http://registry:8081

engine:
  mode: carrier-pigeon
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.mode")
}

func TestValidateStatic_RejectsNoEnabledProviders(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  github:
    enabled: false

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one provider")
}

func TestValidateStatic_RejectsBadRuleCategory(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 8080

providers:
  github:
    enabled: true
    secret: test-secret
    rules:
      - name: custom
        category: deploy
        expression: "event == 'push'"

registry:
  endpoint: http://registry:8081

engine:
  mode: http
  http:
    endpoint: http://engine:8082
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")
}

func TestConfig_EnabledProviders(t *testing.T) {
	cfg := &Config{}
	cfg.Providers.GitHub.Enabled = true
	cfg.Providers.Gerrit.Enabled = true

	enabled := cfg.EnabledProviders()

	assert.Equal(t, []models.Provider{models.ProviderGitHub, models.ProviderGerrit}, enabled)
}

func TestStore_CurrentAfterSwap(t *testing.T) {
	first := &Config{}
	first.Server.Port = 8080

	store := NewStore(first)
	assert.Equal(t, 8080, store.Current().Server.Port)

	second := &Config{}
	second.Server.Port = 9090
	store.current.Store(second)

	assert.Equal(t, 9090, store.Current().Server.Port)
}
