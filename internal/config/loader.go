package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"wren/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return unmarshalAndValidate()
}

// Reload re-reads the file registered with viper and produces a fresh
// validated Config. The caller decides what happens when it fails; the
// running snapshot is never replaced with a broken one.
func Reload() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to re-read config file: %w", err)
	}
	return unmarshalAndValidate()
}

// Watch invokes onChange whenever the config file is rewritten. Must be
// called after LoadConfig has registered the file.
func Watch(onChange func()) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		onChange()
	})
	viper.WatchConfig()
}

func unmarshalAndValidate() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")
	viper.BindEnv("server.max_body_bytes", "SERVER_MAX_BODY_BYTES")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("providers.github.secret", "PROVIDERS_GITHUB_SECRET")
	viper.BindEnv("providers.gitlab.secret", "PROVIDERS_GITLAB_SECRET")
	viper.BindEnv("providers.bitbucket.secret", "PROVIDERS_BITBUCKET_SECRET")
	viper.BindEnv("providers.gerrit.secret", "PROVIDERS_GERRIT_SECRET")

	viper.BindEnv("registry.endpoint", "REGISTRY_ENDPOINT")
	viper.BindEnv("registry.timeout_ms", "REGISTRY_TIMEOUT_MS")
	viper.BindEnv("registry.cache.enabled", "REGISTRY_CACHE_ENABLED")
	viper.BindEnv("registry.cache.redis.host", "REGISTRY_CACHE_REDIS_HOST")
	viper.BindEnv("registry.cache.redis.port", "REGISTRY_CACHE_REDIS_PORT")
	viper.BindEnv("registry.cache.redis.password", "REGISTRY_CACHE_REDIS_PASSWORD")
	viper.BindEnv("registry.cache.redis.db", "REGISTRY_CACHE_REDIS_DB")

	viper.BindEnv("engine.mode", "ENGINE_MODE")
	viper.BindEnv("engine.http.endpoint", "ENGINE_HTTP_ENDPOINT")
	viper.BindEnv("engine.kafka.brokers", "ENGINE_KAFKA_BROKERS")
	viper.BindEnv("engine.kafka.topic", "ENGINE_KAFKA_TOPIC")

	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = constants.MaxWebhookBodyBytes
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Registry.TimeoutMs == 0 {
		cfg.Registry.TimeoutMs = int(constants.EnrichmentTimeout.Milliseconds())
	}
	if cfg.Registry.Cache.TTLSeconds == 0 {
		cfg.Registry.Cache.TTLSeconds = constants.DefaultCacheTTLSeconds
	}
	if cfg.Registry.Cache.LocalSize == 0 {
		cfg.Registry.Cache.LocalSize = constants.DefaultLocalCacheSize
	}

	if cfg.Engine.HTTP.TimeoutSeconds == 0 {
		cfg.Engine.HTTP.TimeoutSeconds = 10
	}
	if cfg.Engine.Mode == constants.EngineModeKafka && cfg.Engine.Kafka.Topic == "" {
		cfg.Engine.Kafka.Topic = constants.DefaultEngineTopic
	}

	for _, pc := range []*ProviderConfig{
		&cfg.Providers.GitHub,
		&cfg.Providers.GitLab,
		&cfg.Providers.Bitbucket,
		&cfg.Providers.Gerrit,
	} {
		if pc.TrackedBranch == "" {
			pc.TrackedBranch = constants.DefaultTrackedBranch
		}
	}
	if cfg.Providers.Gerrit.TokenHeader == "" {
		cfg.Providers.Gerrit.TokenHeader = defaultGerritTokenHeader
	}

	if cfg.RateLimit.RPS == 0 {
		cfg.RateLimit.RPS = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.MaxClients == 0 {
		cfg.RateLimit.MaxClients = 4096
	}
	if cfg.RateLimit.MaxAge == 0 {
		cfg.RateLimit.MaxAge = 600
	}
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("ENGINE_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Engine.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
