package config

import (
	"time"

	"wren/pkg/models"
)

type Config struct {
	Server         ServerConfig
	Logging        LoggingConfig
	Providers      ProvidersConfig
	Registry       RegistryConfig
	Engine         EngineConfig
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
	Reload         ReloadConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
	MaxBodyBytes        int64         `mapstructure:"max_body_bytes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProvidersConfig holds one block per supported provider. Providers the
// deployment does not use stay disabled and get no ingress route.
type ProvidersConfig struct {
	GitHub    ProviderConfig `mapstructure:"github"`
	GitLab    ProviderConfig `mapstructure:"gitlab"`
	Bitbucket ProviderConfig `mapstructure:"bitbucket"`
	Gerrit    ProviderConfig `mapstructure:"gerrit"`
}

// ByName returns the block for a provider, nil for unknown names.
func (p *ProvidersConfig) ByName(provider models.Provider) *ProviderConfig {
	switch provider {
	case models.ProviderGitHub:
		return &p.GitHub
	case models.ProviderGitLab:
		return &p.GitLab
	case models.ProviderBitbucket:
		return &p.Bitbucket
	case models.ProviderGerrit:
		return &p.Gerrit
	default:
		return nil
	}
}

type ProviderConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Secret is the HMAC secret or shared token, depending on the
	// provider's auth scheme. Never logged.
	Secret string `mapstructure:"secret"`

	// TokenHeader overrides the header carrying the shared token for
	// providers without a fixed one (gerrit).
	TokenHeader string `mapstructure:"token_header"`

	// BaseURL roots registry keys for providers whose payloads carry bare
	// project names instead of repository URLs (gerrit).
	BaseURL string `mapstructure:"base_url"`

	// TrackedBranch is the branch whose merges trigger build pipelines.
	TrackedBranch string `mapstructure:"tracked_branch"`

	// Rules replaces the built-in classification rules when non-empty.
	Rules []RuleConfig `mapstructure:"rules"`
}

type RuleConfig struct {
	Name       string `mapstructure:"name"`
	Category   string `mapstructure:"category"`
	Expression string `mapstructure:"expression"`
}

type RegistryConfig struct {
	Endpoint  string      `mapstructure:"endpoint"`
	TimeoutMs int         `mapstructure:"timeout_ms"`
	Cache     CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled    bool        `mapstructure:"enabled"`
	TTLSeconds int         `mapstructure:"ttl_seconds"`
	LocalSize  int         `mapstructure:"local_size"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EngineConfig struct {
	Mode  string            `mapstructure:"mode"`
	HTTP  EngineHTTPConfig  `mapstructure:"http"`
	Kafka EngineKafkaConfig `mapstructure:"kafka"`
}

type EngineHTTPConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
}

type EngineKafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	RPS        float64 `mapstructure:"rps"`
	Burst      int     `mapstructure:"burst"`
	MaxClients int     `mapstructure:"max_clients"`
	MaxAge     int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

type ReloadConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// EnabledProviders lists the providers this deployment accepts deliveries
// for, in stable order.
func (c *Config) EnabledProviders() []models.Provider {
	var enabled []models.Provider
	for _, provider := range models.Providers() {
		if pc := c.Providers.ByName(provider); pc != nil && pc.Enabled {
			enabled = append(enabled, provider)
		}
	}
	return enabled
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
