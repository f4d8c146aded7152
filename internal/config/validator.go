package config

import (
	"fmt"
	"strings"

	"wren/internal/constants"
	"wren/pkg/models"
)

const defaultGerritTokenHeader = "X-Gerrit-Token"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		errors = append(errors, err)
	}

	if err := validateProviders(&cfg.Providers); err != nil {
		errors = append(errors, err)
	}

	if err := validateRegistry(cfg.Registry); err != nil {
		errors = append(errors, err)
	}

	if err := validateEngine(cfg.Engine); err != nil {
		errors = append(errors, err)
	}

	if err := validateRateLimit(cfg.RateLimit); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	if cfg.MaxBodyBytes <= 0 {
		return &ValidationError{
			Field:   "server.max_body_bytes",
			Message: "max body size must be positive",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(cfg.Level)] {
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s (valid: debug, info, warn, error)", cfg.Level),
		}
	}

	if cfg.Format != "json" && cfg.Format != "console" {
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format: %s (valid: json, console)", cfg.Format),
		}
	}

	return nil
}

func validateProviders(cfg *ProvidersConfig) error {
	anyEnabled := false

	for _, provider := range models.Providers() {
		pc := cfg.ByName(provider)
		if !pc.Enabled {
			continue
		}
		anyEnabled = true

		prefix := "providers." + provider.String()

		// Providers whose auth scheme requires a credential refuse to start
		// without one. An unset secret would silently accept forged
		// deliveries, so the gap is surfaced at load time instead.
		capability := models.CapabilityOf(provider)
		if capability.Scheme != models.AuthTokenOptional && pc.Secret == "" {
			return &ValidationError{
				Field:   prefix + ".secret",
				Message: "secret is required for enabled provider",
			}
		}

		if provider == models.ProviderGerrit {
			if pc.BaseURL == "" {
				return &ValidationError{
					Field:   prefix + ".base_url",
					Message: "base URL is required to derive repository keys",
				}
			}
			if !strings.HasPrefix(pc.BaseURL, "http://") && !strings.HasPrefix(pc.BaseURL, "https://") {
				return &ValidationError{
					Field:   prefix + ".base_url",
					Message: "base URL must start with http:// or https://",
				}
			}
		}

		if err := validateRules(prefix, pc.Rules); err != nil {
			return err
		}
	}

	if !anyEnabled {
		return &ValidationError{
			Field:   "providers",
			Message: "at least one provider must be enabled",
		}
	}

	return nil
}

func validateRules(prefix string, rules []RuleConfig) error {
	for i, rule := range rules {
		field := fmt.Sprintf("%s.rules[%d]", prefix, i)

		if rule.Name == "" {
			return &ValidationError{
				Field:   field + ".name",
				Message: "rule name is required",
			}
		}

		if _, err := models.ParseCategory(rule.Category); err != nil {
			return &ValidationError{
				Field:   field + ".category",
				Message: fmt.Sprintf("invalid category: %s (valid: build, review)", rule.Category),
			}
		}

		if strings.TrimSpace(rule.Expression) == "" {
			return &ValidationError{
				Field:   field + ".expression",
				Message: "rule expression is required",
			}
		}
	}

	return nil
}

func validateRegistry(cfg RegistryConfig) error {
	if cfg.Endpoint == "" {
		return &ValidationError{
			Field:   "registry.endpoint",
			Message: "registry endpoint is required",
		}
	}

	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return &ValidationError{
			Field:   "registry.endpoint",
			Message: "registry endpoint must start with http:// or https://",
		}
	}

	if cfg.TimeoutMs <= 0 {
		return &ValidationError{
			Field:   "registry.timeout_ms",
			Message: "timeout must be positive",
		}
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.TTLSeconds <= 0 {
			return &ValidationError{
				Field:   "registry.cache.ttl_seconds",
				Message: "TTL must be positive when caching is enabled",
			}
		}

		if cfg.Cache.LocalSize <= 0 {
			return &ValidationError{
				Field:   "registry.cache.local_size",
				Message: "local cache size must be positive when caching is enabled",
			}
		}

		if cfg.Cache.Redis.Host != "" || cfg.Cache.Redis.Port > 0 {
			if err := validateRedis(cfg.Cache.Redis); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "registry.cache.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "registry.cache.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateEngine(cfg EngineConfig) error {
	if cfg.Mode == "" {
		return &ValidationError{
			Field:   "engine.mode",
			Message: "engine mode is required",
		}
	}

	switch cfg.Mode {
	case constants.EngineModeHTTP:
		return validateEngineHTTP(cfg.HTTP)
	case constants.EngineModeKafka:
		return validateEngineKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "engine.mode",
			Message: fmt.Sprintf("unknown engine mode: %s (supported: http, kafka)", cfg.Mode),
		}
	}
}

func validateEngineHTTP(cfg EngineHTTPConfig) error {
	if cfg.Endpoint == "" {
		return &ValidationError{
			Field:   "engine.http.endpoint",
			Message: "engine endpoint is required in http mode",
		}
	}

	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return &ValidationError{
			Field:   "engine.http.endpoint",
			Message: "engine endpoint must start with http:// or https://",
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "engine.http.timeout_seconds",
			Message: "timeout must be positive",
		}
	}

	return nil
}

func validateEngineKafka(cfg EngineKafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "engine.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("engine.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Topic == "" {
		return &ValidationError{
			Field:   "engine.kafka.topic",
			Message: "Kafka topic is required",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RPS <= 0 {
		return &ValidationError{
			Field:   "rate_limit.rps",
			Message: "requests per second must be positive",
		}
	}

	if cfg.Burst <= 0 {
		return &ValidationError{
			Field:   "rate_limit.burst",
			Message: "burst must be positive",
		}
	}

	if cfg.MaxClients <= 0 {
		return &ValidationError{
			Field:   "rate_limit.max_clients",
			Message: "max clients must be positive",
		}
	}

	return nil
}
