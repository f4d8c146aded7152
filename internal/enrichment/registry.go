package enrichment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wren/internal/config"
	"wren/internal/constants"
	"wren/internal/logger"
	"wren/pkg/circuitbreaker"
	"wren/pkg/errors"
	"wren/pkg/metrics"
	"wren/pkg/models"
)

// RegistryClient resolves repository keys against the external resource
// registry. Every call is bounded by the configured deadline and runs
// through a circuit breaker; an open breaker answers without touching the
// network.
type RegistryClient struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	breaker  *circuitbreaker.Wrapper
	logger   logger.Logger
}

func NewRegistryClient(cfg config.RegistryConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *RegistryClient {
	breakerCfg := circuitbreaker.DefaultConfig("registry")
	if cbCfg.Enabled {
		breakerCfg.MaxRequests = cbCfg.MaxRequests
		breakerCfg.Interval = cbCfg.Interval * time.Second
		breakerCfg.Timeout = cbCfg.Timeout * time.Second
		breakerCfg.ReadyToTrip = circuitbreaker.RatioTrip(cbCfg.FailureRatio, cbCfg.MinRequests)
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = constants.EnrichmentTimeout
	}

	return &RegistryClient{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		breaker:  circuitbreaker.NewWrapper(breakerCfg),
		logger:   log,
	}
}

// lookupResult distinguishes the registry's definitive answers (a record,
// or "not registered") from transport-level failures. A 404 is a valid
// answer and must not count against the breaker.
type lookupResult struct {
	found  bool
	record models.EnrichmentRecord
}

// Lookup resolves one repository key. Errors map onto the enrichment
// taxonomy: deadline → ErrEnrichmentTimeout, open breaker or transport
// failure → ErrRegistryUnavailable, unknown key → ErrResourceNotFound.
func (c *RegistryClient) Lookup(ctx context.Context, repoKey string) (models.EnrichmentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return c.fetch(ctx, repoKey)
	})
	c.breaker.RecordRequest(err == nil)

	if err != nil {
		switch {
		case circuitbreaker.IsOpenError(err):
			return models.EnrichmentRecord{}, errors.ErrRegistryUnavailable.WithCause(err)
		case stderrors.Is(err, context.DeadlineExceeded):
			return models.EnrichmentRecord{}, errors.ErrEnrichmentTimeout.WithCause(err)
		default:
			return models.EnrichmentRecord{}, errors.ErrRegistryUnavailable.WithCause(err)
		}
	}

	lookup := result.(lookupResult)
	if !lookup.found {
		return models.EnrichmentRecord{}, errors.ErrResourceNotFound.WithDetail("repo_key", repoKey)
	}

	return lookup.record, nil
}

func (c *RegistryClient) fetch(ctx context.Context, repoKey string) (lookupResult, error) {
	lookupURL := fmt.Sprintf("%s/api/v1/resources?repo=%s", c.endpoint, url.QueryEscape(repoKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return lookupResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncRegistryRequest("transport_error")
		return lookupResult{}, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.IncRegistryRequest(strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return lookupResult{found: false}, nil
	}

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return lookupResult{}, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var payload struct {
		ResourceID string            `json:"resource_id"`
		Targets    map[string]string `json:"targets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return lookupResult{}, fmt.Errorf("failed to decode registry response: %w", err)
	}

	if payload.ResourceID == "" {
		return lookupResult{}, fmt.Errorf("registry response missing resource_id")
	}

	record := models.EnrichmentRecord{
		ResourceID: payload.ResourceID,
		Targets:    make(map[models.Category]string, len(payload.Targets)),
	}
	for name, target := range payload.Targets {
		category, err := models.ParseCategory(name)
		if err != nil {
			// Forward compatibility: unknown categories are ignored, not fatal.
			c.logger.Warnw("registry returned unknown target category",
				"category", name,
			)
			continue
		}
		if target != "" {
			record.Targets[category] = target
		}
	}

	return lookupResult{found: true, record: record}, nil
}
