package enrichment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"wren/internal/config"
	"wren/internal/constants"
	"wren/internal/logger"
	"wren/pkg/metrics"
	"wren/pkg/models"
)

// RecordCache is the positive-only, two-tier cache in front of the
// registry: an in-process expirable LRU, then an optional shared Redis
// tier. Only successful lookups are stored, so a missing or broken
// registration is re-checked on every delivery. Cache trouble degrades to
// a registry round trip, never to an event failure.
type RecordCache struct {
	local  *expirable.LRU[string, models.EnrichmentRecord]
	shared *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRecordCache builds the cache tiers. sharedClient may be nil, leaving
// the in-process tier on its own.
func NewRecordCache(cfg config.CacheConfig, sharedClient *redis.Client, log logger.Logger) *RecordCache {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	return &RecordCache{
		local:  expirable.NewLRU[string, models.EnrichmentRecord](cfg.LocalSize, nil, ttl),
		shared: sharedClient,
		ttl:    ttl,
		logger: log,
	}
}

func (c *RecordCache) Get(ctx context.Context, repoKey string) (models.EnrichmentRecord, bool) {
	if record, ok := c.local.Get(repoKey); ok {
		metrics.IncEnrichmentCache("local", "hit")
		return record, true
	}
	metrics.IncEnrichmentCache("local", "miss")

	if c.shared == nil {
		return models.EnrichmentRecord{}, false
	}

	val, err := c.shared.Get(ctx, constants.CacheKeyPrefixResource+repoKey).Result()
	if err == redis.Nil {
		metrics.IncEnrichmentCache("shared", "miss")
		return models.EnrichmentRecord{}, false
	}
	if err != nil {
		metrics.IncEnrichmentCache("shared", "error")
		c.logger.WarnwCtx(ctx, "shared cache read failed, falling through to registry",
			"error", err,
		)
		return models.EnrichmentRecord{}, false
	}

	var record models.EnrichmentRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		metrics.IncEnrichmentCache("shared", "error")
		c.logger.WarnwCtx(ctx, "shared cache entry corrupt, falling through to registry",
			"error", err,
		)
		return models.EnrichmentRecord{}, false
	}

	metrics.IncEnrichmentCache("shared", "hit")
	c.local.Add(repoKey, record)
	return record, true
}

// Put stores a successful lookup in both tiers. The stored copy carries no
// lookup latency; hits report zero by contract.
func (c *RecordCache) Put(ctx context.Context, repoKey string, record models.EnrichmentRecord) {
	record.LookupLatencyMs = 0
	c.local.Add(repoKey, record)

	if c.shared == nil {
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		c.logger.WarnwCtx(ctx, "failed to encode record for shared cache",
			"error", err,
		)
		return
	}

	if err := c.shared.Set(ctx, constants.CacheKeyPrefixResource+repoKey, payload, c.ttl).Err(); err != nil {
		metrics.IncEnrichmentCache("shared", "error")
		c.logger.WarnwCtx(ctx, "shared cache write failed",
			"error", err,
		)
	}
}
