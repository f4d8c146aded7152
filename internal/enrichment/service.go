package enrichment

import (
	"context"
	"time"

	"wren/internal/config"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/metrics"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

const tracerName = "router-service"

// Service resolves a classified delivery to its registered resource: which
// stable resource the repository belongs to and which engine targets its
// categories map to. Any failure here fails the whole delivery; nothing is
// ever dispatched on guessed or stale data.
type Service struct {
	store  *config.Store
	client *RegistryClient
	cache  *RecordCache
	logger logger.Logger
}

// NewService wires the enrichment stage. cache may be nil when caching is
// disabled; every lookup then pays the registry round trip.
func NewService(store *config.Store, client *RegistryClient, cache *RecordCache, log logger.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		cache:  cache,
		logger: log,
	}
}

// Enrich maps the delivery's repository to a registry record. The
// classification is already settled; enrichment neither re-checks nor
// overrides it.
func (s *Service) Enrich(ctx context.Context, event *models.WebhookEvent, classification models.ClassificationResult) (models.EnrichmentRecord, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "enrichment.enrich")
	defer span.End()

	var baseURL string
	if pc := s.store.Current().Providers.ByName(event.Provider); pc != nil {
		baseURL = pc.BaseURL
	}

	coordinate, err := ExtractRepoCoordinate(event, baseURL)
	if err != nil {
		// A payload without a repository coordinate can never resolve;
		// redelivery would fail identically.
		return models.EnrichmentRecord{}, errors.ErrValidation.WithCause(err)
	}

	repoKey := NormalizeRepoKey(coordinate)

	if s.cache != nil {
		if record, ok := s.cache.Get(ctx, repoKey); ok {
			record.LookupLatencyMs = 0
			s.logger.DebugwCtx(ctx, "resource resolved from cache",
				"repo_key", repoKey,
				"resource_id", record.ResourceID,
			)
			return record, nil
		}
	}

	start := time.Now()
	record, err := s.client.Lookup(ctx, repoKey)
	latency := time.Since(start)

	if err != nil {
		metrics.ObserveEnrichmentLookup(lookupOutcome(err), latency)
		return models.EnrichmentRecord{}, err
	}

	record.RepoKey = repoKey
	record.LookupLatencyMs = latency.Milliseconds()
	metrics.ObserveEnrichmentLookup("success", latency)

	if s.cache != nil {
		s.cache.Put(ctx, repoKey, record)
	}

	s.logger.DebugwCtx(ctx, "resource resolved from registry",
		"repo_key", repoKey,
		"resource_id", record.ResourceID,
		"category", classification.Category.String(),
		"lookup_latency_ms", record.LookupLatencyMs,
	)

	return record, nil
}

func lookupOutcome(err error) string {
	switch {
	case errors.Is(err, errors.ErrEnrichmentTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrResourceNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}
