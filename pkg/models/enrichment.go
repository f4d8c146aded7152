package models

// EnrichmentRecord is the registry's answer for one repository: the stable
// resource identifier and the engine target configured per category. Targets
// may be partial; a missing category surfaces later as a resolution error,
// not an enrichment error.
type EnrichmentRecord struct {
	ResourceID string              `json:"resource_id"`
	Targets    map[Category]string `json:"targets"`

	// RepoKey is the normalized registry key the record was resolved under.
	RepoKey string `json:"repo_key"`

	// LookupLatencyMs measures the registry round trip. Zero for cache hits.
	LookupLatencyMs int64 `json:"lookup_latency_ms"`
}

// TargetFor returns the engine target configured for the category.
func (r *EnrichmentRecord) TargetFor(category Category) (string, bool) {
	target, ok := r.Targets[category]
	if !ok || target == "" {
		return "", false
	}
	return target, true
}
