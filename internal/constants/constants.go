package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second

	// EnrichmentTimeout is the hard wall-clock budget for one registry
	// lookup, cache misses included.
	EnrichmentTimeout = 3000 * time.Millisecond
)

const (
	CacheKeyPrefixResource = "resource:"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// MaxWebhookBodyBytes caps inbound delivery bodies. Providers keep hook
	// payloads well under this; anything larger is hostile or misrouted.
	MaxWebhookBodyBytes = 1 << 20
)

const (
	DefaultCacheTTLSeconds = 300
	DefaultLocalCacheSize  = 512
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	// RecheckCommand re-triggers a review pipeline from a change comment,
	// on providers that deliver comment events.
	RecheckCommand = "/recheck"

	DefaultTrackedBranch = "main"
)

const (
	EngineModeHTTP  = "http"
	EngineModeKafka = "kafka"
)

const (
	DefaultEngineTopic = "dispatch_requests"
)
