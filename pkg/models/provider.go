package models

import "fmt"

// Provider identifies one of the supported version-control providers. The set
// is closed: adding a provider means adding a capability row and predicate
// defaults in code, not configuration.
type Provider string

const (
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
	ProviderGerrit    Provider = "gerrit"
)

// AuthScheme describes how deliveries from a provider are authenticated.
type AuthScheme string

const (
	// AuthHMACSHA256 verifies an HMAC SHA-256 digest of the raw body.
	AuthHMACSHA256 AuthScheme = "hmac-sha256"
	// AuthTokenHeader compares a shared token carried in a request header.
	AuthTokenHeader AuthScheme = "token-header"
	// AuthTokenOptional compares a token when one is configured and falls
	// back to transport-level trust when none is.
	AuthTokenOptional AuthScheme = "token-optional"
)

// Capability is the static feature row for a provider.
type Capability struct {
	Scheme AuthScheme

	// SignatureHeader carries the HMAC digest or shared token. Empty for
	// providers whose header is deployment-configurable.
	SignatureHeader string

	// EventHeader names the header carrying the provider's event type.
	// Empty when the event kind is only available inside the payload.
	EventHeader string

	SupportsSignature      bool
	SupportsCommentTrigger bool
}

var capabilities = map[Provider]Capability{
	ProviderGitHub: {
		Scheme:                 AuthHMACSHA256,
		SignatureHeader:        "X-Hub-Signature-256",
		EventHeader:            "X-GitHub-Event",
		SupportsSignature:      true,
		SupportsCommentTrigger: true,
	},
	ProviderGitLab: {
		Scheme:                 AuthTokenHeader,
		SignatureHeader:        "X-Gitlab-Token",
		EventHeader:            "X-Gitlab-Event",
		SupportsSignature:      false,
		SupportsCommentTrigger: true,
	},
	ProviderBitbucket: {
		Scheme:                 AuthHMACSHA256,
		SignatureHeader:        "X-Hub-Signature",
		EventHeader:            "X-Event-Key",
		SupportsSignature:      true,
		SupportsCommentTrigger: false,
	},
	ProviderGerrit: {
		Scheme:                 AuthTokenOptional,
		SignatureHeader:        "",
		EventHeader:            "",
		SupportsSignature:      false,
		SupportsCommentTrigger: true,
	},
}

// Providers returns the supported providers in stable order.
func Providers() []Provider {
	return []Provider{ProviderGitHub, ProviderGitLab, ProviderBitbucket, ProviderGerrit}
}

// ParseProvider validates a provider name from a route segment or config key.
func ParseProvider(name string) (Provider, error) {
	p := Provider(name)
	if _, ok := capabilities[p]; !ok {
		return "", fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// CapabilityOf returns the static capability row for p. The zero Capability
// is returned for unknown providers.
func CapabilityOf(p Provider) Capability {
	return capabilities[p]
}

func (p Provider) Valid() bool {
	_, ok := capabilities[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}
