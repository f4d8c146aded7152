package validation

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wren/internal/config"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/models"
)

func testStore(mutate func(cfg *config.Config)) *config.Store {
	cfg := &config.Config{}
	cfg.Providers.GitHub.Enabled = true
	cfg.Providers.GitHub.Secret = "github-secret"
	cfg.Providers.GitLab.Enabled = true
	cfg.Providers.GitLab.Secret = "gitlab-token"
	cfg.Providers.Bitbucket.Enabled = true
	cfg.Providers.Bitbucket.Secret = "bitbucket-secret"
	cfg.Providers.Gerrit.Enabled = true
	cfg.Providers.Gerrit.TokenHeader = "X-Gerrit-Token"

	if mutate != nil {
		mutate(cfg)
	}

	return config.NewStore(cfg)
}

func newTestService(t *testing.T, mutate func(cfg *config.Config)) *Service {
	t.Helper()
	return NewService(testStore(mutate), logger.NopLogger())
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newEvent(provider models.Provider, headers map[string]string, body []byte) *models.WebhookEvent {
	h := http.Header{}
	for key, value := range headers {
		h.Set(key, value)
	}
	return models.NewWebhookEvent("evt-1", provider, h, body)
}

func TestService_Verify_GitHub(t *testing.T) {
	body := []byte(`{"action":"closed"}`)
	validSig := signBody(body, "github-secret")

	tests := []struct {
		name      string
		signature string
		body      []byte
		wantErr   *errors.Error
	}{
		{
			name:      "valid signature with scheme prefix",
			signature: "sha256=" + validSig,
			body:      body,
		},
		{
			name:      "valid signature bare hex",
			signature: validSig,
			body:      body,
		},
		{
			name:      "tampered body",
			signature: "sha256=" + validSig,
			body:      []byte(`{"action":"opened"}`),
			wantErr:   errors.ErrInvalidSignature,
		},
		{
			name:      "wrong secret",
			signature: "sha256=" + signBody(body, "other-secret"),
			body:      body,
			wantErr:   errors.ErrInvalidSignature,
		},
		{
			name:      "malformed digest",
			signature: "sha256=not-hex",
			body:      body,
			wantErr:   errors.ErrInvalidSignature,
		},
		{
			name:      "missing header",
			signature: "",
			body:      body,
			wantErr:   errors.ErrMissingCredential,
		},
	}

	svc := newTestService(t, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.signature != "" {
				headers["X-Hub-Signature-256"] = tt.signature
			}

			err := svc.Verify(context.Background(), newEvent(models.ProviderGitHub, headers, tt.body))

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.True(t, errors.IsAuthError(err))
			assert.Equal(t, http.StatusUnauthorized, errors.ToHTTPStatus(err))
		})
	}
}

func TestService_Verify_NeverEchoesSignature(t *testing.T) {
	body := []byte(`{"action":"closed"}`)
	forged := "sha256=" + signBody(body, "attacker-guess")

	svc := newTestService(t, nil)
	err := svc.Verify(context.Background(), newEvent(models.ProviderGitHub, map[string]string{
		"X-Hub-Signature-256": forged,
	}, body))

	require.Error(t, err)
	assert.NotContains(t, err.Error(), forged)
	assert.NotContains(t, err.Error(), "github-secret")

	response := errors.ToErrorResponse(err)
	assert.Equal(t, "webhook verification failed", response["error"])
}

func TestService_Verify_GitLabToken(t *testing.T) {
	body := []byte(`{"object_kind":"merge_request"}`)
	svc := newTestService(t, nil)

	tests := []struct {
		name    string
		token   string
		wantErr *errors.Error
	}{
		{name: "valid token", token: "gitlab-token"},
		{name: "wrong token", token: "nope", wantErr: errors.ErrInvalidSignature},
		{name: "missing token", token: "", wantErr: errors.ErrMissingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.token != "" {
				headers["X-Gitlab-Token"] = tt.token
			}

			err := svc.Verify(context.Background(), newEvent(models.ProviderGitLab, headers, body))

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestService_Verify_BitbucketUsesXHubSignature(t *testing.T) {
	body := []byte(`{"eventKey":"pr:merged"}`)
	svc := newTestService(t, nil)

	err := svc.Verify(context.Background(), newEvent(models.ProviderBitbucket, map[string]string{
		"X-Hub-Signature": "sha256=" + signBody(body, "bitbucket-secret"),
	}, body))
	assert.NoError(t, err)

	err = svc.Verify(context.Background(), newEvent(models.ProviderBitbucket, map[string]string{
		"X-Hub-Signature-256": "sha256=" + signBody(body, "bitbucket-secret"),
	}, body))
	assert.Error(t, err, "signature in the wrong header must not authenticate")
}

func TestService_Verify_GerritTransportTrust(t *testing.T) {
	body := []byte(`{"type":"change-merged"}`)

	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Providers.Gerrit.Secret = ""
	})

	err := svc.Verify(context.Background(), newEvent(models.ProviderGerrit, nil, body))
	assert.NoError(t, err, "no configured token means transport-level trust")
}

func TestService_Verify_GerritConfiguredToken(t *testing.T) {
	body := []byte(`{"type":"change-merged"}`)

	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Providers.Gerrit.Secret = "gerrit-token"
	})

	err := svc.Verify(context.Background(), newEvent(models.ProviderGerrit, map[string]string{
		"X-Gerrit-Token": "gerrit-token",
	}, body))
	assert.NoError(t, err)

	err = svc.Verify(context.Background(), newEvent(models.ProviderGerrit, map[string]string{
		"X-Gerrit-Token": "wrong",
	}, body))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSignature))

	err = svc.Verify(context.Background(), newEvent(models.ProviderGerrit, nil, body))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingCredential))
}

func TestService_Verify_DisabledProviderRejected(t *testing.T) {
	body := []byte(`{}`)

	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Providers.Bitbucket.Enabled = false
	})

	err := svc.Verify(context.Background(), newEvent(models.ProviderBitbucket, map[string]string{
		"X-Hub-Signature": "sha256=" + signBody(body, "bitbucket-secret"),
	}, body))

	require.Error(t, err)
	assert.True(t, errors.IsAuthError(err))
}

func TestService_Verify_EmptySecretFailsClosed(t *testing.T) {
	body := []byte(`{}`)

	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Providers.GitHub.Secret = ""
	})

	err := svc.Verify(context.Background(), newEvent(models.ProviderGitHub, map[string]string{
		"X-Hub-Signature-256": "sha256=" + signBody(body, ""),
	}, body))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingCredential))
}
