package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wren/internal/config"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/models"
)

func testRequest() models.DispatchRequest {
	return models.DispatchRequest{
		Target: "github-go-app-build-default",
		Parameters: map[string]string{
			"extensions.resource_id": "widget-main",
			"body.revision":          "abc123",
			"body.branch":            "main",
		},
		Labels: map[string]string{
			models.LabelResource: "widget-main",
			models.LabelCategory: "build",
			models.LabelBranch:   "main",
		},
	}
}

func TestHTTPSubmitter_Submit_Accepted(t *testing.T) {
	var gotPath, gotContentType string
	var gotRequest models.DispatchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"run-123"}`))
	}))
	defer server.Close()

	// Trailing slash must not produce a double-slash path.
	submitter := NewHTTPSubmitter(config.EngineHTTPConfig{Endpoint: server.URL + "/"}, logger.NopLogger())

	ack, err := submitter.Submit(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "run-123", ack.Token)
	assert.False(t, ack.SubmittedAt.IsZero())
	assert.Equal(t, "/api/v1/runs", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, testRequest(), gotRequest)
}

func TestHTTPSubmitter_Submit_EngineRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(config.EngineHTTPConfig{Endpoint: server.URL}, logger.NopLogger())

	_, err := submitter.Submit(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDispatchFailed))
	assert.True(t, errors.IsDispatchError(err))
	assert.Equal(t, http.StatusBadGateway, errors.ToHTTPStatus(err))
}

func TestHTTPSubmitter_Submit_EngineUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	submitter := NewHTTPSubmitter(config.EngineHTTPConfig{Endpoint: endpoint}, logger.NopLogger())

	_, err := submitter.Submit(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDispatchFailed))
}

func TestHTTPSubmitter_Submit_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(config.EngineHTTPConfig{Endpoint: server.URL}, logger.NopLogger())

	_, err := submitter.Submit(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDispatchFailed))
}

func TestHTTPSubmitter_Submit_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"token":"late"}`))
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(config.EngineHTTPConfig{Endpoint: server.URL}, logger.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := submitter.Submit(ctx, testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDispatchFailed))
}

func TestNewSubmitter_SelectsMode(t *testing.T) {
	log := logger.NopLogger()

	httpSubmitter, err := NewSubmitter(config.EngineConfig{
		Mode: "http",
		HTTP: config.EngineHTTPConfig{Endpoint: "http://engine:8080"},
	}, log)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSubmitter{}, httpSubmitter)
	assert.Equal(t, "http", httpSubmitter.Mode())

	kafkaSubmitter, err := NewSubmitter(config.EngineConfig{
		Mode:  "kafka",
		Kafka: config.EngineKafkaConfig{Brokers: []string{"kafka:9092"}},
	}, log)
	require.NoError(t, err)
	assert.IsType(t, &KafkaSubmitter{}, kafkaSubmitter)
	assert.Equal(t, "kafka", kafkaSubmitter.Mode())
	require.NoError(t, kafkaSubmitter.Close())

	_, err = NewSubmitter(config.EngineConfig{Mode: "carrier-pigeon"}, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine mode")
}

func TestNewKafkaSubmitter_DefaultTopic(t *testing.T) {
	submitter := NewKafkaSubmitter(config.EngineKafkaConfig{Brokers: []string{"kafka:9092"}}, logger.NopLogger())
	defer submitter.Close()

	assert.Equal(t, "dispatch_requests", submitter.topic)

	named := NewKafkaSubmitter(config.EngineKafkaConfig{
		Brokers: []string{"kafka:9092"},
		Topic:   "engine_intake",
	}, logger.NopLogger())
	defer named.Close()

	assert.Equal(t, "engine_intake", named.topic)
}

type stubSubmitter struct {
	got models.DispatchRequest
	ack models.DispatchAck
	err error
}

func (s *stubSubmitter) Submit(_ context.Context, request models.DispatchRequest) (models.DispatchAck, error) {
	s.got = request
	return s.ack, s.err
}

func (s *stubSubmitter) Mode() string { return "stub" }
func (s *stubSubmitter) Close() error { return nil }

func TestService_Submit_Delegates(t *testing.T) {
	stub := &stubSubmitter{ack: models.DispatchAck{Token: "run-9", SubmittedAt: time.Now()}}
	svc := NewService(stub, logger.NopLogger())

	ack, err := svc.Submit(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "run-9", ack.Token)
	assert.Equal(t, testRequest(), stub.got)
	assert.Equal(t, "stub", svc.Mode())
	require.NoError(t, svc.Close())
}

func TestService_Submit_PropagatesFailure(t *testing.T) {
	stub := &stubSubmitter{err: errors.ErrDispatchFailed}
	svc := NewService(stub, logger.NopLogger())

	_, err := svc.Submit(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDispatchFailed))
}
