package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wren/internal/config"
	"wren/internal/constants"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/metrics"
	"wren/pkg/models"
)

// HTTPSubmitter posts dispatch requests to the engine's run endpoint and
// reads the acknowledgment token from the response.
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

func NewHTTPSubmitter(cfg config.EngineHTTPConfig, log logger.Logger) *HTTPSubmitter {
	timeout := constants.DefaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = cfg.TimeoutSeconds * time.Second
	}
	return &HTTPSubmitter{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

func (s *HTTPSubmitter) Mode() string {
	return constants.EngineModeHTTP
}

func (s *HTTPSubmitter) Submit(ctx context.Context, request models.DispatchRequest) (models.DispatchAck, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(err)
	}

	start := time.Now()
	ack, err := s.post(ctx, body)
	metrics.ObserveDispatchDuration(constants.EngineModeHTTP, time.Since(start))

	if err != nil {
		metrics.IncDispatch(constants.EngineModeHTTP, "failure")
		return models.DispatchAck{}, err
	}
	metrics.IncDispatch(constants.EngineModeHTTP, "success")

	s.logger.InfowCtx(ctx, "dispatch accepted",
		"target", request.Target,
		"token", ack.Token,
	)

	return ack, nil
}

func (s *HTTPSubmitter) post(ctx context.Context, body []byte) (models.DispatchAck, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/api/v1/runs", bytes.NewReader(body))
	if err != nil {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithDetail("status", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(fmt.Errorf("malformed engine response: %w", err))
	}
	if payload.Token == "" {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(fmt.Errorf("engine response carries no token"))
	}

	return models.DispatchAck{Token: payload.Token, SubmittedAt: time.Now()}, nil
}

func (s *HTTPSubmitter) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
