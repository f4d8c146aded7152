// Package router runs webhook deliveries through the processing chain and
// exposes the HTTP front door. Stages execute strictly in order and the first
// error short-circuits the rest; the provider's redelivery is the only retry
// path, so every outcome maps onto the response status.
package router

import (
	"context"
	"time"

	"wren/internal/binding"
	"wren/internal/classification"
	"wren/internal/dispatch"
	"wren/internal/enrichment"
	"wren/internal/logger"
	"wren/internal/resolution"
	"wren/internal/validation"
	"wren/pkg/logging"
	"wren/pkg/metrics"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

const tracerName = "router-service"

type Chain struct {
	validator  *validation.Service
	classifier *classification.Service
	enricher   *enrichment.Service
	binder     *binding.Service
	resolver   *resolution.Service
	dispatcher *dispatch.Service
	logger     logger.Logger
}

func NewChain(
	validator *validation.Service,
	classifier *classification.Service,
	enricher *enrichment.Service,
	binder *binding.Service,
	resolver *resolution.Service,
	dispatcher *dispatch.Service,
	log logger.Logger,
) *Chain {
	return &Chain{
		validator:  validator,
		classifier: classifier,
		enricher:   enricher,
		binder:     binder,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Result is the terminal state of one processed delivery. Dispatched is false
// for discards, and the ack is only populated when it is true.
type Result struct {
	Classification models.ClassificationResult
	ResourceID     string
	Ack            models.DispatchAck
	Dispatched     bool
}

func (c *Chain) Process(ctx context.Context, event *models.WebhookEvent) (Result, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "router.process")
	defer span.End()

	ctx = logging.WithEventID(ctx, event.ID)
	ctx = logging.WithProvider(ctx, event.Provider.String())
	provider := event.Provider.String()

	if err := c.runStage(ctx, "validation", func(ctx context.Context) error {
		return c.validator.Verify(ctx, event)
	}); err != nil {
		c.failEvent(ctx, event, "auth_failed", err)
		return Result{}, err
	}

	var classified models.ClassificationResult
	if err := c.runStage(ctx, "classification", func(ctx context.Context) (err error) {
		classified, err = c.classifier.Classify(ctx, event)
		return err
	}); err != nil {
		c.failEvent(ctx, event, "invalid", err)
		return Result{}, err
	}

	if classified.Discarded() {
		metrics.IncWebhookEvent(provider, "discarded")
		c.logger.InfowCtx(ctx, "delivery discarded",
			"matched_rule", classified.MatchedRule,
		)
		return Result{Classification: classified}, nil
	}

	var record models.EnrichmentRecord
	if err := c.runStage(ctx, "enrichment", func(ctx context.Context) (err error) {
		record, err = c.enricher.Enrich(ctx, event, classified)
		return err
	}); err != nil {
		c.failEvent(ctx, event, "enrichment_failed", err)
		return Result{Classification: classified}, err
	}

	var params models.ParameterSet
	if err := c.runStage(ctx, "binding", func(ctx context.Context) (err error) {
		params, err = c.binder.Bind(ctx, event, classified, record)
		return err
	}); err != nil {
		c.failEvent(ctx, event, "binding_failed", err)
		return Result{Classification: classified}, err
	}

	var request models.DispatchRequest
	if err := c.runStage(ctx, "resolution", func(ctx context.Context) (err error) {
		request, err = c.resolver.Resolve(ctx, classified, params)
		return err
	}); err != nil {
		c.failEvent(ctx, event, "resolution_failed", err)
		return Result{Classification: classified, ResourceID: record.ResourceID}, err
	}

	var ack models.DispatchAck
	if err := c.runStage(ctx, "dispatch", func(ctx context.Context) (err error) {
		ack, err = c.dispatcher.Submit(ctx, request)
		return err
	}); err != nil {
		c.failEvent(ctx, event, "dispatch_failed", err)
		return Result{Classification: classified, ResourceID: record.ResourceID}, err
	}

	metrics.IncWebhookEvent(provider, "dispatched")
	c.logger.InfowCtx(ctx, "delivery dispatched",
		"category", classified.Category,
		"matched_rule", classified.MatchedRule,
		"resource_id", record.ResourceID,
		"target", request.Target,
		"token", ack.Token,
	)

	return Result{
		Classification: classified,
		ResourceID:     record.ResourceID,
		Ack:            ack,
		Dispatched:     true,
	}, nil
}

func (c *Chain) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "stage."+stage)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ObserveStageDuration(stage, status, time.Since(start))

	return err
}

func (c *Chain) failEvent(ctx context.Context, event *models.WebhookEvent, outcome string, err error) {
	metrics.IncWebhookEvent(event.Provider.String(), outcome)
	c.logger.ErrorwCtx(ctx, "delivery rejected",
		"outcome", outcome,
		"error", err,
	)
}
