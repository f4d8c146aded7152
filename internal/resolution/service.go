// Package resolution selects the engine target for a classified delivery and
// assembles the dispatch request. Targets come exclusively from the bound
// registry projections; the package holds no target names of its own and an
// unregistered category is a configuration gap, not a fallback opportunity.
package resolution

import (
	"context"

	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

const tracerName = "router-service"

type Service struct {
	logger logger.Logger
}

func NewService(log logger.Logger) *Service {
	return &Service{logger: log}
}

func (s *Service) Resolve(ctx context.Context, classification models.ClassificationResult, params models.ParameterSet) (models.DispatchRequest, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "resolution.resolve")
	defer span.End()

	resourceID := params.Get(models.ExtensionParam("resource_id"))

	target := params.Get(models.ExtensionParam("targets." + classification.Category.String()))
	if target == "" {
		return models.DispatchRequest{}, errors.ErrNoTargetConfigured.
			WithDetail("category", classification.Category.String()).
			WithDetail("resource_id", resourceID)
	}

	request := models.DispatchRequest{
		Target:     target,
		Parameters: params.Clone(),
		Labels: map[string]string{
			models.LabelResource: resourceID,
			models.LabelCategory: classification.Category.String(),
			models.LabelBranch:   params.Get(models.BodyParam("branch")),
		},
	}

	s.logger.DebugwCtx(ctx, "dispatch target resolved",
		"target", target,
		"category", classification.Category,
		"resource_id", resourceID,
	)

	return request, nil
}
