package dispatch

import (
	"context"

	"wren/internal/logger"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

const tracerName = "router-service"

type Service struct {
	submitter Submitter
	logger    logger.Logger
}

func NewService(submitter Submitter, log logger.Logger) *Service {
	return &Service{
		submitter: submitter,
		logger:    log,
	}
}

func (s *Service) Submit(ctx context.Context, request models.DispatchRequest) (models.DispatchAck, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "dispatch.submit")
	defer span.End()

	return s.submitter.Submit(ctx, request)
}

func (s *Service) Mode() string {
	return s.submitter.Mode()
}

func (s *Service) Close() error {
	return s.submitter.Close()
}
