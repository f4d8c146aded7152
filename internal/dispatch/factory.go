package dispatch

import (
	"fmt"

	"wren/internal/config"
	"wren/internal/constants"
	"wren/internal/logger"
)

func NewSubmitter(cfg config.EngineConfig, log logger.Logger) (Submitter, error) {
	switch cfg.Mode {
	case constants.EngineModeHTTP:
		return NewHTTPSubmitter(cfg.HTTP, log), nil
	case constants.EngineModeKafka:
		return NewKafkaSubmitter(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown engine mode: %s", cfg.Mode)
	}
}
