package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"wren/internal/config"
	"wren/internal/constants"
	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/metrics"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

// KafkaSubmitter produces dispatch requests to the engine's intake topic.
// Writes are synchronous so the webhook response only acknowledges what the
// broker durably accepted; the message key doubles as the ack token.
type KafkaSubmitter struct {
	writer *kafka.Writer
	topic  string
	logger logger.Logger
}

func NewKafkaSubmitter(cfg config.EngineKafkaConfig, log logger.Logger) *KafkaSubmitter {
	topic := cfg.Topic
	if topic == "" {
		topic = constants.DefaultEngineTopic
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}

	return &KafkaSubmitter{writer: w, topic: topic, logger: log}
}

func (s *KafkaSubmitter) Mode() string {
	return constants.EngineModeKafka
}

func (s *KafkaSubmitter) Submit(ctx context.Context, request models.DispatchRequest) (models.DispatchAck, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(err)
	}

	token := uuid.NewString()
	headers := tracing.InjectTraceContext(ctx, []kafka.Header{})

	start := time.Now()
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Topic:   s.topic,
		Key:     []byte(token),
		Value:   body,
		Headers: headers,
		Time:    time.Now(),
	})
	metrics.ObserveKafkaWriteDuration(s.topic, time.Since(start))
	metrics.ObserveDispatchDuration(constants.EngineModeKafka, time.Since(start))

	if err != nil {
		metrics.IncDispatch(constants.EngineModeKafka, "failure")
		return models.DispatchAck{}, errors.ErrDispatchFailed.WithCause(err)
	}

	metrics.IncDispatch(constants.EngineModeKafka, "success")
	metrics.IncKafkaMessagesWritten(s.topic)
	metrics.ObserveKafkaMessageSize(s.topic, len(body))

	s.logger.InfowCtx(ctx, "dispatch produced",
		"topic", s.topic,
		"target", request.Target,
		"token", token,
	)

	return models.DispatchAck{Token: token, SubmittedAt: time.Now()}, nil
}

func (s *KafkaSubmitter) Close() error {
	return s.writer.Close()
}
