package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	pkgkafka "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/kafka"
)

// KafkaOutcomesHandler consumes realized outcome messages.
type KafkaOutcomesHandler struct {
	topic    string
	outcomes *OutcomeUseCase
	metrics  domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, outcomes *OutcomeUseCase, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, outcomes: outcomes, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, confidence, outcome, t}
func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol     string  `json:"symbol"`
		Confidence float64 `json:"confidence"`
		Outcome    string  `json:"outcome"`
		T          int64   `json:"t"` // unix ms, optional
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("outcome_unmarshal")
		return err
	}

	o := &models.SignalOutcome{
		Symbol:     m.Symbol,
		Confidence: m.Confidence,
		Outcome:    models.Outcome(m.Outcome),
	}
	if m.T > 0 {
		o.RecordedAt = time.UnixMilli(m.T)
	}
	return h.outcomes.Record(ctx, o)
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
