package repository

import (
	"context"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	pkgkafka "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/kafka"
)

// KafkaResultPublisher implements ResultPublisher for Kafka. Results are
// keyed by symbol so downstream consumers see per-instrument ordering.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaResultPublisher creates a Kafka publisher.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) domrepo.ResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.ConfidenceResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Symbol), map[string]interface{}{
		"symbol":     r.Symbol,
		"t":          r.Timestamp.UnixMilli(),
		"confidence": r.FinalConfidence,
		"bayesian":   r.BayesianConfidence,
		"lower":      r.UncertaintyLower,
		"upper":      r.UncertaintyUpper,
		"regime":     string(r.Regime.Type),
		"quality":    r.Quality.WeightedScore(),
		"patterns":   patternNames(r.Matches),
	})
}

func patternNames(matches []models.PatternMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Name
	}
	return out
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
