package repository

import (
	"context"
	"fmt"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/domain/repository"
	pkgkafka "PriceLens/pkg/kafka"
)

// KafkaEventPublisher sends prediction and training events as JSON.
type KafkaEventPublisher struct {
	producer         *pkgkafka.Producer
	predictionsTopic string
	trainingTopic    string
}

var _ repository.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(p *pkgkafka.Producer, predictionsTopic, trainingTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, predictionsTopic: predictionsTopic, trainingTopic: trainingTopic}
}

// PublishPrediction keys by model so a model's events stay ordered.
func (p *KafkaEventPublisher) PublishPrediction(ctx context.Context, ev *models.PredictionEvent) error {
	if err := p.producer.Publish(ctx, p.predictionsTopic, []byte(ev.Model), ev); err != nil {
		return fmt.Errorf("publish prediction: %w", err)
	}
	return nil
}

type scoreEvent struct {
	RunID string `json:"run_id"`
	models.ModelScore
}

// PublishTraining writes the report keyed by run id, followed by one score
// event per model keyed by model name, in a single batch.
func (p *KafkaEventPublisher) PublishTraining(ctx context.Context, report *models.TrainingReport) error {
	msgs := make([]pkgkafka.Message, 0, len(report.Scores)+1)
	msgs = append(msgs, pkgkafka.Message{Key: []byte(report.RunID), Value: report})
	for _, sc := range report.Scores {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(sc.Model),
			Value: scoreEvent{RunID: report.RunID, ModelScore: sc},
		})
	}
	if err := p.producer.PublishBatch(ctx, p.trainingTopic, msgs); err != nil {
		return fmt.Errorf("publish training report: %w", err)
	}
	return nil
}

// Close is a no-op; the producer is owned by the application and closed on shutdown.
func (p *KafkaEventPublisher) Close() error { return nil }

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishPrediction(context.Context, *models.PredictionEvent) error { return nil }
func (NopPublisher) PublishTraining(context.Context, *models.TrainingReport) error    { return nil }
func (NopPublisher) Close() error                                                     { return nil }
