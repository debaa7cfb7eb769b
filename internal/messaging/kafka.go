package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/config"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

const writeTimeout = 10 * time.Second

// AuditSink publishes one audit record per recommendation invocation to
// Kafka. Callers treat writes as fire-and-forget; a broker outage must
// never fail a recommendation.
type AuditSink struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewAuditSink(cfg *config.Config, logger *logrus.Logger) *AuditSink {
	return &AuditSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.Topics.RecommendationAudit,
			Balancer:     &kafka.Hash{}, // key by user for per-user ordering
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		logger: logger,
	}
}

func (s *AuditSink) Write(ctx context.Context, record *models.AuditRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(record.UserID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(record.Kind)},
			{Key: "timestamp", Value: []byte(record.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(writeCtx, message); err != nil {
		return fmt.Errorf("failed to publish audit record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": record.UserID,
		"kind":    record.Kind,
	}).Debug("Audit record published")

	return nil
}

func (s *AuditSink) Close() error {
	return s.writer.Close()
}
