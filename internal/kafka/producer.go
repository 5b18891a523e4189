package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-admission/internal/logger"
	"ms-admission/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	})
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishEntryRecorded streams a recorded admission attempt. Keyed by pass number so
// one pass's attempts stay ordered within a partition.
func (p *Producer) PublishEntryRecorded(ctx context.Context, event models.AdmissionEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PassNumber),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("entry_recorded")},
		},
	}); err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", p.Topic, event.EventID)
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
