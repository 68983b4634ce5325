package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmailPublisher writes email requests to a Kafka topic keyed by event id.
type KafkaEmailPublisher struct {
	writer messageWriter
}

// NewKafkaEmailPublisher builds a writer for the given brokers and topic.
func NewKafkaEmailPublisher(brokers []string, topic string) (*KafkaEmailPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka email publisher: brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka email publisher: topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaEmailPublisher{writer: writer}, nil
}

// PublishEmail writes one message and returns the event id as the message id.
func (p *KafkaEmailPublisher) PublishEmail(ctx context.Context, req services.EmailRequest) (string, error) {
	if p == nil || p.writer == nil {
		return "", errors.New("kafka email publisher: not initialised")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal email request: %w", err)
	}

	headers := make([]kafka.Header, 0, 3)
	for key, value := range emailAttributes(req) {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	msg := kafka.Message{
		Key:     []byte(req.EventID),
		Value:   data,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("publish email request: %w", err)
	}
	return req.EventID, nil
}

// Close flushes pending writes.
func (p *KafkaEmailPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
