package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaEmailPublisherWritesKeyedMessage(t *testing.T) {
	writer := &fakeWriter{}
	publisher := &KafkaEmailPublisher{writer: writer}

	id, err := publisher.PublishEmail(context.Background(), services.EmailRequest{EventID: "evt-9", Kind: "order_updated", To: "a@example.com"})
	if err != nil {
		t.Fatalf("PublishEmail: %v", err)
	}
	if id != "evt-9" {
		t.Fatalf("expected event id as message id, got %s", id)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "evt-9" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var payload services.EmailRequest
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Kind != "order_updated" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer to be closed")
	}
}

func TestKafkaEmailPublisherPropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	publisher := &KafkaEmailPublisher{writer: &fakeWriter{err: boom}}
	if _, err := publisher.PublishEmail(context.Background(), services.EmailRequest{EventID: "e"}); !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestNewKafkaEmailPublisherValidates(t *testing.T) {
	if _, err := NewKafkaEmailPublisher(nil, "emails"); err == nil {
		t.Fatal("expected brokers error")
	}
	if _, err := NewKafkaEmailPublisher([]string{"localhost:9092"}, " "); err == nil {
		t.Fatal("expected topic error")
	}
}
