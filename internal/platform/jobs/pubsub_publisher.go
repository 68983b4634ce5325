package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// PubSubEmailPublisher hands rendered emails to the mail worker through a Pub/Sub topic.
type PubSubEmailPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubEmailPublisher constructs a Pub/Sub backed email publisher.
func NewPubSubEmailPublisher(topic *pubsub.Topic) (*PubSubEmailPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub email publisher: topic is required")
	}
	return &PubSubEmailPublisher{topic: topic, marshal: json.Marshal}, nil
}

// PublishEmail enqueues the request and waits for the server-assigned message id.
func (p *PubSubEmailPublisher) PublishEmail(ctx context.Context, req services.EmailRequest) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub email publisher: not initialised")
	}
	data, err := p.marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal email request: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: emailAttributes(req)})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish email request: %w", err)
	}
	return id, nil
}

func emailAttributes(req services.EmailRequest) map[string]string {
	attrs := make(map[string]string)
	setAttr(attrs, "eventId", req.EventID)
	setAttr(attrs, "kind", req.Kind)
	setAttr(attrs, "orderId", req.OrderID)
	return attrs
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
