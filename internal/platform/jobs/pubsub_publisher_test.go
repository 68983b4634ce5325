package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

func TestPubSubEmailPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "shop-test",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-emails")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubEmailPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubEmailPublisher: %v", err)
	}

	req := services.EmailRequest{
		EventID:  "evt-1",
		Kind:     "order_placed",
		OrderID:  "ord_1",
		To:       "buyer@example.com",
		Subject:  "Order placed",
		HTML:     "<p>Thanks</p>",
		Text:     "Thanks",
		QueuedAt: time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC),
	}
	if _, err := publisher.PublishEmail(ctx, req); err != nil {
		t.Fatalf("PublishEmail: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload services.EmailRequest
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.To != req.To || payload.Subject != req.Subject || payload.EventID != req.EventID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["orderId"]; attr != "ord_1" {
		t.Fatalf("expected orderId attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["to"]; ok {
		t.Fatalf("recipient must not be copied into attributes")
	}
}

func TestNewPubSubEmailPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubEmailPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
