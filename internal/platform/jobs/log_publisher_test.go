package jobs

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

func TestLogEmailPublisherRecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	publisher := NewLogEmailPublisher(zap.New(core))

	id, err := publisher.PublishEmail(context.Background(), services.EmailRequest{EventID: "evt-3", Subject: "Order placed", HTML: "<p>x</p>"})
	if err != nil {
		t.Fatalf("PublishEmail: %v", err)
	}
	if id != "evt-3" {
		t.Fatalf("unexpected id %s", id)
	}
	entries := logs.FilterMessage("email request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["html_bytes"]; got != int64(8) {
		t.Fatalf("unexpected html_bytes %v", got)
	}
}
