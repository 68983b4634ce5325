package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestWrapErrorClassification(t *testing.T) {
	notFound := WrapError("orders.find", mongo.ErrNoDocuments)
	var repoErr *Error
	if !errors.As(notFound, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found classification, got %v", notFound)
	}
	if !errors.Is(notFound, mongo.ErrNoDocuments) {
		t.Fatalf("expected wrapped driver error")
	}

	dup := WrapError("users.insert", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}})
	if !errors.As(dup, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict classification, got %v", dup)
	}

	if err := WrapError("x", context.Canceled); !errors.Is(err, context.Canceled) || errors.As(err, &repoErr) {
		t.Fatalf("context errors must pass through, got %v", err)
	}

	plain := WrapError("x", fmt.Errorf("boom"))
	if !errors.As(plain, &repoErr) || repoErr.IsNotFound() || repoErr.IsConflict() || repoErr.IsUnavailable() {
		t.Fatalf("unexpected classification for plain error: %#v", plain)
	}

	if WrapError("x", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestConnectValidatesConfig(t *testing.T) {
	if _, err := Connect(context.Background(), Config{Database: "shop"}); err == nil {
		t.Fatal("expected uri error")
	}
	if _, err := Connect(context.Background(), Config{URI: "mongodb://localhost:27017"}); err == nil {
		t.Fatal("expected database error")
	}
}
