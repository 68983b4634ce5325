package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
)

func newWorkflowFixture(t *testing.T, orders ...Order) (OrderWorkflowService, *memOrders, *captureNotifier, *captureEvents) {
	t.Helper()
	repo := newMemOrders(orders...)
	notifier := &captureNotifier{}
	events := &captureEvents{}
	svc, err := NewOrderWorkflowService(OrderWorkflowServiceDeps{
		Orders:   repo,
		Notifier: notifier,
		Clock:    func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) },
		Logger:   events.log,
	})
	if err != nil {
		t.Fatalf("new workflow service: %v", err)
	}
	return svc, repo, notifier, events
}

func TestOrderWorkflowFollowsTransitionTable(t *testing.T) {
	svc, _, notifier, _ := newWorkflowFixture(t, Order{ID: "ord_1", UserID: "usr_1", Status: domain.OrderStatusPlaced})
	ctx := context.Background()

	delivery := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	order, err := svc.SetStatus(ctx, SetOrderStatusCommand{OrderID: "ord_1", Status: "packing", ExpectedDelivery: &delivery})
	if err != nil {
		t.Fatalf("packing: %v", err)
	}
	if order.Status != domain.OrderStatusPacking || !order.ExpectedDelivery.Equal(delivery) {
		t.Fatalf("unexpected order %+v", order)
	}
	for _, status := range []string{"Shipped", "Out for delivery", "Delivered"} {
		if _, err := svc.SetStatus(ctx, SetOrderStatusCommand{OrderID: "ord_1", Status: status}); err != nil {
			t.Fatalf("%s: %v", status, err)
		}
	}
	if len(notifier.updated) != 4 {
		t.Fatalf("expected a notification per transition, got %d", len(notifier.updated))
	}
}

func TestOrderWorkflowRejectsBackwardsWithoutForce(t *testing.T) {
	svc, repo, notifier, events := newWorkflowFixture(t, Order{ID: "ord_1", Status: domain.OrderStatusShipped})
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, SetOrderStatusCommand{OrderID: "ord_1", Status: "Packing"})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if len(notifier.updated) != 0 {
		t.Fatalf("no notification expected on rejection")
	}

	order, err := svc.SetStatus(ctx, SetOrderStatusCommand{OrderID: "ord_1", Status: "Packing", Force: true, ActorID: "adm_1"})
	if err != nil {
		t.Fatalf("forced transition: %v", err)
	}
	if order.Status != domain.OrderStatusPacking {
		t.Fatalf("expected packing, got %s", order.Status)
	}
	if !events.has("order.status.override") {
		t.Fatalf("expected override to be logged, got %v", events.events)
	}
	stored, _ := repo.FindByID(ctx, "ord_1")
	if stored.Status != domain.OrderStatusPacking {
		t.Fatalf("override not persisted")
	}
}

func TestOrderWorkflowNeverTouchesAwaitingPayment(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(t,
		Order{ID: "ord_pending", Status: domain.OrderStatusAwaitingPayment},
		Order{ID: "ord_placed", Status: domain.OrderStatusPlaced},
	)
	ctx := context.Background()
	if _, err := svc.SetStatus(ctx, SetOrderStatusCommand{OrderID: "ord_pending", Status: "Packing", Force: true}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state leaving awaiting payment, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, SetOrderStatusCommand{OrderID: "ord_placed", Status: "Awaiting Payment", Force: true}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state entering awaiting payment, got %v", err)
	}
}

func TestOrderWorkflowValidatesInput(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(t, Order{ID: "ord_1", Status: domain.OrderStatusPlaced})
	ctx := context.Background()
	delivery := time.Now()

	cases := []struct {
		name string
		cmd  SetOrderStatusCommand
		want error
	}{
		{"unknown status", SetOrderStatusCommand{OrderID: "ord_1", Status: "Teleported", Force: true}, ErrOrderInvalidInput},
		{"delivery outside packing", SetOrderStatusCommand{OrderID: "ord_1", Status: "Shipped", ExpectedDelivery: &delivery}, ErrOrderInvalidInput},
		{"missing order", SetOrderStatusCommand{OrderID: "ord_x", Status: "Packing"}, ErrOrderNotFound},
		{"missing id", SetOrderStatusCommand{Status: "Packing"}, ErrOrderInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SetStatus(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOrderWorkflowConfirmPaymentCODOnly(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture(t,
		Order{ID: "ord_cod", PaymentMethod: domain.PaymentMethodCOD, Status: domain.OrderStatusDelivered},
		Order{ID: "ord_gw", PaymentMethod: domain.PaymentMethodRazorpay, Status: domain.OrderStatusPlaced, PaymentSettled: true},
	)
	ctx := context.Background()

	order, err := svc.ConfirmPayment(ctx, ConfirmPaymentCommand{OrderID: "ord_cod"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !order.PaymentSettled || order.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected settled with unchanged status, got %+v", order)
	}
	again, err := svc.ConfirmPayment(ctx, ConfirmPaymentCommand{OrderID: "ord_cod"})
	if err != nil || !again.PaymentSettled {
		t.Fatalf("repeat confirm should be a no-op, got %+v %v", again, err)
	}
	if _, err := svc.ConfirmPayment(ctx, ConfirmPaymentCommand{OrderID: "ord_gw"}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state for gateway order, got %v", err)
	}
}
