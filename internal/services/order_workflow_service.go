package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

// OrderWorkflowServiceDeps bundles collaborators required to construct the fulfilment workflow.
type OrderWorkflowServiceDeps struct {
	Orders   repositories.OrderRepository
	Notifier Notifier
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type orderWorkflowService struct {
	orders   repositories.OrderRepository
	notifier Notifier
	clock    func() time.Time
	logger   EventLogger
}

func NewOrderWorkflowService(deps OrderWorkflowServiceDeps) (OrderWorkflowService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order workflow: order repository is required")
	}
	return &orderWorkflowService{
		orders:   deps.Orders,
		notifier: notifierOrNop(deps.Notifier),
		clock:    utcClock(deps.Clock),
		logger:   loggerOrNop(deps.Logger),
	}, nil
}

// SetStatus moves an order along the fulfilment table. Force applies a transition outside the
// table between known statuses and is logged as an override. Awaiting Payment is never a source
// or target here.
func (s *orderWorkflowService) SetStatus(ctx context.Context, cmd SetOrderStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: orderId is required", ErrOrderInvalidInput)
	}
	target, ok := domain.ParseOrderStatus(cmd.Status)
	if !ok {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}
	if cmd.ExpectedDelivery != nil && target != domain.OrderStatusPacking {
		return Order{}, fmt.Errorf("%w: expected delivery can only be set when packing", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	current := order.Status
	if current == domain.OrderStatusAwaitingPayment || target == domain.OrderStatusAwaitingPayment {
		return Order{}, fmt.Errorf("%w: awaiting payment is settled only by payment verification", ErrOrderInvalidState)
	}
	if current == target && cmd.ExpectedDelivery == nil {
		return order, nil
	}
	if current != target && !domain.CanTransitionOrder(current, target) {
		if !cmd.Force {
			return Order{}, fmt.Errorf("%w: cannot move from %s to %s", ErrOrderInvalidState, current, target)
		}
		s.logger(ctx, "order.status.override", map[string]any{
			"orderId": order.ID,
			"from":    string(current),
			"to":      string(target),
			"actorId": cmd.ActorID,
		})
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, target, cmd.ExpectedDelivery, s.clock())
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	s.logger(ctx, "order.status.updated", map[string]any{
		"orderId": updated.ID,
		"from":    string(current),
		"to":      string(updated.Status),
		"actorId": cmd.ActorID,
	})
	s.notifier.OrderUpdated(ctx, updated)
	return updated, nil
}

// ConfirmPayment marks a cash-on-delivery order as paid without touching its status. Orders
// already settled are returned unchanged.
func (s *orderWorkflowService) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: orderId is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	if order.PaymentMethod != domain.PaymentMethodCOD {
		return Order{}, fmt.Errorf("%w: only cash on delivery payments are confirmed manually", ErrOrderInvalidState)
	}
	if order.PaymentSettled {
		return order, nil
	}
	updated, err := s.orders.MarkPaymentSettled(ctx, order.ID, s.clock())
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	s.logger(ctx, "order.payment.confirmed", map[string]any{
		"orderId": updated.ID,
		"actorId": cmd.ActorID,
	})
	return updated, nil
}
