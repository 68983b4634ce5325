package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/storage"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/textutil"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const (
	returnIDPrefix  = "rtn_"
	returnReasonMax = 2000
)

// ReturnServiceDeps bundles collaborators required to construct the return workflow.
type ReturnServiceDeps struct {
	Returns     repositories.ReturnRepository
	Orders      repositories.OrderRepository
	Images      ImageUploader
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type returnService struct {
	returns repositories.ReturnRepository
	orders  repositories.OrderRepository
	images  ImageUploader
	clock   func() time.Time
	newID   func() string
	logger  EventLogger
}

func NewReturnService(deps ReturnServiceDeps) (ReturnService, error) {
	if deps.Returns == nil {
		return nil, errors.New("return service: return repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("return service: order repository is required")
	}
	return &returnService{
		returns: deps.Returns,
		orders:  deps.Orders,
		images:  deps.Images,
		clock:   utcClock(deps.Clock),
		newID:   idGenerator(deps.IDGenerator),
		logger:  loggerOrNop(deps.Logger),
	}, nil
}

// Create files a pending request for a delivered order owned by the caller. An order holds at
// most one request that has not been rejected.
func (s *returnService) Create(ctx context.Context, cmd CreateReturnCommand) (ReturnRequest, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if userID == "" || orderID == "" {
		return ReturnRequest{}, fmt.Errorf("%w: orderId is required", ErrReturnInvalidInput)
	}
	reason := textutil.PlainText(cmd.Reason, returnReasonMax)
	if reason == "" {
		return ReturnRequest{}, fmt.Errorf("%w: reason is required", ErrReturnInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return ReturnRequest{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	if order.UserID != userID {
		return ReturnRequest{}, fmt.Errorf("%w: order belongs to another user", ErrReturnForbidden)
	}
	if order.Status != domain.OrderStatusDelivered {
		return ReturnRequest{}, fmt.Errorf("%w: only delivered orders can be returned", ErrReturnInvalidState)
	}

	existing, err := s.returns.ListByOrder(ctx, orderID)
	if err != nil {
		return ReturnRequest{}, mapRepositoryError(err, nil, nil)
	}
	for _, r := range existing {
		if r.Active() {
			return ReturnRequest{}, fmt.Errorf("%w: request %s is %s", ErrReturnConflict, r.ID, r.Status)
		}
	}

	images, err := uploadImages(ctx, s.images, storage.PurposeReturnImage,
		storage.PathParams{OrderID: orderID}, cmd.Images, s.newID, ErrReturnInvalidInput)
	if err != nil {
		return ReturnRequest{}, err
	}
	if images == nil {
		images = []string{}
	}

	now := s.clock()
	request := ReturnRequest{
		ID:        returnIDPrefix + s.newID(),
		OrderID:   orderID,
		UserID:    userID,
		Reason:    reason,
		Images:    images,
		Status:    domain.ReturnStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.returns.Create(ctx, request); err != nil {
		return ReturnRequest{}, mapRepositoryError(err, nil, ErrReturnConflict)
	}
	s.logger(ctx, "return.created", map[string]any{
		"returnId": request.ID,
		"orderId":  orderID,
		"userId":   userID,
		"images":   len(images),
	})
	return request, nil
}

// List returns every request for staff and only the caller's own otherwise.
func (s *returnService) List(ctx context.Context, viewer Viewer) ([]ReturnRequest, error) {
	var (
		requests []ReturnRequest
		err      error
	)
	if viewer.IsStaff() {
		requests, err = s.returns.ListAll(ctx)
	} else {
		if strings.TrimSpace(viewer.UserID) == "" {
			return nil, fmt.Errorf("%w: user id is required", ErrReturnInvalidInput)
		}
		requests, err = s.returns.ListByUser(ctx, viewer.UserID)
	}
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	if requests == nil {
		requests = []ReturnRequest{}
	}
	return requests, nil
}

// ListByOrder returns the requests filed for an order. Users may only read their own orders.
func (s *returnService) ListByOrder(ctx context.Context, viewer Viewer, orderID string) ([]ReturnRequest, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", ErrReturnInvalidInput)
	}
	if !viewer.IsStaff() {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, mapRepositoryError(err, ErrOrderNotFound, nil)
		}
		if order.UserID != viewer.UserID {
			return nil, fmt.Errorf("%w: order belongs to another user", ErrReturnForbidden)
		}
	}
	requests, err := s.returns.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	if requests == nil {
		requests = []ReturnRequest{}
	}
	return requests, nil
}

// UpdateStatus applies a transition from the return table, or any transition between known
// statuses when forced.
func (s *returnService) UpdateStatus(ctx context.Context, cmd UpdateReturnStatusCommand) (ReturnRequest, error) {
	requestID := strings.TrimSpace(cmd.RequestID)
	if requestID == "" {
		return ReturnRequest{}, fmt.Errorf("%w: request id is required", ErrReturnInvalidInput)
	}
	target, ok := domain.ParseReturnStatus(cmd.Status)
	if !ok {
		return ReturnRequest{}, fmt.Errorf("%w: unknown status %q", ErrReturnInvalidInput, cmd.Status)
	}
	request, err := s.returns.FindByID(ctx, requestID)
	if err != nil {
		return ReturnRequest{}, mapRepositoryError(err, ErrReturnNotFound, nil)
	}
	if request.Status == target {
		return request, nil
	}
	if !domain.CanTransitionReturn(request.Status, target) {
		if !cmd.Force {
			return ReturnRequest{}, fmt.Errorf("%w: cannot move from %s to %s", ErrReturnInvalidState, request.Status, target)
		}
		s.logger(ctx, "return.status.override", map[string]any{
			"returnId": request.ID,
			"from":     string(request.Status),
			"to":       string(target),
			"actorId":  cmd.ActorID,
		})
	}
	updated, err := s.returns.UpdateStatus(ctx, request.ID, target, s.clock())
	if err != nil {
		return ReturnRequest{}, mapRepositoryError(err, ErrReturnNotFound, ErrReturnConflict)
	}
	s.logger(ctx, "return.status.updated", map[string]any{
		"returnId": updated.ID,
		"from":     string(request.Status),
		"to":       string(updated.Status),
		"actorId":  cmd.ActorID,
	})
	return updated, nil
}

func (s *returnService) Delete(ctx context.Context, requestID string) error {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return fmt.Errorf("%w: request id is required", ErrReturnInvalidInput)
	}
	if err := s.returns.Delete(ctx, requestID); err != nil {
		return mapRepositoryError(err, ErrReturnNotFound, nil)
	}
	s.logger(ctx, "return.deleted", map[string]any{"returnId": requestID})
	return nil
}
