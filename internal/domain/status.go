package domain

import (
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/textutil"
)

// OrderStatus is the fulfilment stage of an order.
type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "Awaiting Payment"
	OrderStatusPlaced          OrderStatus = "Order Placed"
	OrderStatusPacking         OrderStatus = "Packing"
	OrderStatusShipped         OrderStatus = "Shipped"
	OrderStatusOutForDelivery  OrderStatus = "Out for delivery"
	OrderStatusDelivered       OrderStatus = "Delivered"
)

var orderStatuses = []OrderStatus{
	OrderStatusAwaitingPayment,
	OrderStatusPlaced,
	OrderStatusPacking,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// Awaiting Payment is absent on purpose: only payment verification leaves it.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:         {OrderStatusPacking},
	OrderStatusPacking:        {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
}

// ParseOrderStatus matches raw against the known statuses ignoring case and spacing.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	for _, status := range orderStatuses {
		if textutil.EqualFold(raw, string(status)) {
			return status, true
		}
	}
	return "", false
}

// CanTransitionOrder reports whether an operator may move an order from one status to another
// without an override.
func CanTransitionOrder(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ReturnStatus is the lifecycle stage of a return request.
type ReturnStatus string

const (
	ReturnStatusPending         ReturnStatus = "Pending"
	ReturnStatusApproved        ReturnStatus = "Approved"
	ReturnStatusRejected        ReturnStatus = "Rejected"
	ReturnStatusPickupScheduled ReturnStatus = "Pickup Scheduled"
	ReturnStatusRefundInitiated ReturnStatus = "Refund Initiated"
)

var returnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusPickupScheduled,
	ReturnStatusRefundInitiated,
}

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusPending:         {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:        {ReturnStatusPickupScheduled},
	ReturnStatusPickupScheduled: {ReturnStatusRefundInitiated},
}

// ParseReturnStatus matches raw against the known return statuses ignoring case and spacing.
func ParseReturnStatus(raw string) (ReturnStatus, bool) {
	for _, status := range returnStatuses {
		if textutil.EqualFold(raw, string(status)) {
			return status, true
		}
	}
	return "", false
}

// CanTransitionReturn reports whether a return request may move between statuses without an
// override.
func CanTransitionReturn(from, to ReturnStatus) bool {
	for _, allowed := range returnTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
