package models

// OrderStatus is the administrative status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"

	// OrderStatusDelivered is a legacy literal accepted by refund eligibility.
	// Nothing in the service ever assigns it.
	OrderStatusDelivered OrderStatus = "Delivered"
)

// ParseOrderStatus returns false for values outside the administrative set
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further status change is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusRejected || s == OrderStatusCancelled
}

// CanCancel reports whether the status still allows owner cancellation.
// Use (*Order).CanCancel, which also accounts for fulfillment.
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusPending || s == OrderStatusApproved
}

// CanTransitionTo reports whether an administrator may move the order to next.
// Only pending orders are reviewed; cancellation goes through CanCancel.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	return next == OrderStatusApproved || next == OrderStatusRejected
}

func (s OrderStatus) String() string {
	return string(s)
}

// FulfillmentStep is a named stage of physical processing of an approved order
type FulfillmentStep string

const (
	FulfillmentNone              FulfillmentStep = "none"
	FulfillmentPreparing         FulfillmentStep = "preparing"
	FulfillmentPacking           FulfillmentStep = "packing"
	FulfillmentWaitingToDelivery FulfillmentStep = "waiting_to_delivery"
	FulfillmentOnTheWay          FulfillmentStep = "on_the_way"
	FulfillmentFinished          FulfillmentStep = "finished"
)

var fulfillmentOrder = []FulfillmentStep{
	FulfillmentNone,
	FulfillmentPreparing,
	FulfillmentPacking,
	FulfillmentWaitingToDelivery,
	FulfillmentOnTheWay,
	FulfillmentFinished,
}

// Index returns the position of the step in the progression, or -1 if unknown
func (f FulfillmentStep) Index() int {
	for i, step := range fulfillmentOrder {
		if step == f {
			return i
		}
	}
	return -1
}

// Valid reports whether f is a known step
func (f FulfillmentStep) Valid() bool {
	return f.Index() >= 0
}

// CanCancel reports whether the owner may still cancel the order. A finished
// fulfillment is terminal even though the status stays approved.
func (o *Order) CanCancel() bool {
	return o.Status.CanCancel() && o.FulfillmentStep != FulfillmentFinished
}

// EligibleForRefund mirrors the storefront's historic rule: a finished,
// approved order, or an order carrying the legacy "Delivered" status.
func (o *Order) EligibleForRefund() bool {
	if o.Status == OrderStatusApproved && o.FulfillmentStep == FulfillmentFinished {
		return true
	}
	return o.Status == OrderStatusDelivered
}
