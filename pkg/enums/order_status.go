package enums

import "fmt"

// OrderStatus tracks the lifecycle of a tracking record.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusWaiting        OrderStatus = "WAITING"
	OrderStatusManufacturing  OrderStatus = "MANUFACTURING"
	OrderStatusShipping       OrderStatus = "SHIPPING"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusWaiting,
	OrderStatusManufacturing,
	OrderStatusShipping,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Happy-path rank. Terminal statuses sit outside the forward-only chain.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPendingPayment: 0,
	OrderStatusWaiting:        1,
	OrderStatusManufacturing:  2,
	OrderStatusShipping:       3,
	OrderStatusDelivered:      4,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the lifecycle.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo reports whether moving to next is a forward move on the
// happy path. Terminal statuses are always reachable; moving out of a
// terminal status or backward requires an administrative override.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next.IsTerminal() {
		return !s.IsTerminal()
	}
	from, okFrom := orderStatusRank[s]
	to, okTo := orderStatusRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to >= from
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
