package enums

import "fmt"

// OrderPaymentStatus is the order-level settlement state. It is derived from
// the order's payment records and never set independently.
type OrderPaymentStatus string

const (
	OrderPaymentNone              OrderPaymentStatus = "NO_PAYMENT"
	OrderPaymentDeliveryInitiated OrderPaymentStatus = "DELIVERY_INITIATED"
	OrderPaymentDeliveryPaid      OrderPaymentStatus = "DELIVERY_PAID"
	OrderPaymentDeliveryFailed    OrderPaymentStatus = "DELIVERY_FAILED"
	OrderPaymentBalanceInitiated  OrderPaymentStatus = "BALANCE_INITIATED"
	OrderPaymentBalancePaid       OrderPaymentStatus = "BALANCE_PAID"
	OrderPaymentBalanceFailed     OrderPaymentStatus = "BALANCE_FAILED"
	OrderPaymentPaid              OrderPaymentStatus = "PAID"
	OrderPaymentCancelled         OrderPaymentStatus = "CANCELLED"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentNone,
	OrderPaymentDeliveryInitiated,
	OrderPaymentDeliveryPaid,
	OrderPaymentDeliveryFailed,
	OrderPaymentBalanceInitiated,
	OrderPaymentBalancePaid,
	OrderPaymentBalanceFailed,
	OrderPaymentPaid,
	OrderPaymentCancelled,
}

// IsValid reports whether the value matches the canonical order payment status enum.
func (o OrderPaymentStatus) IsValid() bool {
	for _, candidate := range validOrderPaymentStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the monitor should stop polling the order.
func (o OrderPaymentStatus) IsTerminal() bool {
	switch o {
	case OrderPaymentPaid, OrderPaymentDeliveryFailed, OrderPaymentBalanceFailed, OrderPaymentCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderPaymentStatus converts the raw string to OrderPaymentStatus.
func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	for _, candidate := range validOrderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order payment status %q", value)
}

// CartOrigin tags which cart is authoritative for the session.
type CartOrigin string

const (
	CartOriginLocal  CartOrigin = "local"
	CartOriginRemote CartOrigin = "remote"
)
