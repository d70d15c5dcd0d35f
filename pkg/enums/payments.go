package enums

import "fmt"

// PaymentPlan describes how an order is settled.
type PaymentPlan string

const (
	// PaymentPlanFull charges the whole order total up front.
	PaymentPlanFull PaymentPlan = "FULL"
	// PaymentPlanSplit charges the delivery fee now and the goods balance
	// as a second payment linked to the first.
	PaymentPlanSplit PaymentPlan = "SPLIT"
)

var validPaymentPlans = []PaymentPlan{PaymentPlanFull, PaymentPlanSplit}

// IsValid reports whether the value matches the canonical payment plan enum.
func (p PaymentPlan) IsValid() bool {
	for _, candidate := range validPaymentPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentPlan converts the raw string to PaymentPlan.
func ParsePaymentPlan(value string) (PaymentPlan, error) {
	for _, candidate := range validPaymentPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment plan %q", value)
}

// PaymentPhase identifies which leg of a settlement a record belongs to.
type PaymentPhase string

const (
	PaymentPhaseDelivery PaymentPhase = "DELIVERY"
	PaymentPhaseBalance  PaymentPhase = "BALANCE"
)

var validPaymentPhases = []PaymentPhase{PaymentPhaseDelivery, PaymentPhaseBalance}

// IsValid reports whether the value matches the canonical payment phase enum.
func (p PaymentPhase) IsValid() bool {
	for _, candidate := range validPaymentPhases {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentPhase converts the raw string to PaymentPhase.
func ParsePaymentPhase(value string) (PaymentPhase, error) {
	for _, candidate := range validPaymentPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment phase %q", value)
}

// PaymentStatus is the lifecycle of a single payment record.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusInitiated,
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

// IsValid reports whether the value matches the canonical payment status enum.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition occurs.
func (p PaymentStatus) IsTerminal() bool {
	switch p {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// ParsePaymentStatus converts the raw string to PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
