package settlement

import (
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/api"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
)

// DeriveStatus computes the order-level payment status purely from the
// payment records, so it can never drift from them. Only the newest record
// per phase counts; re-initialized phases append fresh records.
func DeriveStatus(plan enums.PaymentPlan, payments []api.PaymentRecord) enums.OrderPaymentStatus {
	delivery := latestForPhase(payments, enums.PaymentPhaseDelivery)
	if delivery == nil {
		return enums.OrderPaymentNone
	}

	switch delivery.Status {
	case enums.PaymentStatusInitiated, enums.PaymentStatusPending:
		return enums.OrderPaymentDeliveryInitiated
	case enums.PaymentStatusFailed:
		return enums.OrderPaymentDeliveryFailed
	case enums.PaymentStatusCancelled:
		return enums.OrderPaymentCancelled
	}

	// Delivery is PAID from here on.
	if plan == enums.PaymentPlanFull {
		return enums.OrderPaymentPaid
	}

	balance := latestForPhase(payments, enums.PaymentPhaseBalance)
	if balance == nil {
		return enums.OrderPaymentDeliveryPaid
	}
	switch balance.Status {
	case enums.PaymentStatusInitiated, enums.PaymentStatusPending:
		return enums.OrderPaymentBalanceInitiated
	case enums.PaymentStatusFailed:
		return enums.OrderPaymentBalanceFailed
	case enums.PaymentStatusCancelled:
		return enums.OrderPaymentCancelled
	case enums.PaymentStatusPaid:
		return enums.OrderPaymentPaid
	}
	return enums.OrderPaymentDeliveryPaid
}

// TotalPaidCents sums the newest PAID record of each phase.
func TotalPaidCents(payments []api.PaymentRecord) int64 {
	var total int64
	for _, phase := range []enums.PaymentPhase{enums.PaymentPhaseDelivery, enums.PaymentPhaseBalance} {
		if record := latestForPhase(payments, phase); record != nil && record.Status == enums.PaymentStatusPaid {
			total += record.AmountCents
		}
	}
	return total
}

func latestForPhase(payments []api.PaymentRecord, phase enums.PaymentPhase) *api.PaymentRecord {
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].Phase == phase {
			return &payments[i]
		}
	}
	return nil
}
