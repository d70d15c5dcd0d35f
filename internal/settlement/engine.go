package settlement

import (
	"context"
	"fmt"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/api"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/orderlock"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

// GatewayOutcome is what the gateway redirect reported when control
// returned to us. It is untrusted until server-side verification confirms.
type GatewayOutcome string

const (
	OutcomeSuccess   GatewayOutcome = "success"
	OutcomeFailed    GatewayOutcome = "failed"
	OutcomeCancelled GatewayOutcome = "cancelled"
)

// IsValid reports whether the outcome is one the gateway can legally send.
func (o GatewayOutcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailed, OutcomeCancelled:
		return true
	}
	return false
}

// VerifyResult is the post-verification view of an order's settlement.
type VerifyResult struct {
	Record         *api.PaymentRecord
	OrderStatus    enums.OrderPaymentStatus
	TotalPaidCents int64
}

// Service drives the one- or two-phase payment flow for an order. The
// delivery phase charges the full total under a FULL plan or the delivery
// fee alone under SPLIT; the balance phase settles the remainder against
// the paid delivery reference.
type Service interface {
	InitializeDelivery(ctx context.Context, orderID int64, method string) (*api.Checkout, error)
	VerifyDelivery(ctx context.Context, orderID int64, reference string, outcome GatewayOutcome) (*VerifyResult, error)
	InitializeBalance(ctx context.Context, orderID int64) (*api.Checkout, error)
	VerifyBalance(ctx context.Context, orderID int64, reference string, outcome GatewayOutcome) (*VerifyResult, error)
}

type service struct {
	orders   api.OrdersAPI
	payments api.PaymentsAPI
	locks    *orderlock.Registry
	logger   *logger.Logger
}

// NewService builds the settlement engine.
func NewService(orders api.OrdersAPI, payments api.PaymentsAPI, locks *orderlock.Registry, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders api required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payments api required")
	}
	if locks == nil {
		return nil, fmt.Errorf("order lock registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orders, payments: payments, locks: locks, logger: logg}, nil
}

// InitializeDelivery starts the first payment phase. The order is
// re-fetched so the duplicate-initialization check runs against current
// server state, not a cached order.
func (s *service) InitializeDelivery(ctx context.Context, orderID int64, method string) (*api.Checkout, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()
	ctx = s.logger.WithOrderID(ctx, orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if record, ok := order.LatestPayment(enums.PaymentPhaseDelivery); ok {
		if !record.Status.IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a delivery payment is already in flight for this order")
		}
		// Re-initialization is only for failed or cancelled phases; a
		// paid phase must never be charged again.
		if record.Status == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "the delivery payment is already paid")
		}
	}

	amount := order.TotalCents()
	if order.PaymentPlan == enums.PaymentPlanSplit {
		amount = order.DeliveryFeeCents
	}

	checkout, err := s.payments.InitializePayment(ctx, orderID, amount, method)
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithReference(ctx, checkout.Reference), "delivery payment initialized")
	return checkout, nil
}

// VerifyDelivery confirms the delivery phase after the gateway handed
// control back.
func (s *service) VerifyDelivery(ctx context.Context, orderID int64, reference string, outcome GatewayOutcome) (*VerifyResult, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	return s.verify(ctx, orderID, reference, outcome, s.payments.VerifyPayment)
}

// InitializeBalance starts the second phase of a split plan. It is rejected
// unless the order's delivery payment is PAID and no balance payment is in
// flight; the new payment is linked to the paid delivery reference so the
// charge stays traceable.
func (s *service) InitializeBalance(ctx context.Context, orderID int64) (*api.Checkout, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()
	ctx = s.logger.WithOrderID(ctx, orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentPlan != enums.PaymentPlanSplit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "balance payments only apply to split plans")
	}
	delivery, ok := order.LatestPayment(enums.PaymentPhaseDelivery)
	if !ok || delivery.Status != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "balance payment requires a paid delivery payment")
	}
	if record, ok := order.LatestPayment(enums.PaymentPhaseBalance); ok {
		if !record.Status.IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a balance payment is already in flight for this order")
		}
		if record.Status == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "the balance payment is already paid")
		}
	}

	checkout, err := s.payments.InitializeBalancePayment(ctx, orderID, order.BalanceCents(), delivery.Reference)
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithReference(ctx, checkout.Reference), "balance payment initialized")
	return checkout, nil
}

// VerifyBalance confirms the balance phase.
func (s *service) VerifyBalance(ctx context.Context, orderID int64, reference string, outcome GatewayOutcome) (*VerifyResult, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	return s.verify(ctx, orderID, reference, outcome, s.payments.VerifyBalancePayment)
}

type verifyFunc func(ctx context.Context, reference string) (*api.PaymentRecord, error)

// verify runs server-side confirmation and classifies the result. The
// server is the source of truth: a gateway "success" the server cannot
// confirm is ambiguous (money may have moved) and must go to manual
// reconciliation, never an automatic re-charge.
func (s *service) verify(ctx context.Context, orderID int64, reference string, outcome GatewayOutcome, fn verifyFunc) (*VerifyResult, error) {
	if !outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown gateway outcome %q", outcome))
	}
	ctx = s.logger.WithReference(s.logger.WithOrderID(ctx, orderID), reference)

	record, err := fn(ctx, reference)
	if err != nil {
		if outcome == OutcomeSuccess {
			return nil, pkgerrors.Wrap(pkgerrors.CodeAmbiguous, err, "gateway reported success but verification failed")
		}
		return nil, err
	}

	if outcome == OutcomeSuccess && record.Status != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeAmbiguous,
			fmt.Sprintf("gateway reported success but server holds status %s", record.Status)).
			WithDetails(map[string]any{"reference": reference, "server_status": string(record.Status)})
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Record:         record,
		OrderStatus:    DeriveStatus(order.PaymentPlan, order.Payments),
		TotalPaidCents: TotalPaidCents(order.Payments),
	}
	s.logger.Info(s.logger.WithField(ctx, "order_status", string(result.OrderStatus)), "payment verified")
	return result, nil
}
