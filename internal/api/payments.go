package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
)

// PaymentsAPI drives the gateway hand-off through the backend. The gateway
// itself is only ever reached by redirecting the user to Checkout.RedirectURL;
// nothing it reports is trusted until a verify call confirms server-side.
type PaymentsAPI interface {
	InitializePayment(ctx context.Context, orderID int64, amountCents int64, method string) (*Checkout, error)
	VerifyPayment(ctx context.Context, reference string) (*PaymentRecord, error)
	InitializeBalancePayment(ctx context.Context, orderID int64, amountCents int64, deliveryReference string) (*Checkout, error)
	VerifyBalancePayment(ctx context.Context, reference string) (*PaymentRecord, error)
}

type initializePaymentRequest struct {
	OrderID     int64              `json:"order_id"`
	AmountCents int64              `json:"amount_cents"`
	Phase       enums.PaymentPhase `json:"phase"`
	Method      string             `json:"method,omitempty"`
	// LinkedReference ties a balance payment back to the delivery payment
	// it settles against.
	LinkedReference string `json:"linked_reference,omitempty"`
}

// InitializePayment starts a delivery-phase payment and returns the gateway
// redirect target.
func (c *Client) InitializePayment(ctx context.Context, orderID int64, amountCents int64, method string) (*Checkout, error) {
	body := initializePaymentRequest{
		OrderID:     orderID,
		AmountCents: amountCents,
		Phase:       enums.PaymentPhaseDelivery,
		Method:      method,
	}
	opts := requestOptions{idempotencyKey: c.NewIdempotencyKey("payment.init")}

	var checkout Checkout
	if err := c.do(ctx, http.MethodPost, "/payments/initialize", opts, body, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// VerifyPayment confirms a delivery-phase payment against the server.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*PaymentRecord, error) {
	var record PaymentRecord
	path := fmt.Sprintf("/payments/%s/verify", reference)
	if err := c.do(ctx, http.MethodPost, path, requestOptions{}, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// InitializeBalancePayment starts the linked balance payment of a split plan.
func (c *Client) InitializeBalancePayment(ctx context.Context, orderID int64, amountCents int64, deliveryReference string) (*Checkout, error) {
	body := initializePaymentRequest{
		OrderID:         orderID,
		AmountCents:     amountCents,
		Phase:           enums.PaymentPhaseBalance,
		LinkedReference: deliveryReference,
	}
	opts := requestOptions{idempotencyKey: c.NewIdempotencyKey("payment.balance.init")}

	var checkout Checkout
	if err := c.do(ctx, http.MethodPost, "/payments/balance/initialize", opts, body, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// VerifyBalancePayment confirms a balance-phase payment against the server.
func (c *Client) VerifyBalancePayment(ctx context.Context, reference string) (*PaymentRecord, error) {
	var record PaymentRecord
	path := fmt.Sprintf("/payments/balance/%s/verify", reference)
	if err := c.do(ctx, http.MethodPost, path, requestOptions{}, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
