package api

import (
	"time"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
)

// RemoteCartLine is one line of the server-authoritative cart. The server
// assigns LineID on creation; identity across carts is ProductOptionID.
type RemoteCartLine struct {
	LineID             int64   `json:"line_id"`
	ProductOptionID    int64   `json:"product_option_id"`
	Quantity           int     `json:"quantity"`
	Note               *string `json:"note,omitempty"`
	UnitPriceCents     int64   `json:"unit_price_cents"`
	BulkUnitPriceCents *int64  `json:"bulk_unit_price_cents,omitempty"`
	BulkThreshold      *int    `json:"bulk_threshold,omitempty"`
}

// RemoteCart is the server's view of the user's cart.
type RemoteCart struct {
	Lines []RemoteCartLine `json:"lines"`
}

// FindLine returns the cart line for a product option, if present.
func (c *RemoteCart) FindLine(productOptionID int64) (*RemoteCartLine, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Lines {
		if c.Lines[i].ProductOptionID == productOptionID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// OrderLine is an immutable snapshot of a cart line at order creation time.
type OrderLine struct {
	ProductOptionID int64   `json:"product_option_id"`
	Quantity        int     `json:"quantity"`
	Note            *string `json:"note,omitempty"`
	UnitPriceCents  int64   `json:"unit_price_cents"`
}

// PaymentRecord mirrors one settlement leg on an order.
type PaymentRecord struct {
	Reference       string              `json:"reference"`
	Phase           enums.PaymentPhase  `json:"phase"`
	AmountCents     int64               `json:"amount_cents"`
	Status          enums.PaymentStatus `json:"status"`
	LinkedReference *string             `json:"linked_reference,omitempty"`
}

// Order is the server-authoritative order. Lines never change after
// creation; Payments grows as settlement progresses.
type Order struct {
	ID                    int64             `json:"id"`
	Lines                 []OrderLine       `json:"lines"`
	SubtotalCents         int64             `json:"subtotal_cents"`
	DeliveryFeeCents      int64             `json:"delivery_fee_cents"`
	PaymentPlan           enums.PaymentPlan `json:"payment_plan"`
	Payments              []PaymentRecord   `json:"payments"`
	ScheduledDeliveryTime *time.Time        `json:"scheduled_delivery_time,omitempty"`
}

// TotalCents is the full order total.
func (o *Order) TotalCents() int64 {
	return o.SubtotalCents + o.DeliveryFeeCents
}

// BalanceCents is what remains after the delivery fee under a split plan.
func (o *Order) BalanceCents() int64 {
	return o.SubtotalCents
}

// LatestPayment returns the most recent record for the given phase. Records
// arrive ordered oldest-first; re-initialized phases append a fresh record.
func (o *Order) LatestPayment(phase enums.PaymentPhase) (*PaymentRecord, bool) {
	for i := len(o.Payments) - 1; i >= 0; i-- {
		if o.Payments[i].Phase == phase {
			return &o.Payments[i], true
		}
	}
	return nil, false
}

// PaymentByReference finds the record carrying the given gateway reference.
func (o *Order) PaymentByReference(reference string) (*PaymentRecord, bool) {
	for i := range o.Payments {
		if o.Payments[i].Reference == reference {
			return &o.Payments[i], true
		}
	}
	return nil, false
}

// Checkout is the gateway hand-off returned by payment initialization.
type Checkout struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

// CreateOrderInput snapshots the authoritative cart into a new order.
type CreateOrderInput struct {
	Lines                 []OrderLine       `json:"lines"`
	DeliveryFeeCents      int64             `json:"delivery_fee_cents"`
	PaymentPlan           enums.PaymentPlan `json:"payment_plan"`
	ScheduledDeliveryTime *time.Time        `json:"scheduled_delivery_time,omitempty"`
}
