package api

import (
	"testing"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
)

func TestRemoteCartFindLine(t *testing.T) {
	cart := &RemoteCart{Lines: []RemoteCartLine{
		{LineID: 11, ProductOptionID: 5, Quantity: 2},
		{LineID: 12, ProductOptionID: 9, Quantity: 1},
	}}
	line, ok := cart.FindLine(9)
	if !ok || line.LineID != 12 {
		t.Fatalf("expected line 12, got %+v ok=%v", line, ok)
	}
	if _, ok := cart.FindLine(7); ok {
		t.Fatal("expected miss for absent product option")
	}
	var nilCart *RemoteCart
	if _, ok := nilCart.FindLine(5); ok {
		t.Fatal("expected miss on nil cart")
	}
}

func TestOrderTotals(t *testing.T) {
	order := &Order{SubtotalCents: 9000, DeliveryFeeCents: 1000}
	if got := order.TotalCents(); got != 10000 {
		t.Fatalf("total = %d", got)
	}
	if got := order.BalanceCents(); got != 9000 {
		t.Fatalf("balance = %d", got)
	}
}

func TestLatestPaymentPrefersNewestRecord(t *testing.T) {
	order := &Order{Payments: []PaymentRecord{
		{Reference: "d1", Phase: enums.PaymentPhaseDelivery, Status: enums.PaymentStatusFailed},
		{Reference: "d2", Phase: enums.PaymentPhaseDelivery, Status: enums.PaymentStatusPaid},
		{Reference: "b1", Phase: enums.PaymentPhaseBalance, Status: enums.PaymentStatusPending},
	}}

	record, ok := order.LatestPayment(enums.PaymentPhaseDelivery)
	if !ok || record.Reference != "d2" {
		t.Fatalf("expected d2, got %+v ok=%v", record, ok)
	}
	record, ok = order.LatestPayment(enums.PaymentPhaseBalance)
	if !ok || record.Reference != "b1" {
		t.Fatalf("expected b1, got %+v ok=%v", record, ok)
	}

	empty := &Order{}
	if _, ok := empty.LatestPayment(enums.PaymentPhaseDelivery); ok {
		t.Fatal("expected no record on empty order")
	}
}

func TestPaymentByReference(t *testing.T) {
	order := &Order{Payments: []PaymentRecord{
		{Reference: "d1", Phase: enums.PaymentPhaseDelivery},
	}}
	if _, ok := order.PaymentByReference("d1"); !ok {
		t.Fatal("expected hit for d1")
	}
	if _, ok := order.PaymentByReference("zz"); ok {
		t.Fatal("expected miss for unknown reference")
	}
}
