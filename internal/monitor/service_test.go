package monitor

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/api"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/lifecycle"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/orderlock"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

type fakeOrdersAPI struct {
	mu       sync.Mutex
	orders   map[int64]*api.Order
	failures map[int64]error
	getCalls int
}

func newFakeOrdersAPI() *fakeOrdersAPI {
	return &fakeOrdersAPI{orders: map[int64]*api.Order{}, failures: map[int64]error{}}
}

func (f *fakeOrdersAPI) setOrder(order *api.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
}

func (f *fakeOrdersAPI) CreateOrder(ctx context.Context, input api.CreateOrderInput) (*api.Order, error) {
	return nil, nil
}

func (f *fakeOrdersAPI) GetOrder(ctx context.Context, orderID int64) (*api.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if err := f.failures[orderID]; err != nil {
		return nil, err
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	snapshot := *order
	return &snapshot, nil
}

func (f *fakeOrdersAPI) ListOpenOrders(ctx context.Context) ([]api.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.Order
	for _, order := range f.orders {
		out = append(out, *order)
	}
	return out, nil
}

type notification struct {
	orderID int64
	status  enums.OrderPaymentStatus
	amount  int64
}

type channelSink struct {
	mu    sync.Mutex
	calls []notification
	ch    chan notification
}

func newChannelSink() *channelSink {
	return &channelSink{ch: make(chan notification, 16)}
}

func (c *channelSink) Notify(ctx context.Context, orderID int64, status enums.OrderPaymentStatus, amountCents int64) {
	c.mu.Lock()
	c.calls = append(c.calls, notification{orderID: orderID, status: status, amount: amountCents})
	c.mu.Unlock()
	c.ch <- notification{orderID: orderID, status: status, amount: amountCents}
}

func (c *channelSink) snapshot() []notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notification{}, c.calls...)
}

func orderWith(id int64, plan enums.PaymentPlan, payments ...api.PaymentRecord) *api.Order {
	return &api.Order{
		ID:               id,
		SubtotalCents:    9000,
		DeliveryFeeCents: 1000,
		PaymentPlan:      plan,
		Payments:         payments,
	}
}

func paid(phase enums.PaymentPhase, amount int64) api.PaymentRecord {
	return api.PaymentRecord{Reference: string(phase), Phase: phase, Status: enums.PaymentStatusPaid, AmountCents: amount}
}

func initiated(phase enums.PaymentPhase, amount int64) api.PaymentRecord {
	return api.PaymentRecord{Reference: string(phase), Phase: phase, Status: enums.PaymentStatusInitiated, AmountCents: amount}
}

func newTestMonitor(t *testing.T, orders *fakeOrdersAPI, sink *channelSink, opts ...func(*ServiceParams)) *Service {
	t.Helper()
	params := ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders:   orders,
		Sink:     sink,
		Locks:    orderlock.NewRegistry(),
		Interval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestSweepNotifiesOnceOnTerminalTransition(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.setOrder(orderWith(42, enums.PaymentPlanFull, initiated(enums.PaymentPhaseDelivery, 10000)))
	sink := newChannelSink()
	svc := newTestMonitor(t, orders, sink)
	ctx := context.Background()

	svc.Track(42, enums.OrderPaymentDeliveryInitiated)

	// Still in flight: no notification.
	require.NoError(t, svc.Sweep(ctx))
	assert.Empty(t, sink.snapshot())

	// Payment settles server-side.
	orders.setOrder(orderWith(42, enums.PaymentPlanFull, paid(enums.PaymentPhaseDelivery, 10000)))
	require.NoError(t, svc.Sweep(ctx))
	calls := sink.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(42), calls[0].orderID)
	assert.Equal(t, enums.OrderPaymentPaid, calls[0].status)
	assert.Equal(t, int64(10000), calls[0].amount)

	// Terminal orders leave the polling set; repeat sweeps stay quiet.
	assert.False(t, svc.Watching(42))
	require.NoError(t, svc.Sweep(ctx))
	require.NoError(t, svc.Sweep(ctx))
	assert.Len(t, sink.snapshot(), 1)
}

func TestSweepTracksIntermediateTransitions(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.setOrder(orderWith(7, enums.PaymentPlanSplit, paid(enums.PaymentPhaseDelivery, 1000)))
	sink := newChannelSink()
	svc := newTestMonitor(t, orders, sink)
	ctx := context.Background()

	svc.Track(7, enums.OrderPaymentDeliveryInitiated)
	require.NoError(t, svc.Sweep(ctx))

	// DELIVERY_PAID is not terminal under a split plan: keep watching.
	assert.True(t, svc.Watching(7))
	assert.Empty(t, sink.snapshot())

	orders.setOrder(orderWith(7, enums.PaymentPlanSplit,
		paid(enums.PaymentPhaseDelivery, 1000), paid(enums.PaymentPhaseBalance, 9000)))
	require.NoError(t, svc.Sweep(ctx))
	calls := sink.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, enums.OrderPaymentPaid, calls[0].status)
	assert.Equal(t, int64(10000), calls[0].amount)
}

func TestSweepIsolatesPerOrderFailures(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.setOrder(orderWith(1, enums.PaymentPlanFull, paid(enums.PaymentPhaseDelivery, 5000)))
	orders.failures[2] = pkgerrors.New(pkgerrors.CodeDependency, "fetch failed")
	sink := newChannelSink()
	svc := newTestMonitor(t, orders, sink)

	svc.Track(1, enums.OrderPaymentDeliveryInitiated)
	svc.Track(2, enums.OrderPaymentDeliveryInitiated)

	err := svc.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order 2")

	// The healthy order still settled and notified.
	calls := sink.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(1), calls[0].orderID)

	// The failing order stays watched for the next sweep.
	assert.True(t, svc.Watching(2))
}

func TestSeedSkipsTerminalOrders(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.setOrder(orderWith(1, enums.PaymentPlanFull, initiated(enums.PaymentPhaseDelivery, 5000)))
	orders.setOrder(orderWith(2, enums.PaymentPlanFull, paid(enums.PaymentPhaseDelivery, 5000)))
	sink := newChannelSink()
	svc := newTestMonitor(t, orders, sink)

	require.NoError(t, svc.Seed(context.Background()))
	assert.True(t, svc.Watching(1))
	assert.False(t, svc.Watching(2))
	// Seeding alone never notifies.
	assert.Empty(t, sink.snapshot())
}

func TestTrackIgnoresTerminalStatus(t *testing.T) {
	svc := newTestMonitor(t, newFakeOrdersAPI(), newChannelSink())
	svc.Track(9, enums.OrderPaymentPaid)
	assert.False(t, svc.Watching(9))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := newTestMonitor(t, newFakeOrdersAPI(), newChannelSink())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestForegroundTransitionSweepsImmediately(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.setOrder(orderWith(42, enums.PaymentPlanFull, paid(enums.PaymentPhaseDelivery, 10000)))
	sink := newChannelSink()
	signal := lifecycle.NewSignal()
	signal.Set(lifecycle.StateBackground)

	svc := newTestMonitor(t, orders, sink, func(p *ServiceParams) {
		p.Lifecycle = signal
		p.Interval = time.Hour // only a foreground transition can sweep
	})
	svc.Track(42, enums.OrderPaymentDeliveryInitiated)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	// Backgrounded: nothing happens.
	select {
	case n := <-sink.ch:
		t.Fatalf("unexpected notification while backgrounded: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}

	signal.Set(lifecycle.StateForeground)
	select {
	case n := <-sink.ch:
		assert.Equal(t, int64(42), n.orderID)
		assert.Equal(t, enums.OrderPaymentPaid, n.status)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate sweep on foreground")
	}
}
