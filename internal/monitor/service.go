package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/api"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/lifecycle"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/notify"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/orderlock"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/settlement"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/metrics"
)

const defaultPollInterval = 30 * time.Second

// ServiceParams configure the payment monitor.
type ServiceParams struct {
	Logger    *logger.Logger
	Orders    api.OrdersAPI
	Sink      notify.Sink
	Locks     *orderlock.Registry
	Lifecycle *lifecycle.Signal
	SweepLock Lock
	Metrics   *metrics.MonitorMetrics
	Interval  time.Duration
}

// Service polls the orders whose payment status is still moving and emits
// one notification per observed transition into a terminal status. Orders
// that reach a terminal status are dropped from the polling set.
type Service struct {
	logg      *logger.Logger
	orders    api.OrdersAPI
	sink      notify.Sink
	locks     *orderlock.Registry
	lifecycle *lifecycle.Signal
	sweepLock Lock
	metrics   *metrics.MonitorMetrics
	interval  time.Duration

	mu       sync.Mutex
	observed map[int64]enums.OrderPaymentStatus
}

// NewService builds the payment monitor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders api required")
	}
	if params.Sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("order lock registry required")
	}
	sweepLock := params.SweepLock
	if sweepLock == nil {
		sweepLock = NoopLock{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Service{
		logg:      params.Logger,
		orders:    params.Orders,
		sink:      params.Sink,
		locks:     params.Locks,
		lifecycle: params.Lifecycle,
		sweepLock: sweepLock,
		metrics:   params.Metrics,
		interval:  interval,
		observed:  map[int64]enums.OrderPaymentStatus{},
	}, nil
}

// Seed loads the open orders from the server and starts watching them.
// Seeding records current statuses without notifying; only transitions
// observed afterwards notify.
func (s *Service) Seed(ctx context.Context) error {
	orders, err := s.orders.ListOpenOrders(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range orders {
		status := settlement.DeriveStatus(order.PaymentPlan, order.Payments)
		if status.IsTerminal() {
			continue
		}
		s.observed[order.ID] = status
	}
	s.logg.Info(s.logg.WithField(ctx, "orders", len(s.observed)), "payment monitor seeded")
	return nil
}

// Track starts watching an order, typically right after checkout
// initializes its first payment.
func (s *Service) Track(orderID int64, status enums.OrderPaymentStatus) {
	if status.IsTerminal() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observed[orderID] = status
}

// Watching reports whether the order is in the polling set.
func (s *Service) Watching(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.observed[orderID]
	return ok
}

// Run polls until the context is canceled. While the app is backgrounded
// ticks are skipped; returning to the foreground triggers an immediate
// sweep and restarts the cadence from that point.
func (s *Service) Run(ctx context.Context) error {
	var states <-chan lifecycle.State
	paused := false
	if s.lifecycle != nil {
		states = s.lifecycle.Subscribe()
		paused = s.lifecycle.State() == lifecycle.StateBackground
	}

	if !paused {
		s.runSweep(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "payment monitor stopped")
			return ctx.Err()
		case state := <-states:
			paused = state == lifecycle.StateBackground
			if !paused {
				s.runSweep(ctx)
				ticker.Reset(s.interval)
			}
		case <-ticker.C:
			if paused {
				continue
			}
			s.runSweep(ctx)
		}
	}
}

func (s *Service) runSweep(ctx context.Context) {
	if err := s.Sweep(ctx); err != nil {
		s.logg.Error(ctx, "payment sweep finished with errors", err)
	}
}

// Sweep polls every watched order once. Failures are isolated per order:
// one unreachable order never blocks the rest, and its last observed
// status stays put so the next sweep retries it. The aggregated error is
// returned for logging.
func (s *Service) Sweep(ctx context.Context) error {
	acquired, err := s.sweepLock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("sweep lock acquire: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "another instance is sweeping; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.sweepLock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release sweep lock", relErr)
		}
	}()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSweep(time.Since(start))
		}
	}()

	var errs error
	for _, orderID := range s.watchedOrders() {
		if err := s.pollOrder(ctx, orderID); err != nil {
			if s.metrics != nil {
				s.metrics.IncFetchFailure()
			}
			errs = multierr.Append(errs, fmt.Errorf("order %d: %w", orderID, err))
		}
	}
	return errs
}

func (s *Service) pollOrder(ctx context.Context, orderID int64) error {
	unlock := s.locks.Lock(orderID)
	defer unlock()
	ctx = s.logg.WithOrderID(ctx, orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	status := settlement.DeriveStatus(order.PaymentPlan, order.Payments)

	s.mu.Lock()
	last, watching := s.observed[orderID]
	if !watching || status == last {
		s.mu.Unlock()
		return nil
	}
	if status.IsTerminal() {
		delete(s.observed, orderID)
	} else {
		s.observed[orderID] = status
	}
	s.mu.Unlock()

	s.logg.Info(s.logg.WithField(ctx, "status", string(status)), "payment status changed")

	if status.IsTerminal() {
		s.sink.Notify(ctx, orderID, status, settlement.TotalPaidCents(order.Payments))
		if s.metrics != nil {
			s.metrics.IncNotification(string(status))
		}
	}
	return nil
}

// watchedOrders snapshots the polling set in a stable order.
func (s *Service) watchedOrders() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.observed))
	for id := range s.observed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
