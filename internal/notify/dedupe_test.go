package notify

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

type recordingSink struct {
	calls []string
}

func (r *recordingSink) Notify(ctx context.Context, orderID int64, status enums.OrderPaymentStatus, amountCents int64) {
	r.calls = append(r.calls, fmt.Sprintf("%d:%s:%d", orderID, status, amountCents))
}

type memoryDedupeStore struct {
	keys map[string]struct{}
	err  error
}

func (m *memoryDedupeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *memoryDedupeStore) NotifyDedupeKey(orderID int64, status string) string {
	return fmt.Sprintf("lb:notify_dedupe:%d:%s", orderID, status)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestDedupeSinkSuppressesRepeats(t *testing.T) {
	inner := &recordingSink{}
	store := &memoryDedupeStore{keys: map[string]struct{}{}}
	sink := NewDedupeSink(inner, store, time.Hour, testLogger())
	ctx := context.Background()

	sink.Notify(ctx, 42, enums.OrderPaymentPaid, 10000)
	sink.Notify(ctx, 42, enums.OrderPaymentPaid, 10000)
	assert.Equal(t, []string{"42:PAID:10000"}, inner.calls)

	// A different status for the same order is a new notification.
	sink.Notify(ctx, 42, enums.OrderPaymentCancelled, 0)
	assert.Len(t, inner.calls, 2)

	// Same status on a different order too.
	sink.Notify(ctx, 43, enums.OrderPaymentPaid, 500)
	assert.Len(t, inner.calls, 3)
}

func TestDedupeSinkDeliversWhenStoreDown(t *testing.T) {
	inner := &recordingSink{}
	store := &memoryDedupeStore{err: pkgerrors.New(pkgerrors.CodeDependency, "redis down")}
	sink := NewDedupeSink(inner, store, time.Hour, testLogger())

	sink.Notify(context.Background(), 42, enums.OrderPaymentPaid, 10000)
	sink.Notify(context.Background(), 42, enums.OrderPaymentPaid, 10000)
	assert.Len(t, inner.calls, 2)
}
