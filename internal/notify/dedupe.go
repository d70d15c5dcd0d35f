package notify

import (
	"context"
	"time"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

// DedupeStore is the slice of the redis client the dedupe sink needs.
type DedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	NotifyDedupeKey(orderID int64, status string) string
}

// DedupeSink suppresses repeat notifications for the same (order, status)
// pair across process restarts by claiming a redis key before delivering.
// When redis is unreachable the notification is delivered anyway: a
// duplicate beats a silently dropped status change.
type DedupeSink struct {
	next   Sink
	store  DedupeStore
	ttl    time.Duration
	logger *logger.Logger
}

// NewDedupeSink wraps next with redis-backed suppression.
func NewDedupeSink(next Sink, store DedupeStore, ttl time.Duration, logg *logger.Logger) *DedupeSink {
	return &DedupeSink{next: next, store: store, ttl: ttl, logger: logg}
}

func (s *DedupeSink) Notify(ctx context.Context, orderID int64, status enums.OrderPaymentStatus, amountCents int64) {
	key := s.store.NotifyDedupeKey(orderID, string(status))
	claimed, err := s.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.ttl)
	if err != nil {
		s.logger.Warn(ctx, "notification dedupe store unavailable: "+err.Error())
		s.next.Notify(ctx, orderID, status, amountCents)
		return
	}
	if !claimed {
		return
	}
	s.next.Notify(ctx, orderID, status, amountCents)
}
