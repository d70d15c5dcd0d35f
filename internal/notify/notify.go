// Package notify delivers payment status notifications to the UI layer.
package notify

import (
	"context"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

// Sink accepts fire-and-forget status notifications. Implementations must
// not block the caller's sweep.
type Sink interface {
	Notify(ctx context.Context, orderID int64, status enums.OrderPaymentStatus, amountCents int64)
}

// LogSink writes notifications to the structured log. It is the default
// sink when no UI bridge is attached.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink builds the logging sink.
func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logger: logg}
}

func (s *LogSink) Notify(ctx context.Context, orderID int64, status enums.OrderPaymentStatus, amountCents int64) {
	if s == nil || s.logger == nil {
		return
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"order_id":     orderID,
		"status":       string(status),
		"amount_cents": amountCents,
	})
	s.logger.Info(ctx, "payment status notification")
}
