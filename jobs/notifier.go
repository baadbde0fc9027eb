package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/purchase"
)

// Notifier enqueues purchase order lifecycle events for asynchronous
// delivery. It satisfies the purchase notifier port.
type Notifier struct {
	client *Client
	logger *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// NotifyOrderSubmitted queues a submission notification.
func (n *Notifier) NotifyOrderSubmitted(ctx context.Context, evt purchase.OrderSubmittedEvent) error {
	return n.enqueue(ctx, OrderNotificationPayload{
		Event:      "order_submitted",
		OrderName:  evt.Name,
		Supplier:   evt.Supplier,
		Company:    evt.Company,
		GrandTotal: evt.GrandTotal,
		ActorID:    evt.ActorID,
		OccurredAt: evt.SubmittedAt,
	})
}

// NotifyOrderCancelled queues a cancellation notification.
func (n *Notifier) NotifyOrderCancelled(ctx context.Context, evt purchase.OrderCancelledEvent) error {
	return n.enqueue(ctx, OrderNotificationPayload{
		Event:      "order_cancelled",
		OrderName:  evt.Name,
		Supplier:   evt.Supplier,
		ActorID:    evt.ActorID,
		OccurredAt: evt.CancelledAt,
	})
}

// NotifyStatusChanged queues a close/reopen notification.
func (n *Notifier) NotifyStatusChanged(ctx context.Context, evt purchase.StatusChangedEvent) error {
	return n.enqueue(ctx, OrderNotificationPayload{
		Event:      "status_changed",
		OrderName:  evt.Name,
		FromStatus: string(evt.From),
		ToStatus:   string(evt.To),
		ActorID:    evt.ActorID,
		OccurredAt: evt.ChangedAt,
	})
}

func (n *Notifier) enqueue(ctx context.Context, payload OrderNotificationPayload) error {
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}
	if _, err := n.client.EnqueueOrderNotification(ctx, payload); err != nil {
		n.logger.Warn("enqueue order notification",
			slog.String("event", payload.Event),
			slog.String("order", payload.OrderName),
			slog.Any("error", err))
		return err
	}
	return nil
}

var _ purchase.Notifier = (*Notifier)(nil)
