package purchase

import (
	"context"
	"time"
)

// OrderSubmittedEvent captures details of a completed submission.
type OrderSubmittedEvent struct {
	Name        string
	Supplier    string
	Company     string
	GrandTotal  float64
	ActorID     int64
	SubmittedAt time.Time
}

// OrderCancelledEvent captures details of a completed cancellation.
type OrderCancelledEvent struct {
	Name        string
	Supplier    string
	ActorID     int64
	CancelledAt time.Time
}

// StatusChangedEvent captures an explicit status flip (close/reopen).
type StatusChangedEvent struct {
	Name      string
	From      Status
	To        Status
	ActorID   int64
	ChangedAt time.Time
}

// Notifier fans lifecycle events out to interested users. Delivery is
// best-effort; failures are logged, never surfaced to the caller.
type Notifier interface {
	NotifyOrderSubmitted(ctx context.Context, evt OrderSubmittedEvent) error
	NotifyOrderCancelled(ctx context.Context, evt OrderCancelledEvent) error
	NotifyStatusChanged(ctx context.Context, evt StatusChangedEvent) error
}
