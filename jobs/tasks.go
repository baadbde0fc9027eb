package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrderNotification fans a purchase order lifecycle event out to
	// subscribed users.
	TaskOrderNotification = "purchase:notify"
	// TaskBinRecount reconciles bin ordered quantities against submitted
	// order lines.
	TaskBinRecount = "stock:bin_recount"
)

// OrderNotificationPayload describes one lifecycle notification.
type OrderNotificationPayload struct {
	Event      string    `json:"event"`
	OrderName  string    `json:"order_name"`
	Supplier   string    `json:"supplier,omitempty"`
	Company    string    `json:"company,omitempty"`
	GrandTotal float64   `json:"grand_total,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderNotificationTask constructs an Asynq task for the payload.
func NewOrderNotificationTask(payload OrderNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderNotification, data, asynq.Queue(QueueDefault)), nil
}

// BinRecountPayload carries scheduling metadata.
type BinRecountPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBinRecountTask constructs an Asynq task for the nightly recount.
func NewBinRecountTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BinRecountPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBinRecount, body, asynq.Queue(QueueDefault)), nil
}
