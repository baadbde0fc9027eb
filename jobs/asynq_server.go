package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Pool        *pgxpool.Pool
	Stock       *stock.Service
	Metrics     *jobmetrics.Metrics
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})

	handlers := &taskHandlers{
		logger:  cfg.Logger,
		pool:    cfg.Pool,
		stock:   cfg.Stock,
		metrics: cfg.Metrics,
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskOrderNotification, handlers.handleOrderNotification)
	mux.HandleFunc(TaskBinRecount, handlers.handleBinRecount)

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

type taskHandlers struct {
	logger  *slog.Logger
	pool    *pgxpool.Pool
	stock   *stock.Service
	metrics *jobmetrics.Metrics
}

// handleOrderNotification persists one lifecycle notification per subscriber
// row. Delivery is a feed, not email: clients poll the notifications table.
func (h *taskHandlers) handleOrderNotification(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("order_notification")
	var payload OrderNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if h.pool == nil {
		h.logger.Info("order notification",
			slog.String("event", payload.Event),
			slog.String("order", payload.OrderName))
		return tracker.End(nil)
	}
	_, err := h.pool.Exec(ctx, `INSERT INTO notifications (event, order_name, supplier, company, from_status, to_status, actor_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		payload.Event, payload.OrderName, payload.Supplier, payload.Company,
		payload.FromStatus, payload.ToStatus, payload.ActorID, payload.OccurredAt)
	if err != nil {
		h.logger.Error("store notification", slog.Any("error", err))
	}
	return tracker.End(err)
}

// handleBinRecount runs the nightly full reconciliation of bin ordered
// quantities.
func (h *taskHandlers) handleBinRecount(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("bin_recount")
	var payload BinRecountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if h.stock == nil {
		return tracker.End(errors.New("jobs: stock service not configured"))
	}
	n, err := h.stock.RecountOpenBins(ctx)
	if err != nil {
		h.logger.Error("bin recount", slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Info("bin recount finished",
		slog.Int("bins", n),
		slog.Time("scheduled_for", payload.ScheduledFor))
	return tracker.End(nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueOrderNotification enqueues an order notification task.
func (c *Client) EnqueueOrderNotification(ctx context.Context, payload OrderNotificationPayload) (*asynq.TaskInfo, error) {
	task, err := NewOrderNotificationTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = int(info.Pending)
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + strconv.Itoa(pending) + `}`))
}
