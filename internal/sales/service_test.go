package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memorySalesRepo struct {
	orders      map[string]Order
	lines       map[string][]OrderLine
	ordered     map[string]map[string]float64
	dropShipped map[string]map[string]float64
	lineWrites  map[string]float64
}

func newMemorySalesRepo() *memorySalesRepo {
	return &memorySalesRepo{
		orders:      make(map[string]Order),
		lines:       make(map[string][]OrderLine),
		ordered:     make(map[string]map[string]float64),
		dropShipped: make(map[string]map[string]float64),
		lineWrites:  make(map[string]float64),
	}
}

func (r *memorySalesRepo) GetOrder(ctx context.Context, name string) (Order, error) {
	o, ok := r.orders[name]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *memorySalesRepo) ListLines(ctx context.Context, orderName string) ([]OrderLine, error) {
	return r.lines[orderName], nil
}

func (r *memorySalesRepo) SumOrderedQtyByLine(ctx context.Context, orderName string) (map[string]float64, error) {
	return r.ordered[orderName], nil
}

func (r *memorySalesRepo) SumDropShipDeliveredByLine(ctx context.Context, orderName string) (map[string]float64, error) {
	return r.dropShipped[orderName], nil
}

func (r *memorySalesRepo) SetLineOrderedQty(ctx context.Context, lineName string, qty float64) error {
	r.lineWrites[lineName] = qty
	for orderName, lines := range r.lines {
		for i := range lines {
			if lines[i].Name == lineName {
				lines[i].OrderedQty = qty
				r.lines[orderName] = lines
			}
		}
	}
	return nil
}

func (r *memorySalesRepo) SetPerOrdered(ctx context.Context, orderName string, pct float64) error {
	o := r.orders[orderName]
	o.PerOrdered = pct
	r.orders[orderName] = o
	return nil
}

func (r *memorySalesRepo) SetDeliveryStatus(ctx context.Context, orderName string, perDelivered float64, status DeliveryStatus) error {
	o := r.orders[orderName]
	o.PerDelivered = perDelivered
	o.DeliveryStatus = status
	r.orders[orderName] = o
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecomputeOrderedQtyUpdatesLinesAndPercentage(t *testing.T) {
	repo := newMemorySalesRepo()
	repo.orders["SO-001"] = Order{Name: "SO-001", Status: StatusToDeliverAndBill}
	repo.lines["SO-001"] = []OrderLine{
		{Name: "SO-001-1", OrderName: "SO-001", Qty: 10, ConversionFactor: 1, StockQty: 10},
		{Name: "SO-001-2", OrderName: "SO-001", Qty: 5, ConversionFactor: 1, StockQty: 5},
	}
	repo.ordered["SO-001"] = map[string]float64{"SO-001-1": 10}

	svc := NewService(repo, discardLogger())
	require.NoError(t, svc.RecomputeOrderedQty(context.Background(), "SO-001", []string{"SO-001-1"}))

	require.Equal(t, 10.0, repo.lineWrites["SO-001-1"])
	o, err := svc.Order(context.Background(), "SO-001")
	require.NoError(t, err)
	// 10 of 15 stock units ordered.
	require.InDelta(t, 66.67, o.PerOrdered, 0.01)

	// Second run converges on the same figures.
	require.NoError(t, svc.RecomputeOrderedQty(context.Background(), "SO-001", []string{"SO-001-1"}))
	o, err = svc.Order(context.Background(), "SO-001")
	require.NoError(t, err)
	require.InDelta(t, 66.67, o.PerOrdered, 0.01)
}

func TestRecomputeOrderedQtyCapsOverOrdering(t *testing.T) {
	repo := newMemorySalesRepo()
	repo.orders["SO-002"] = Order{Name: "SO-002"}
	repo.lines["SO-002"] = []OrderLine{
		{Name: "SO-002-1", OrderName: "SO-002", Qty: 10, ConversionFactor: 1, StockQty: 10},
	}
	repo.ordered["SO-002"] = map[string]float64{"SO-002-1": 14}

	svc := NewService(repo, discardLogger())
	require.NoError(t, svc.RecomputeOrderedQty(context.Background(), "SO-002", []string{"SO-002-1"}))

	o, err := svc.Order(context.Background(), "SO-002")
	require.NoError(t, err)
	require.Equal(t, 100.0, o.PerOrdered)
}

func TestRecomputeDeliveryStatusCountsDropShip(t *testing.T) {
	repo := newMemorySalesRepo()
	repo.orders["SO-003"] = Order{Name: "SO-003"}
	repo.lines["SO-003"] = []OrderLine{
		{Name: "SO-003-1", OrderName: "SO-003", Qty: 10, ConversionFactor: 1, StockQty: 10, DeliveredQty: 10},
		{Name: "SO-003-2", OrderName: "SO-003", Qty: 10, ConversionFactor: 1, StockQty: 10, DeliveredBySupplier: true},
	}
	repo.dropShipped["SO-003"] = map[string]float64{"SO-003-2": 10}

	svc := NewService(repo, discardLogger())
	require.NoError(t, svc.RecomputeDeliveryStatus(context.Background(), []string{"SO-003"}))

	o, err := svc.Order(context.Background(), "SO-003")
	require.NoError(t, err)
	require.Equal(t, 100.0, o.PerDelivered)
	require.Equal(t, DeliveryFullyDelivered, o.DeliveryStatus)
}

func TestRecomputeDeliveryStatusAfterDropShipCancel(t *testing.T) {
	repo := newMemorySalesRepo()
	repo.orders["SO-004"] = Order{Name: "SO-004", PerDelivered: 100, DeliveryStatus: DeliveryFullyDelivered}
	repo.lines["SO-004"] = []OrderLine{
		{Name: "SO-004-1", OrderName: "SO-004", Qty: 10, ConversionFactor: 1, StockQty: 10, DeliveredBySupplier: true},
	}
	// Cancelled purchase order no longer contributes drop-ship deliveries.

	svc := NewService(repo, discardLogger())
	require.NoError(t, svc.RecomputeDeliveryStatus(context.Background(), []string{"SO-004"}))

	o, err := svc.Order(context.Background(), "SO-004")
	require.NoError(t, err)
	require.Equal(t, 0.0, o.PerDelivered)
	require.Equal(t, DeliveryNotDelivered, o.DeliveryStatus)
}
