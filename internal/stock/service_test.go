package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStockRepo struct {
	bins     map[string]Bin
	ordered  map[string]float64
	reserved map[string]float64
	blanket  map[string]map[string]float64
	written  map[string]float64
	open     []BinRef
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{
		bins:     make(map[string]Bin),
		ordered:  make(map[string]float64),
		reserved: make(map[string]float64),
		blanket:  make(map[string]map[string]float64),
		written:  make(map[string]float64),
	}
}

func binKey(itemCode, warehouse string) string {
	return itemCode + "|" + warehouse
}

func (r *memoryStockRepo) GetBin(ctx context.Context, itemCode, warehouse string) (Bin, error) {
	bin, ok := r.bins[binKey(itemCode, warehouse)]
	if !ok {
		return Bin{}, ErrNotFound
	}
	return bin, nil
}

func (r *memoryStockRepo) UpsertBinOrderedQty(ctx context.Context, itemCode, warehouse string, qty float64) error {
	key := binKey(itemCode, warehouse)
	bin := r.bins[key]
	bin.ItemCode, bin.Warehouse, bin.OrderedQty = itemCode, warehouse, qty
	r.bins[key] = bin
	return nil
}

func (r *memoryStockRepo) UpsertBinReservedQty(ctx context.Context, itemCode, warehouse string, qty float64) error {
	key := binKey(itemCode, warehouse)
	bin := r.bins[key]
	bin.ItemCode, bin.Warehouse, bin.ReservedQty = itemCode, warehouse, qty
	r.bins[key] = bin
	return nil
}

func (r *memoryStockRepo) SumOrderedQty(ctx context.Context, itemCode, warehouse string) (float64, error) {
	return r.ordered[binKey(itemCode, warehouse)], nil
}

func (r *memoryStockRepo) SumSubcontractReservedQty(ctx context.Context, rmItemCode, warehouse string) (float64, error) {
	return r.reserved[binKey(rmItemCode, warehouse)], nil
}

func (r *memoryStockRepo) SumBlanketOrderedQty(ctx context.Context, blanketOrder string) (map[string]float64, error) {
	return r.blanket[blanketOrder], nil
}

func (r *memoryStockRepo) SetBlanketOrderedQty(ctx context.Context, blanketOrder, itemCode string, qty float64) error {
	r.written[blanketOrder+"|"+itemCode] = qty
	return nil
}

func (r *memoryStockRepo) ListOpenOrderBins(ctx context.Context) ([]BinRef, error) {
	return r.open, nil
}

func TestRecomputeOrderedQtyWritesAggregate(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.ordered[binKey("WIDGET", "Stores")] = 42.5
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RecomputeOrderedQty(ctx, "WIDGET", "Stores"))

	bin, err := svc.Bin(ctx, "WIDGET", "Stores")
	require.NoError(t, err)
	require.Equal(t, 42.5, bin.OrderedQty)

	// Recomputation is idempotent.
	require.NoError(t, svc.RecomputeOrderedQty(ctx, "WIDGET", "Stores"))
	bin, err = svc.Bin(ctx, "WIDGET", "Stores")
	require.NoError(t, err)
	require.Equal(t, 42.5, bin.OrderedQty)
}

func TestRecomputeOrderedQtyRequiresKeys(t *testing.T) {
	svc := NewService(newMemoryStockRepo())
	require.Error(t, svc.RecomputeOrderedQty(context.Background(), "", "Stores"))
	require.Error(t, svc.RecomputeOrderedQty(context.Background(), "WIDGET", ""))
}

func TestRecomputeSubcontractReservedQty(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.reserved[binKey("STEEL", "Supplier WH")] = 12
	svc := NewService(repo)

	require.NoError(t, svc.RecomputeSubcontractReservedQty(context.Background(), "STEEL", "Supplier WH"))

	bin, err := svc.Bin(context.Background(), "STEEL", "Supplier WH")
	require.NoError(t, err)
	require.Equal(t, 12.0, bin.ReservedQty)
}

func TestPropagateBlanketOrder(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.blanket["BO-001"] = map[string]float64{"WIDGET": 30, "BOLT": 100}
	svc := NewService(repo)

	require.NoError(t, svc.PropagateBlanketOrder(context.Background(), "BO-001"))
	require.Equal(t, 30.0, repo.written["BO-001|WIDGET"])
	require.Equal(t, 100.0, repo.written["BO-001|BOLT"])

	// Empty name is a no-op, not an error.
	require.NoError(t, svc.PropagateBlanketOrder(context.Background(), ""))
}

func TestRecountOpenBins(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.open = []BinRef{{ItemCode: "WIDGET", Warehouse: "Stores"}, {ItemCode: "BOLT", Warehouse: "Stores"}}
	repo.ordered[binKey("WIDGET", "Stores")] = 10
	repo.ordered[binKey("BOLT", "Stores")] = 4
	svc := NewService(repo)

	n, err := svc.RecountOpenBins(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 10.0, repo.bins[binKey("WIDGET", "Stores")].OrderedQty)
	require.Equal(t, 4.0, repo.bins[binKey("BOLT", "Stores")].OrderedQty)
}
