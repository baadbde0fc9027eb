package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort describes the persistence operations the service needs.
type RepositoryPort interface {
	GetBin(ctx context.Context, itemCode, warehouse string) (Bin, error)
	UpsertBinOrderedQty(ctx context.Context, itemCode, warehouse string, qty float64) error
	UpsertBinReservedQty(ctx context.Context, itemCode, warehouse string, qty float64) error
	// SumOrderedQty aggregates outstanding ordered stock quantity from
	// submitted purchase order lines for one item/warehouse pair.
	SumOrderedQty(ctx context.Context, itemCode, warehouse string) (float64, error)
	// SumSubcontractReservedQty aggregates outstanding raw-material
	// requirements from submitted subcontracted purchase orders.
	SumSubcontractReservedQty(ctx context.Context, rmItemCode, warehouse string) (float64, error)
	// SumBlanketOrderedQty aggregates ordered quantity per item over
	// submitted purchase orders drawing on the blanket order.
	SumBlanketOrderedQty(ctx context.Context, blanketOrder string) (map[string]float64, error)
	SetBlanketOrderedQty(ctx context.Context, blanketOrder, itemCode string, qty float64) error
	// ListOpenOrderBins returns the item/warehouse pairs referenced by open
	// submitted purchase order lines.
	ListOpenOrderBins(ctx context.Context) ([]BinRef, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetBin fetches one bin row.
func (r *Repository) GetBin(ctx context.Context, itemCode, warehouse string) (Bin, error) {
	var bin Bin
	err := r.pool.QueryRow(ctx, `SELECT item_code, warehouse, actual_qty, ordered_qty, reserved_qty, updated_at
FROM bins WHERE item_code=$1 AND warehouse=$2`, itemCode, warehouse).Scan(
		&bin.ItemCode, &bin.Warehouse, &bin.ActualQty, &bin.OrderedQty, &bin.ReservedQty, &bin.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bin{}, ErrNotFound
		}
		return Bin{}, err
	}
	return bin, nil
}

// UpsertBinOrderedQty writes the recomputed ordered quantity.
func (r *Repository) UpsertBinOrderedQty(ctx context.Context, itemCode, warehouse string, qty float64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO bins (item_code, warehouse, ordered_qty, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (item_code, warehouse) DO UPDATE SET ordered_qty=$3, updated_at=$4`,
		itemCode, warehouse, qty, time.Now())
	return err
}

// UpsertBinReservedQty writes the recomputed subcontract reservation.
func (r *Repository) UpsertBinReservedQty(ctx context.Context, itemCode, warehouse string, qty float64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO bins (item_code, warehouse, reserved_qty, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (item_code, warehouse) DO UPDATE SET reserved_qty=$3, updated_at=$4`,
		itemCode, warehouse, qty, time.Now())
	return err
}

// SumOrderedQty aggregates outstanding ordered quantity for a bin.
func (r *Repository) SumOrderedQty(ctx context.Context, itemCode, warehouse string) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM((l.qty - l.received_qty) * l.conversion_factor), 0)
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE l.item_code=$1 AND l.warehouse=$2
  AND o.docstatus = 1 AND o.status NOT IN ('Closed')
  AND l.qty > l.received_qty AND NOT l.delivered_by_supplier`,
		itemCode, warehouse).Scan(&qty)
	return qty, err
}

// SumSubcontractReservedQty aggregates outstanding raw-material requirements.
func (r *Repository) SumSubcontractReservedQty(ctx context.Context, rmItemCode, warehouse string) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(GREATEST(s.required_qty - s.supplied_qty, 0)), 0)
FROM purchase_order_supplied_items s
JOIN purchase_orders o ON o.name = s.order_name
WHERE s.rm_item_code=$1 AND s.reserve_warehouse=$2
  AND o.docstatus = 1 AND o.status NOT IN ('Closed') AND o.is_subcontracted`,
		rmItemCode, warehouse).Scan(&qty)
	return qty, err
}

// SumBlanketOrderedQty aggregates ordered quantity per item for a blanket order.
func (r *Repository) SumBlanketOrderedQty(ctx context.Context, blanketOrder string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.item_code, COALESCE(SUM(l.qty), 0)
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE l.blanket_order=$1 AND o.docstatus = 1
GROUP BY l.item_code`, blanketOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var itemCode string
		var qty float64
		if err := rows.Scan(&itemCode, &qty); err != nil {
			return nil, err
		}
		totals[itemCode] = qty
	}
	return totals, rows.Err()
}

// ListOpenOrderBins lists bins touched by open submitted order lines.
func (r *Repository) ListOpenOrderBins(ctx context.Context) ([]BinRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT l.item_code, l.warehouse
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE o.docstatus = 1 AND o.status NOT IN ('Closed', 'Cancelled')
  AND l.warehouse <> '' AND NOT l.delivered_by_supplier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []BinRef
	for rows.Next() {
		var ref BinRef
		if err := rows.Scan(&ref.ItemCode, &ref.Warehouse); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SetBlanketOrderedQty writes the recomputed draw-down for one item.
func (r *Repository) SetBlanketOrderedQty(ctx context.Context, blanketOrder, itemCode string, qty float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE blanket_order_lines SET ordered_qty=$3
WHERE blanket_order=$1 AND item_code=$2`, blanketOrder, itemCode, qty)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
