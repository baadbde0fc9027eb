package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort describes the persistence operations the service needs.
type RepositoryPort interface {
	GetOrder(ctx context.Context, name string) (Order, error)
	ListLines(ctx context.Context, orderName string) ([]OrderLine, error)
	// SumOrderedQtyByLine aggregates ordered quantity per sales order line
	// from submitted purchase order lines raised against the order.
	SumOrderedQtyByLine(ctx context.Context, orderName string) (map[string]float64, error)
	// SumDropShipDeliveredByLine aggregates quantity per sales order line
	// from submitted drop-ship purchase order lines whose order has been
	// marked Delivered by the supplier.
	SumDropShipDeliveredByLine(ctx context.Context, orderName string) (map[string]float64, error)
	SetLineOrderedQty(ctx context.Context, lineName string, qty float64) error
	SetPerOrdered(ctx context.Context, orderName string, pct float64) error
	SetDeliveryStatus(ctx context.Context, orderName string, perDelivered float64, status DeliveryStatus) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrder fetches one sales order header.
func (r *Repository) GetOrder(ctx context.Context, name string) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT name, company, customer, customer_name, status, docstatus,
per_ordered, per_delivered, delivery_status, created_at, updated_at
FROM sales_orders WHERE name=$1`, name).Scan(
		&o.Name, &o.Company, &o.Customer, &o.CustomerName, &o.Status, &o.DocStatus,
		&o.PerOrdered, &o.PerDelivered, &o.DeliveryStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

// ListLines fetches the lines of an order in row order.
func (r *Repository) ListLines(ctx context.Context, orderName string) ([]OrderLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, order_name, idx, item_code, warehouse, project,
qty, conversion_factor, stock_qty, ordered_qty, delivered_qty, delivered_by_supplier
FROM sales_order_lines WHERE order_name=$1 ORDER BY idx`, orderName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.Name, &l.OrderName, &l.Idx, &l.ItemCode, &l.Warehouse, &l.Project,
			&l.Qty, &l.ConversionFactor, &l.StockQty, &l.OrderedQty, &l.DeliveredQty, &l.DeliveredBySupplier); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// SumOrderedQtyByLine aggregates purchase-ordered stock quantity per line.
func (r *Repository) SumOrderedQtyByLine(ctx context.Context, orderName string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.sales_order_line, COALESCE(SUM(l.qty * l.conversion_factor), 0)
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE l.sales_order=$1 AND o.docstatus = 1
GROUP BY l.sales_order_line`, orderName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLineTotals(rows)
}

// SumDropShipDeliveredByLine aggregates delivered-by-supplier stock quantity
// per line.
func (r *Repository) SumDropShipDeliveredByLine(ctx context.Context, orderName string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.sales_order_line, COALESCE(SUM(l.qty * l.conversion_factor), 0)
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE l.sales_order=$1 AND o.docstatus = 1 AND l.delivered_by_supplier AND o.status = 'Delivered'
GROUP BY l.sales_order_line`, orderName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLineTotals(rows)
}

func scanLineTotals(rows pgx.Rows) (map[string]float64, error) {
	totals := make(map[string]float64)
	for rows.Next() {
		var lineName string
		var qty float64
		if err := rows.Scan(&lineName, &qty); err != nil {
			return nil, err
		}
		totals[lineName] = qty
	}
	return totals, rows.Err()
}

// SetLineOrderedQty writes the recomputed ordered quantity on one line.
func (r *Repository) SetLineOrderedQty(ctx context.Context, lineName string, qty float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE sales_order_lines SET ordered_qty=$2 WHERE name=$1`, lineName, qty)
	return err
}

// SetPerOrdered writes the recomputed ordered percentage on the header.
func (r *Repository) SetPerOrdered(ctx context.Context, orderName string, pct float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE sales_orders SET per_ordered=$2, updated_at=$3 WHERE name=$1`,
		orderName, pct, time.Now())
	return err
}

// SetDeliveryStatus writes the recomputed delivery figures on the header.
func (r *Repository) SetDeliveryStatus(ctx context.Context, orderName string, perDelivered float64, status DeliveryStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE sales_orders SET per_delivered=$2, delivery_status=$3, updated_at=$4
WHERE name=$1`, orderName, perDelivered, status, time.Now())
	return err
}

var _ RepositoryPort = (*Repository)(nil)
