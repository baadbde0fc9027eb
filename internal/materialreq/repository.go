package materialreq

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort describes the persistence operations the service needs.
type RepositoryPort interface {
	GetRequest(ctx context.Context, name string) (Request, error)
	GetLine(ctx context.Context, lineName string) (RequestLine, error)
	ListLines(ctx context.Context, requestName string) ([]RequestLine, error)
	// SumOrderedQtyByLine aggregates ordered stock quantity per request line
	// from submitted purchase order lines referencing the request.
	SumOrderedQtyByLine(ctx context.Context, requestName string) (map[string]float64, error)
	SetLineOrderedQty(ctx context.Context, lineName string, qty float64) error
	SetPerOrdered(ctx context.Context, requestName string, pct float64, status Status) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRequest fetches one material request header.
func (r *Repository) GetRequest(ctx context.Context, name string) (Request, error) {
	var req Request
	err := r.pool.QueryRow(ctx, `SELECT name, company, status, docstatus, per_ordered, created_at, updated_at
FROM material_requests WHERE name=$1`, name).Scan(
		&req.Name, &req.Company, &req.Status, &req.DocStatus, &req.PerOrdered, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

// GetLine fetches one request line.
func (r *Repository) GetLine(ctx context.Context, lineName string) (RequestLine, error) {
	var l RequestLine
	err := r.pool.QueryRow(ctx, `SELECT name, request_name, idx, item_code, warehouse, project,
qty, conversion_factor, stock_qty, ordered_qty, schedule_date
FROM material_request_lines WHERE name=$1`, lineName).Scan(
		&l.Name, &l.RequestName, &l.Idx, &l.ItemCode, &l.Warehouse, &l.Project,
		&l.Qty, &l.ConversionFactor, &l.StockQty, &l.OrderedQty, &l.ScheduleDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RequestLine{}, ErrNotFound
		}
		return RequestLine{}, err
	}
	return l, nil
}

// ListLines fetches the lines of a request in row order.
func (r *Repository) ListLines(ctx context.Context, requestName string) ([]RequestLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, request_name, idx, item_code, warehouse, project,
qty, conversion_factor, stock_qty, ordered_qty, schedule_date
FROM material_request_lines WHERE request_name=$1 ORDER BY idx`, requestName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []RequestLine
	for rows.Next() {
		var l RequestLine
		if err := rows.Scan(&l.Name, &l.RequestName, &l.Idx, &l.ItemCode, &l.Warehouse, &l.Project,
			&l.Qty, &l.ConversionFactor, &l.StockQty, &l.OrderedQty, &l.ScheduleDate); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// SumOrderedQtyByLine aggregates purchase-ordered stock quantity per line.
func (r *Repository) SumOrderedQtyByLine(ctx context.Context, requestName string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.material_request_line, COALESCE(SUM(l.qty * l.conversion_factor), 0)
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE l.material_request=$1 AND o.docstatus = 1
GROUP BY l.material_request_line`, requestName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
	_, err := r.pool.Exec(ctx, `UPDATE material_request_lines SET ordered_qty=$2 WHERE name=$1`, lineName, qty)
	return err
}

// SetPerOrdered writes the recomputed percentage and derived status.
func (r *Repository) SetPerOrdered(ctx context.Context, requestName string, pct float64, status Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE material_requests SET per_ordered=$2, status=$3, updated_at=$4
WHERE name=$1`, requestName, pct, status, time.Now())
	return err
}

var _ RepositoryPort = (*Repository)(nil)
