package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, name string) (Order, []OrderLine, error)
	GetSuppliedItems(ctx context.Context, name string) ([]SuppliedItem, error)
	ListPaymentSchedule(ctx context.Context, orderName string) ([]PaymentScheduleRow, error)
	IsInternalCustomer(ctx context.Context, company, customer string) (bool, error)
	GetInternalCustomer(ctx context.Context, company string) (string, error)
	LinkInterCompany(ctx context.Context, salesOrder, orderName string) error
	UnlinkInterCompany(ctx context.Context, salesOrder string) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	UpdateHeader(ctx context.Context, o Order) error
	UpdateLine(ctx context.Context, l OrderLine) error
	UpdateLineRate(ctx context.Context, lineName string, rate, amount float64) error
	UpdateStatus(ctx context.Context, name string, status Status, docStatus int16) error
	SetPercentages(ctx context.Context, name string, perReceived, perBilled float64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetOrder returns order header and lines.
func (r *Repository) GetOrder(ctx context.Context, name string) (Order, []OrderLine, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT name, supplier, supplier_name, company, currency, conversion_rate,
status, docstatus, is_subcontracted, COALESCE(supplier_warehouse, ''), per_received, per_billed,
grand_total, schedule_date, COALESCE(inter_company_sales_order, ''), COALESCE(customer, ''),
created_at, updated_at
FROM purchase_orders WHERE name=$1`, name).Scan(
		&o.Name, &o.Supplier, &o.SupplierName, &o.Company, &o.Currency, &o.ConversionRate,
		&o.Status, &o.DocStatus, &o.IsSubcontracted, &o.SupplierWarehouse, &o.PerReceived, &o.PerBilled,
		&o.GrandTotal, &o.ScheduleDate, &o.InterCompanySalesOrder, &o.Customer,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, nil, ErrNotFound
		}
		return Order{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT name, order_name, idx, item_code, item_name, description,
COALESCE(item_group, ''), COALESCE(warehouse, ''), COALESCE(project, ''), COALESCE(cost_center, ''),
uom, stock_uom, conversion_factor, qty, stock_qty, rate, amount, received_qty, billed_amt,
COALESCE(bom, ''), delivered_by_supplier,
COALESCE(material_request, ''), COALESCE(material_request_line, ''),
COALESCE(supplier_quotation, ''), COALESCE(supplier_quotation_line, ''),
COALESCE(sales_order, ''), COALESCE(sales_order_line, ''), COALESCE(blanket_order, ''), schedule_date
FROM purchase_order_lines WHERE order_name=$1 ORDER BY idx`, name)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.Name, &l.OrderName, &l.Idx, &l.ItemCode, &l.ItemName, &l.Description,
			&l.ItemGroup, &l.Warehouse, &l.Project, &l.CostCenter,
			&l.UOM, &l.StockUOM, &l.ConversionFactor, &l.Qty, &l.StockQty, &l.Rate, &l.Amount,
			&l.ReceivedQty, &l.BilledAmt,
			&l.BOM, &l.DeliveredBySupplier,
			&l.MaterialRequest, &l.MaterialRequestLine,
			&l.SupplierQuotation, &l.SupplierQuotationLine,
			&l.SalesOrder, &l.SalesOrderLine, &l.BlanketOrder, &l.ScheduleDate); err != nil {
			return Order{}, nil, err
		}
		lines = append(lines, l)
	}
	return o, lines, rows.Err()
}

// GetSuppliedItems returns subcontracting raw-material rows.
func (r *Repository) GetSuppliedItems(ctx context.Context, name string) ([]SuppliedItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, order_name, main_item_code, rm_item_code,
required_qty, supplied_qty, rate, stock_uom, COALESCE(reserve_warehouse, '')
FROM purchase_order_supplied_items WHERE order_name=$1 ORDER BY name`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SuppliedItem
	for rows.Next() {
		var it SuppliedItem
		if err := rows.Scan(&it.Name, &it.OrderName, &it.MainItemCode, &it.RMItemCode,
			&it.RequiredQty, &it.SuppliedQty, &it.Rate, &it.StockUOM, &it.ReserveWarehouse); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListPaymentSchedule returns the payment schedule rows of an order.
func (r *Repository) ListPaymentSchedule(ctx context.Context, orderName string) ([]PaymentScheduleRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT due_date, invoice_portion, payment_term
FROM payment_schedules WHERE order_name=$1 ORDER BY due_date`, orderName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedule []PaymentScheduleRow
	for rows.Next() {
		var row PaymentScheduleRow
		if err := rows.Scan(&row.DueDate, &row.InvoicePortion, &row.PaymentTerm); err != nil {
			return nil, err
		}
		schedule = append(schedule, row)
	}
	return schedule, rows.Err()
}

// IsInternalCustomer checks the company-to-customer pairing.
func (r *Repository) IsInternalCustomer(ctx context.Context, company, customer string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM company_links WHERE company=$1 AND customer=$2)`, company, customer).Scan(&exists)
	return exists, err
}

// GetInternalCustomer returns the customer record representing a company.
func (r *Repository) GetInternalCustomer(ctx context.Context, company string) (string, error) {
	var customer string
	err := r.pool.QueryRow(ctx, `SELECT customer FROM company_links WHERE company=$1 LIMIT 1`,
		company).Scan(&customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &ValidationError{
				Message: userMsg.Sprintf("No internal customer is registered for %s", company),
				Ref:     company,
			}
		}
		return "", err
	}
	return customer, nil
}

// LinkInterCompany records the paired purchase order on a sales order.
func (r *Repository) LinkInterCompany(ctx context.Context, salesOrder, orderName string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sales_orders SET inter_company_order_reference=$2, updated_at=$3
WHERE name=$1`, salesOrder, orderName, time.Now())
	return err
}

// UnlinkInterCompany clears the paired reference on a sales order.
func (r *Repository) UnlinkInterCompany(ctx context.Context, salesOrder string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sales_orders SET inter_company_order_reference=NULL, updated_at=$2
WHERE name=$1`, salesOrder, time.Now())
	return err
}

// UpdateHeader persists recomputed header fields.
func (t *txRepo) UpdateHeader(ctx context.Context, o Order) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET supplier_name=$2, grand_total=$3, schedule_date=$4, updated_at=$5
WHERE name=$1`, o.Name, o.SupplierName, o.GrandTotal, o.ScheduleDate, time.Now())
	return err
}

// UpdateLine persists recomputed line fields.
func (t *txRepo) UpdateLine(ctx context.Context, l OrderLine) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_order_lines
SET stock_qty=$2, amount=$3, received_qty=$4, conversion_factor=$5, schedule_date=$6
WHERE name=$1`, l.Name, l.StockQty, l.Amount, l.ReceivedQty, l.ConversionFactor, l.ScheduleDate)
	return err
}

// UpdateLineRate writes a backfilled rate and amount.
func (t *txRepo) UpdateLineRate(ctx context.Context, lineName string, rate, amount float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_order_lines SET rate=$2, amount=$3 WHERE name=$1`,
		lineName, rate, amount)
	return err
}

// UpdateStatus writes status and docstatus.
func (t *txRepo) UpdateStatus(ctx context.Context, name string, status Status, docStatus int16) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, docstatus=$3, updated_at=$4
WHERE name=$1`, name, status, docStatus, time.Now())
	return err
}

// SetPercentages writes the received and billed percentages.
func (t *txRepo) SetPercentages(ctx context.Context, name string, perReceived, perBilled float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET per_received=$2, per_billed=$3, updated_at=$4
WHERE name=$1`, name, perReceived, perBilled, time.Now())
	return err
}

var (
	_ RepositoryPort = (*Repository)(nil)
	_ TxRepository   = (*txRepo)(nil)
)
