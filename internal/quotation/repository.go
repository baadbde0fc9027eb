package quotation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort describes the persistence operations the service needs.
type RepositoryPort interface {
	GetQuotation(ctx context.Context, name string) (Quotation, error)
	ListLines(ctx context.Context, quotationName string) ([]QuotationLine, error)
	GetRFQ(ctx context.Context, name string) (RFQ, error)
	SetQuotationStatus(ctx context.Context, name string, status Status) error
	SetRFQStatus(ctx context.Context, name string, status RFQStatus) error
	// CountSubmittedSuppliers counts distinct suppliers whose submitted
	// quotations carry a line referencing the RFQ.
	CountSubmittedSuppliers(ctx context.Context, rfqName string) (int, error)
	// HasOtherSubmittedOrders reports whether any submitted purchase order
	// other than the one named references the quotation.
	HasOtherSubmittedOrders(ctx context.Context, quotationName, excludingOrder string) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetQuotation fetches one supplier quotation header.
func (r *Repository) GetQuotation(ctx context.Context, name string) (Quotation, error) {
	var q Quotation
	err := r.pool.QueryRow(ctx, `SELECT name, supplier, company, currency, status, docstatus, created_at, updated_at
FROM supplier_quotations WHERE name=$1`, name).Scan(
		&q.Name, &q.Supplier, &q.Company, &q.Currency, &q.Status, &q.DocStatus, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, ErrNotFound
		}
		return Quotation{}, err
	}
	return q, nil
}

// ListLines fetches the lines of a quotation in row order.
func (r *Repository) ListLines(ctx context.Context, quotationName string) ([]QuotationLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, quotation_name, idx, item_code, uom, conversion_factor,
rate, project, COALESCE(request_for_quotation, '')
FROM supplier_quotation_lines WHERE quotation_name=$1 ORDER BY idx`, quotationName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []QuotationLine
	for rows.Next() {
		var l QuotationLine
		if err := rows.Scan(&l.Name, &l.QuotationName, &l.Idx, &l.ItemCode, &l.UOM, &l.ConversionFactor,
			&l.Rate, &l.Project, &l.RequestForQuotation); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetRFQ fetches one request for quotation with its invited-supplier count.
func (r *Repository) GetRFQ(ctx context.Context, name string) (RFQ, error) {
	var rfq RFQ
	err := r.pool.QueryRow(ctx, `SELECT r.name, r.status, r.updated_at,
(SELECT COUNT(*) FROM rfq_suppliers s WHERE s.rfq_name = r.name)
FROM requests_for_quotation r WHERE r.name=$1`, name).Scan(
		&rfq.Name, &rfq.Status, &rfq.UpdatedAt, &rfq.InvitedSuppliers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RFQ{}, ErrNotFound
		}
		return RFQ{}, err
	}
	return rfq, nil
}

// SetQuotationStatus writes a new quotation status.
func (r *Repository) SetQuotationStatus(ctx context.Context, name string, status Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE supplier_quotations SET status=$2, updated_at=$3 WHERE name=$1`,
		name, status, time.Now())
	return err
}

// SetRFQStatus writes a new request for quotation status.
func (r *Repository) SetRFQStatus(ctx context.Context, name string, status RFQStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE requests_for_quotation SET status=$2, updated_at=$3 WHERE name=$1`,
		name, status, time.Now())
	return err
}

// CountSubmittedSuppliers counts distinct responding suppliers for an RFQ.
func (r *Repository) CountSubmittedSuppliers(ctx context.Context, rfqName string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT q.supplier)
FROM supplier_quotation_lines l
JOIN supplier_quotations q ON q.name = l.quotation_name
WHERE l.request_for_quotation=$1 AND q.docstatus = 1`, rfqName).Scan(&n)
	return n, err
}

// HasOtherSubmittedOrders checks for other submitted purchase orders
// referencing the quotation.
func (r *Repository) HasOtherSubmittedOrders(ctx context.Context, quotationName, excludingOrder string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE l.supplier_quotation=$1 AND o.docstatus = 1 AND o.name <> $2)`,
		quotationName, excludingOrder).Scan(&exists)
	return exists, err
}

var _ RepositoryPort = (*Repository)(nil)
