package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines read access to master records.
type Repository interface {
	GetItem(ctx context.Context, code string) (Item, error)
	GetItemGroupDefaults(ctx context.Context, group, company string) (ItemGroupDefaults, error)
	GetSupplier(ctx context.Context, name string) (Supplier, error)
	GetProject(ctx context.Context, name string) (Project, error)
	GetUOM(ctx context.Context, name string) (UOM, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetItem fetches an item by code.
func (r *PGRepository) GetItem(ctx context.Context, code string) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT code, name, description, stock_uom, is_stock_item,
	min_order_qty, last_purchase_rate, allow_alternative_item, COALESCE(buying_cost_center, '')
FROM items WHERE code=$1`, code).Scan(&item.Code, &item.Name, &item.Description, &item.StockUOM,
		&item.IsStockItem, &item.MinOrderQty, &item.LastPurchaseRate, &item.AllowAlternativeItem,
		&item.BuyingCostCenter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// GetItemGroupDefaults fetches per-company defaults for the group of an item.
func (r *PGRepository) GetItemGroupDefaults(ctx context.Context, group, company string) (ItemGroupDefaults, error) {
	var defaults ItemGroupDefaults
	err := r.pool.QueryRow(ctx, `SELECT item_group, company, COALESCE(buying_cost_center, '')
FROM item_group_defaults WHERE item_group=$1 AND company=$2`, group, company).Scan(
		&defaults.Group, &defaults.Company, &defaults.BuyingCostCenter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemGroupDefaults{}, ErrNotFound
		}
		return ItemGroupDefaults{}, err
	}
	return defaults, nil
}

// GetSupplier fetches a supplier with its scorecard standing.
func (r *PGRepository) GetSupplier(ctx context.Context, name string) (Supplier, error) {
	var supplier Supplier
	err := r.pool.QueryRow(ctx, `SELECT s.name, COALESCE(s.company, ''), s.prevent_pos, s.warn_pos,
	COALESCE(sc.status, '')
FROM suppliers s
LEFT JOIN supplier_scorecards sc ON sc.supplier = s.name
WHERE s.name=$1`, name).Scan(&supplier.Name, &supplier.Company,
		&supplier.PreventPurchaseOrders, &supplier.WarnPurchaseOrders, &supplier.ScorecardStanding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrNotFound
		}
		return Supplier{}, err
	}
	return supplier, nil
}

// GetProject fetches a project by name.
func (r *PGRepository) GetProject(ctx context.Context, name string) (Project, error) {
	var project Project
	err := r.pool.QueryRow(ctx, `SELECT name, COALESCE(cost_center, '') FROM projects WHERE name=$1`,
		name).Scan(&project.Name, &project.CostCenter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return project, nil
}

// GetUOM fetches a unit of measure by name.
func (r *PGRepository) GetUOM(ctx context.Context, name string) (UOM, error) {
	var uom UOM
	err := r.pool.QueryRow(ctx, `SELECT name, must_be_whole FROM uoms WHERE name=$1`, name).Scan(
		&uom.Name, &uom.MustBeWhole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UOM{}, ErrNotFound
		}
		return UOM{}, err
	}
	return uom, nil
}

var _ Repository = (*PGRepository)(nil)
