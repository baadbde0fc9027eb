package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBudgetExceeded indicates a commitment above the configured budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// BudgetControl enforces per-company, per-cost-center spending budgets
// against already committed purchase amounts.
type BudgetControl struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewBudgetControl constructs BudgetControl.
func NewBudgetControl(pool *pgxpool.Pool, logger *slog.Logger) *BudgetControl {
	return &BudgetControl{pool: pool, logger: logger}
}

// CheckBudget fails when amount on top of the committed total would push a
// cost center past its budget. Cost centers without a budget row always
// pass.
func (b *BudgetControl) CheckBudget(ctx context.Context, company, costCenter string, amount float64) error {
	if b == nil || costCenter == "" {
		return nil
	}
	var budget float64
	err := b.pool.QueryRow(ctx, `SELECT amount FROM budgets
WHERE company=$1 AND cost_center=$2 LIMIT 1`, company, costCenter).Scan(&budget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	var committed float64
	err = b.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.amount * o.conversion_rate), 0)
FROM purchase_order_lines l
JOIN purchase_orders o ON o.name = l.order_name
WHERE o.company=$1 AND l.cost_center=$2 AND o.docstatus = 1 AND o.status <> 'Cancelled'`,
		company, costCenter).Scan(&committed)
	if err != nil {
		return err
	}
	if committed+amount > budget {
		return fmt.Errorf("%w: cost center %s committed %.2f plus %.2f is above budget %.2f",
			ErrBudgetExceeded, costCenter, committed, amount, budget)
	}
	return nil
}
