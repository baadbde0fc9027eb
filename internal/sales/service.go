package sales

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Service recomputes purchase-driven counters on sales orders. All
// recomputations derive from submitted purchase order lines, so repeated
// calls converge on the same result.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Order returns one sales order header.
func (s *Service) Order(ctx context.Context, name string) (Order, error) {
	return s.repo.GetOrder(ctx, name)
}

// RecomputeOrderedQty refreshes ordered_qty on the named lines from
// submitted purchase order lines, then re-derives per_ordered across the
// whole order. Capping each line at its stock quantity keeps over-ordering
// from pushing the percentage past 100.
func (s *Service) RecomputeOrderedQty(ctx context.Context, orderName string, lineNames []string) error {
	if orderName == "" {
		return nil
	}
	totals, err := s.repo.SumOrderedQtyByLine(ctx, orderName)
	if err != nil {
		return fmt.Errorf("sales: sum ordered qty for %s: %w", orderName, err)
	}

	touched := make(map[string]bool, len(lineNames))
	for _, n := range lineNames {
		touched[n] = true
	}

	lines, err := s.repo.ListLines(ctx, orderName)
	if err != nil {
		return fmt.Errorf("sales: list lines for %s: %w", orderName, err)
	}

	var orderedSum, stockSum float64
	for _, line := range lines {
		qty := totals[line.Name]
		if touched[line.Name] && qty != line.OrderedQty {
			if err := s.repo.SetLineOrderedQty(ctx, line.Name, qty); err != nil {
				return fmt.Errorf("sales: set ordered qty on %s: %w", line.Name, err)
			}
		}
		orderedSum += math.Min(qty, line.StockQty)
		stockSum += line.StockQty
	}

	pct := 0.0
	if stockSum > 0 {
		pct = orderedSum / stockSum * 100
	}
	if err := s.repo.SetPerOrdered(ctx, orderName, pct); err != nil {
		return fmt.Errorf("sales: set per_ordered on %s: %w", orderName, err)
	}
	s.logger.Info("sales order ordered qty recomputed", "order", orderName, "per_ordered", pct)
	return nil
}

// RecomputeDeliveryStatus re-derives per_delivered and the delivery status
// for each named order. Drop-ship lines count as delivered once their
// purchase order has been marked Delivered by the supplier.
func (s *Service) RecomputeDeliveryStatus(ctx context.Context, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		lines, err := s.repo.ListLines(ctx, name)
		if err != nil {
			return fmt.Errorf("sales: list lines for %s: %w", name, err)
		}
		dropShipped, err := s.repo.SumDropShipDeliveredByLine(ctx, name)
		if err != nil {
			return fmt.Errorf("sales: sum drop-ship delivered for %s: %w", name, err)
		}

		var deliveredSum, stockSum float64
		for _, line := range lines {
			delivered := line.DeliveredQty * line.ConversionFactor
			if line.DeliveredBySupplier {
				delivered = dropShipped[line.Name]
			}
			deliveredSum += math.Min(delivered, line.StockQty)
			stockSum += line.StockQty
		}

		pct := 0.0
		if stockSum > 0 {
			pct = deliveredSum / stockSum * 100
		}
		status := DeliveryNotDelivered
		switch {
		case pct >= 100:
			status = DeliveryFullyDelivered
		case pct > 0:
			status = DeliveryPartlyDelivered
		}
		if err := s.repo.SetDeliveryStatus(ctx, name, pct, status); err != nil {
			return fmt.Errorf("sales: set delivery status on %s: %w", name, err)
		}
		s.logger.Info("sales order delivery status recomputed", "order", name, "status", status)
	}
	return nil
}
