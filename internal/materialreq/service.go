package materialreq

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Service maintains the ordered-quantity rollup on material requests. The
// rollup is a full recomputation from submitted purchase order lines, so
// repeating a call with the same inputs yields the same percentage.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Request returns one material request header.
func (s *Service) Request(ctx context.Context, name string) (Request, error) {
	return s.repo.GetRequest(ctx, name)
}

// Line returns one material request line.
func (s *Service) Line(ctx context.Context, lineName string) (RequestLine, error) {
	return s.repo.GetLine(ctx, lineName)
}

// CheckOpen fails when the request can no longer be drawn down. Stopped,
// Cancelled and On Hold requests all reject new purchase orders.
func (s *Service) CheckOpen(ctx context.Context, name string) error {
	req, err := s.repo.GetRequest(ctx, name)
	if err != nil {
		return fmt.Errorf("materialreq: fetch %s: %w", name, err)
	}
	if !req.Open() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidStatus, name, req.Status)
	}
	return nil
}

// RecomputeRequestedQty refreshes ordered_qty on the named lines and
// re-derives per_ordered and the header status. A Stopped or Cancelled
// request is a hard failure here; callers should have rejected it during
// validation already.
func (s *Service) RecomputeRequestedQty(ctx context.Context, name string, lineNames []string) error {
	if name == "" {
		return nil
	}
	req, err := s.repo.GetRequest(ctx, name)
	if err != nil {
		return fmt.Errorf("materialreq: fetch %s: %w", name, err)
	}
	if req.Status == StatusStopped || req.Status == StatusCancelled {
		return fmt.Errorf("%w: %s is %s", ErrInvalidStatus, name, req.Status)
	}

	totals, err := s.repo.SumOrderedQtyByLine(ctx, name)
	if err != nil {
		return fmt.Errorf("materialreq: sum ordered qty for %s: %w", name, err)
	}

	touched := make(map[string]bool, len(lineNames))
	for _, n := range lineNames {
		touched[n] = true
	}

	lines, err := s.repo.ListLines(ctx, name)
	if err != nil {
		return fmt.Errorf("materialreq: list lines for %s: %w", name, err)
	}

	var orderedSum, stockSum float64
	for _, line := range lines {
		qty := totals[line.Name]
		if touched[line.Name] && qty != line.OrderedQty {
			if err := s.repo.SetLineOrderedQty(ctx, line.Name, qty); err != nil {
				return fmt.Errorf("materialreq: set ordered qty on %s: %w", line.Name, err)
			}
		}
		orderedSum += math.Min(qty, line.StockQty)
		stockSum += line.StockQty
	}

	pct := 0.0
	if stockSum > 0 {
		pct = orderedSum / stockSum * 100
	}
	status := deriveStatus(req, pct)
	if err := s.repo.SetPerOrdered(ctx, name, pct, status); err != nil {
		return fmt.Errorf("materialreq: set per_ordered on %s: %w", name, err)
	}
	s.logger.Info("material request rollup recomputed", "request", name, "per_ordered", pct, "status", status)
	return nil
}

// deriveStatus maps the rollup percentage onto the header status. Manual
// states (On Hold) survive recomputation; only the ordering ladder moves.
func deriveStatus(req Request, pct float64) Status {
	if req.Status == StatusOnHold {
		return StatusOnHold
	}
	switch {
	case pct >= 100:
		return StatusOrdered
	case pct > 0:
		return StatusPartiallyOrdered
	default:
		return StatusPending
	}
}
