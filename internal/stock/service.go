package stock

import (
	"context"
	"errors"
	"fmt"
)

// Service recomputes bin and blanket-order counters from source documents.
// Every operation is a full recomputation, so repeating a call with the same
// inputs is idempotent.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RecomputeOrderedQty refreshes a bin's ordered quantity from submitted
// purchase order lines.
func (s *Service) RecomputeOrderedQty(ctx context.Context, itemCode, warehouse string) error {
	if itemCode == "" || warehouse == "" {
		return errors.New("stock: item and warehouse required")
	}
	qty, err := s.repo.SumOrderedQty(ctx, itemCode, warehouse)
	if err != nil {
		return fmt.Errorf("stock: sum ordered qty for %s/%s: %w", itemCode, warehouse, err)
	}
	return s.repo.UpsertBinOrderedQty(ctx, itemCode, warehouse, qty)
}

// RecomputeSubcontractReservedQty refreshes a bin's raw-material reservation
// from submitted subcontracted purchase orders.
func (s *Service) RecomputeSubcontractReservedQty(ctx context.Context, rmItemCode, warehouse string) error {
	if rmItemCode == "" || warehouse == "" {
		return errors.New("stock: item and warehouse required")
	}
	qty, err := s.repo.SumSubcontractReservedQty(ctx, rmItemCode, warehouse)
	if err != nil {
		return fmt.Errorf("stock: sum reserved qty for %s/%s: %w", rmItemCode, warehouse, err)
	}
	return s.repo.UpsertBinReservedQty(ctx, rmItemCode, warehouse, qty)
}

// PropagateBlanketOrder refreshes the per-item draw-down on a blanket order.
func (s *Service) PropagateBlanketOrder(ctx context.Context, blanketOrder string) error {
	if blanketOrder == "" {
		return nil
	}
	totals, err := s.repo.SumBlanketOrderedQty(ctx, blanketOrder)
	if err != nil {
		return fmt.Errorf("stock: sum blanket order %s: %w", blanketOrder, err)
	}
	for itemCode, qty := range totals {
		if err := s.repo.SetBlanketOrderedQty(ctx, blanketOrder, itemCode, qty); err != nil {
			return err
		}
	}
	return nil
}

// RecountOpenBins recomputes the ordered quantity for every bin referenced
// by an open submitted order. Used by the nightly reconciliation job.
func (s *Service) RecountOpenBins(ctx context.Context) (int, error) {
	refs, err := s.repo.ListOpenOrderBins(ctx)
	if err != nil {
		return 0, fmt.Errorf("stock: list open order bins: %w", err)
	}
	for _, ref := range refs {
		if err := s.RecomputeOrderedQty(ctx, ref.ItemCode, ref.Warehouse); err != nil {
			return 0, err
		}
	}
	return len(refs), nil
}

// Bin returns the bin row for an item/warehouse pair.
func (s *Service) Bin(ctx context.Context, itemCode, warehouse string) (Bin, error) {
	return s.repo.GetBin(ctx, itemCode, warehouse)
}
