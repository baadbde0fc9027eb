package quotation

import (
	"context"
	"fmt"
	"log/slog"
)

// Service flips quotation and RFQ statuses as purchase orders move through
// their lifecycle. Status changes are reported back as advisory
// notifications rather than errors.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Quotation returns one supplier quotation header.
func (s *Service) Quotation(ctx context.Context, name string) (Quotation, error) {
	return s.repo.GetQuotation(ctx, name)
}

// Lines returns the lines of a quotation.
func (s *Service) Lines(ctx context.Context, name string) ([]QuotationLine, error) {
	return s.repo.ListLines(ctx, name)
}

// MarkOrdered runs the submit-path cascade for one quotation: every RFQ
// behind its lines that is still awaiting an order is forced to Ordered,
// then the quotation itself follows.
func (s *Service) MarkOrdered(ctx context.Context, name string) ([]Notification, error) {
	lines, err := s.repo.ListLines(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("quotation: list lines for %s: %w", name, err)
	}

	var notes []Notification
	for _, rfqName := range distinctRFQs(lines) {
		rfq, err := s.repo.GetRFQ(ctx, rfqName)
		if err != nil {
			return notes, fmt.Errorf("quotation: fetch rfq %s: %w", rfqName, err)
		}
		if !rfq.awaitingOrder() {
			continue
		}
		if err := s.repo.SetRFQStatus(ctx, rfqName, RFQStatusOrdered); err != nil {
			return notes, fmt.Errorf("quotation: set rfq %s status: %w", rfqName, err)
		}
		notes = append(notes, Notification{
			Message: fmt.Sprintf("Request for Quotation %s moved to Ordered", rfqName),
			Ref:     rfqName,
		})
		s.logger.Info("rfq marked ordered", "rfq", rfqName)
	}

	q, err := s.repo.GetQuotation(ctx, name)
	if err != nil {
		return notes, fmt.Errorf("quotation: fetch %s: %w", name, err)
	}
	if q.Status != StatusOrdered {
		if err := s.repo.SetQuotationStatus(ctx, name, StatusOrdered); err != nil {
			return notes, fmt.Errorf("quotation: set %s status: %w", name, err)
		}
		notes = append(notes, Notification{
			Message: fmt.Sprintf("Supplier Quotation %s moved to Ordered", name),
			Ref:     name,
		})
		s.logger.Info("quotation marked ordered", "quotation", name)
	}
	return notes, nil
}

// RecomputeAfterOrderCancel runs the cancel-path recount for one quotation.
// Unlike the submit path, RFQ status is re-derived from how many invited
// suppliers have a submitted quotation against it, and the quotation only
// reverts to Submitted when no other submitted order references it. The two
// paths are intentionally not inverses of each other.
func (s *Service) RecomputeAfterOrderCancel(ctx context.Context, name, excludingOrder string) ([]Notification, error) {
	lines, err := s.repo.ListLines(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("quotation: list lines for %s: %w", name, err)
	}

	var notes []Notification
	for _, rfqName := range distinctRFQs(lines) {
		rfq, err := s.repo.GetRFQ(ctx, rfqName)
		if err != nil {
			return notes, fmt.Errorf("quotation: fetch rfq %s: %w", rfqName, err)
		}
		responded, err := s.repo.CountSubmittedSuppliers(ctx, rfqName)
		if err != nil {
			return notes, fmt.Errorf("quotation: count suppliers for rfq %s: %w", rfqName, err)
		}
		status := RFQStatusSubmitted
		switch {
		case responded == 0:
		case responded < rfq.InvitedSuppliers:
			status = RFQStatusPartiallyReceived
		default:
			status = RFQStatusReceived
		}
		if status == rfq.Status {
			continue
		}
		if err := s.repo.SetRFQStatus(ctx, rfqName, status); err != nil {
			return notes, fmt.Errorf("quotation: set rfq %s status: %w", rfqName, err)
		}
		notes = append(notes, Notification{
			Message: fmt.Sprintf("Request for Quotation %s moved to %s", rfqName, status),
			Ref:     rfqName,
		})
		s.logger.Info("rfq status recomputed", "rfq", rfqName, "status", status)
	}

	others, err := s.repo.HasOtherSubmittedOrders(ctx, name, excludingOrder)
	if err != nil {
		return notes, fmt.Errorf("quotation: check orders against %s: %w", name, err)
	}
	if !others {
		q, err := s.repo.GetQuotation(ctx, name)
		if err != nil {
			return notes, fmt.Errorf("quotation: fetch %s: %w", name, err)
		}
		if q.Status != StatusSubmitted {
			if err := s.repo.SetQuotationStatus(ctx, name, StatusSubmitted); err != nil {
				return notes, fmt.Errorf("quotation: set %s status: %w", name, err)
			}
			notes = append(notes, Notification{
				Message: fmt.Sprintf("Supplier Quotation %s reverted to Submitted", name),
				Ref:     name,
			})
			s.logger.Info("quotation reverted", "quotation", name)
		}
	}
	return notes, nil
}

func distinctRFQs(lines []QuotationLine) []string {
	seen := make(map[string]bool)
	var names []string
	for _, l := range lines {
		if l.RequestForQuotation == "" || seen[l.RequestForQuotation] {
			continue
		}
		seen[l.RequestForQuotation] = true
		names = append(names, l.RequestForQuotation)
	}
	return names
}
